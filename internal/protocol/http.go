package protocol

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// HTTPHandler exposes the same JSON-RPC envelope as ServeStdio over a
// single POST endpoint, plus a WebSocket endpoint that streams a run's
// events as they're appended (spec §6: "a minimal... HTTP handler wired
// for local use").
type HTTPHandler struct {
	H      *Handler
	Logger *slog.Logger
}

func (hh *HTTPHandler) logger() *slog.Logger {
	if hh.Logger != nil {
		return hh.Logger
	}
	return slog.Default()
}

// Routes returns an http.Handler with "/rpc" and "/runs/{id}/stream"
// wired; callers embed it under their own mux/prefix as needed.
func (hh *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", hh.serveRPC)
	mux.HandleFunc("/runs/", hh.serveRunStream)
	return mux
}

func (hh *HTTPHandler) serveRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := dispatchMethod(r.Context(), hh.H, req.Method, req.Params)
	resp := rpcResponse{ID: req.ID}
	if err != nil {
		resp.Error = &rpcError{Message: err.Error()}
	} else {
		resp.Result = result
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// serveRunStream upgrades to a WebSocket connection and pushes every
// event appended to the named run (by polling the run store, since
// Store has no native subscribe hook) until the run reaches a terminal
// state or the client disconnects.
func (hh *HTTPHandler) serveRunStream(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/runs/"), "/stream")
	if id == "" || hh.H.Runs == nil {
		http.Error(w, "unknown run", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		hh.logger().Warn("protocol: websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	sent := 0
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		rec, err := hh.H.Runs.Run(id)
		if err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "run not found")
			return
		}
		for ; sent < len(rec.Events); sent++ {
			data, _ := json.Marshal(rec.Events[sent])
			if writeErr := conn.Write(ctx, websocket.MessageText, data); writeErr != nil {
				return
			}
		}
		if rec.Status.State.Terminal() {
			_ = conn.Close(websocket.StatusNormalClosure, "run complete")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Serve runs an HTTP server bound to addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h *Handler, logger *slog.Logger) error {
	hh := &HTTPHandler{H: h, Logger: logger}
	srv := &http.Server{Addr: addr, Handler: hh.Routes()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
