package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// rpcRequest is the minimal JSON-RPC envelope accepted over stdio: an
// id, a method name, and a params object interpreted per-method.
type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcError struct {
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type readResourceParams struct {
	URI string `json:"uri"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ServeStdio reads one JSON-RPC request per line from r and writes one
// JSON-RPC response per line to w, until r is exhausted or ctx is
// canceled. This is the transport spec §6 describes as "a minimal
// stdio line-reader": no framing beyond newlines, one request answered
// at a time.
func ServeStdio(ctx context.Context, h *Handler, r io.Reader, w io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := handleLine(ctx, h, line)
		data, err := json.Marshal(resp)
		if err != nil {
			logger.Error("protocol: marshal response", "error", err)
			continue
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("protocol: write response: %w", err)
		}
	}
	return scanner.Err()
}

func handleLine(ctx context.Context, h *Handler, line []byte) rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return rpcResponse{Error: &rpcError{Message: "invalid request: " + err.Error()}}
	}

	result, err := dispatchMethod(ctx, h, req.Method, req.Params)
	if err != nil {
		return rpcResponse{ID: req.ID, Error: &rpcError{Message: err.Error()}}
	}
	return rpcResponse{ID: req.ID, Result: result}
}

func dispatchMethod(ctx context.Context, h *Handler, method string, params json.RawMessage) (any, error) {
	switch method {
	case "list_resources":
		return h.ListResources(ctx)
	case "read_resource":
		var p readResourceParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("read_resource: %w", err)
		}
		return h.ReadResource(ctx, p.URI)
	case "list_tools":
		return h.ListTools(ctx)
	case "call_tool":
		var p callToolParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("call_tool: %w", err)
		}
		result, err := h.CallTool(ctx, p.Name, p.Arguments)
		if err != nil {
			return nil, err
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}
