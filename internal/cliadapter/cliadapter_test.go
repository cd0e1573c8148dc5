package cliadapter

import (
	"context"
	"testing"
	"time"

	"github.com/clawinfra/skrills/internal/runstore"
)

func waitTerminal(t *testing.T, store runstore.Store, id string) runstore.Status {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		st, err := store.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if st.State.Terminal() {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached a terminal state", id)
	return runstore.Status{}
}

func TestDispatchSuccess(t *testing.T) {
	store := runstore.NewMemoryStore()
	a := New(Config{Binary: "/bin/echo"}, store)

	id, err := a.Dispatch(context.Background(), runstore.Request{Backend: "claude", Prompt: "hello world"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	st := waitTerminal(t, store, id)
	if st.State != runstore.Succeeded {
		t.Fatalf("expected Succeeded, got %v (%s)", st.State, st.Message)
	}

	rec, _ := store.Run(id)
	var sawCompletion bool
	for _, ev := range rec.Events {
		if ev.Kind == runstore.EventCompletion {
			sawCompletion = true
		}
	}
	if !sawCompletion {
		t.Fatalf("expected a completion event, got %+v", rec.Events)
	}
}

func TestDispatchSpawnFailure(t *testing.T) {
	store := runstore.NewMemoryStore()
	a := New(Config{Binary: "/no/such/binary-xyz"}, store)

	id, err := a.Dispatch(context.Background(), runstore.Request{Backend: "claude", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	st := waitTerminal(t, store, id)
	if st.State != runstore.Failed {
		t.Fatalf("expected Failed, got %v", st.State)
	}
}

func TestStopKillsAndCancels(t *testing.T) {
	store := runstore.NewMemoryStore()
	a := New(Config{Binary: "/bin/sleep"}, store)

	id, err := a.Dispatch(context.Background(), runstore.Request{Backend: "claude", Prompt: "5"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	// Give the process a moment to start before killing it.
	time.Sleep(50 * time.Millisecond)

	stopped, err := a.Stop(id)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stopped {
		t.Fatalf("expected Stop to report true")
	}

	st, _ := store.Status(id)
	if st.State != runstore.Canceled {
		t.Fatalf("expected Canceled, got %v", st.State)
	}
}

func TestResolveBinaryAuto(t *testing.T) {
	a := &Adapter{cfg: Config{Binary: "auto", AmbientClient: BackendCodex}}
	if got := a.resolveBinary(""); got != BackendCodex {
		t.Fatalf("expected codex, got %s", got)
	}
	a2 := &Adapter{cfg: Config{Binary: "auto"}}
	if got := a2.resolveBinary(""); got != BackendClaude {
		t.Fatalf("expected claude default, got %s", got)
	}
	a3 := &Adapter{cfg: Config{Binary: "/custom/bin"}}
	if got := a3.resolveBinary(BackendCodex); got != "/custom/bin" {
		t.Fatalf("expected override binary, got %s", got)
	}
}

func TestPromptArgsPerBinary(t *testing.T) {
	if args := promptArgs(BackendCodex, "x"); len(args) != 3 || args[2] != "--non-interactive" {
		t.Fatalf("unexpected codex args: %v", args)
	}
	if args := promptArgs(BackendClaude, "x"); len(args) != 3 || args[2] != "--print" {
		t.Fatalf("unexpected claude args: %v", args)
	}
}
