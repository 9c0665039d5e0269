package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeStore struct {
	appended []*Invocation
	err      error
}

func (f *fakeStore) Append(_ context.Context, inv *Invocation) error {
	if f.err != nil {
		return f.err
	}
	inv.Hash = "h" + inv.ID
	f.appended = append(f.appended, inv)
	return nil
}

func TestRecorder_LogOnly(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(slog.New(slog.NewJSONHandler(&buf, nil)), nil)

	err := r.Record(context.Background(), &Invocation{
		ID: "1", Caller: "stdio", Tool: "get_host",
		Outcome: Outcome{Status: StatusError, ErrorKind: "client_error", StatusCode: 404},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["msg"] != "tool invocation" || line["tool"] != "get_host" || line["error_kind"] != "client_error" {
		t.Errorf("unexpected log line %v", line)
	}
}

func TestRecorder_AppendsToStore(t *testing.T) {
	var buf bytes.Buffer
	store := &fakeStore{}
	r := &Recorder{store: store, log: slog.New(slog.NewJSONHandler(&buf, nil))}

	inv := &Invocation{ID: "2", Caller: "ops", Tool: "list_hosts", Outcome: Outcome{Status: StatusOK, ResultKind: "list"}}
	if err := r.Record(context.Background(), inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.appended) != 1 {
		t.Fatalf("expected 1 append, got %d", len(store.appended))
	}
	if !strings.Contains(buf.String(), `"hash":"h2"`) {
		t.Errorf("expected chain hash in log line, got %s", buf.String())
	}
}

func TestRecorder_StoreFailureStillLogs(t *testing.T) {
	var buf bytes.Buffer
	r := &Recorder{store: &fakeStore{err: errors.New("db down")}, log: slog.New(slog.NewJSONHandler(&buf, nil))}

	err := r.Record(context.Background(), &Invocation{ID: "3", Tool: "list_sites", Outcome: Outcome{Status: StatusOK}})
	if err == nil {
		t.Fatal("expected store error")
	}
	out := buf.String()
	if !strings.Contains(out, "audit append failed") || !strings.Contains(out, "tool invocation") {
		t.Errorf("expected both log lines, got %s", out)
	}
}
