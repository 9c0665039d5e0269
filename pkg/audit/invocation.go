package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Outcome is what an invocation produced. Error fields mirror the adapter
// error so a row can be rendered without the raw HTTP exchange.
type Outcome struct {
	Status     string `json:"status"`
	ResultKind string `json:"result_kind,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Invocation is one tool call as seen by the tool surface.
type Invocation struct {
	ID        string          `json:"id"`
	Caller    string          `json:"caller"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	Outcome   Outcome         `json:"outcome"`

	Hash     string `json:"-"`
	PrevHash string `json:"-"`
}

// canonical returns the hashed forms of the request half and the outcome
// half of the invocation.
func (inv *Invocation) canonical() (request, outcome []byte, err error) {
	request, err = CanonicalJSON(struct {
		ID        string          `json:"id"`
		Caller    string          `json:"caller"`
		Tool      string          `json:"tool"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
		StartedAt time.Time       `json:"started_at"`
	}{inv.ID, inv.Caller, inv.Tool, inv.Arguments, inv.StartedAt.UTC()})
	if err != nil {
		return nil, nil, fmt.Errorf("canonical invocation: %w", err)
	}
	outcome, err = CanonicalJSON(inv.Outcome)
	if err != nil {
		return nil, nil, fmt.Errorf("canonical outcome: %w", err)
	}
	return request, outcome, nil
}
