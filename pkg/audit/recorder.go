package audit

import (
	"context"
	"log/slog"
)

type appender interface {
	Append(ctx context.Context, inv *Invocation) error
}

// Recorder logs every invocation and, when a store is present, appends it
// to the hash chain.
type Recorder struct {
	store appender
	log   *slog.Logger
}

// NewRecorder builds a recorder. store may be nil for log-only auditing.
func NewRecorder(log *slog.Logger, store *Store) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{log: log}
	if store != nil {
		r.store = store
	}
	return r
}

// Record persists and logs inv. A storage failure is logged and returned;
// the log line is written either way.
func (r *Recorder) Record(ctx context.Context, inv *Invocation) error {
	var err error
	if r.store != nil {
		if err = r.store.Append(ctx, inv); err != nil {
			r.log.ErrorContext(ctx, "audit append failed",
				"invocation_id", inv.ID,
				"tool", inv.Tool,
				"error", err,
			)
		}
	}

	attrs := []any{
		"invocation_id", inv.ID,
		"caller", inv.Caller,
		"tool", inv.Tool,
		"status", inv.Outcome.Status,
		"duration_ms", inv.Outcome.DurationMS,
	}
	if inv.Outcome.Status == StatusError {
		attrs = append(attrs,
			"error_kind", inv.Outcome.ErrorKind,
			"status_code", inv.Outcome.StatusCode,
		)
	} else {
		attrs = append(attrs, "result_kind", inv.Outcome.ResultKind)
	}
	if inv.Hash != "" {
		attrs = append(attrs, "hash", inv.Hash)
	}
	r.log.InfoContext(ctx, "tool invocation", attrs...)
	return err
}
