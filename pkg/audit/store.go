package audit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	seq              BIGSERIAL PRIMARY KEY,
	invocation_id    UUID        NOT NULL UNIQUE,
	caller           TEXT        NOT NULL,
	tool             TEXT        NOT NULL,
	arguments        JSONB,
	started_at       TIMESTAMPTZ NOT NULL,
	status           TEXT        NOT NULL,
	result_kind      TEXT        NOT NULL DEFAULT '',
	error_kind       TEXT        NOT NULL DEFAULT '',
	status_code      INTEGER     NOT NULL DEFAULT 0,
	message          TEXT        NOT NULL DEFAULT '',
	trace_id         TEXT        NOT NULL DEFAULT '',
	duration_ms      BIGINT      NOT NULL,
	canon_invocation BYTEA       NOT NULL,
	canon_outcome    BYTEA       NOT NULL,
	hash             TEXT        NOT NULL,
	prev_hash        TEXT        NOT NULL
);
CREATE INDEX IF NOT EXISTS tool_invocations_caller_seq ON tool_invocations (caller, seq);

CREATE TABLE IF NOT EXISTS audit_archive_checkpoints (
	caller         TEXT        PRIMARY KEY,
	archived_until TIMESTAMPTZ NOT NULL,
	last_hash      TEXT        NOT NULL,
	last_seq       BIGINT      NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Store appends invocations to Postgres, one hash chain per caller.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the table if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("audit.Migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ──────────────────────────────────────────────────────────────────────────────
// Write path
// ──────────────────────────────────────────────────────────────────────────────

// Append inserts inv at the head of its caller's chain. A per-caller advisory
// lock serialises appends so concurrent sessions cannot fork the chain.
func (s *Store) Append(ctx context.Context, inv *Invocation) error {
	canonInv, canonOut, err := inv.canonical()
	if err != nil {
		return fmt.Errorf("audit.Append: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("audit.Append begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", callerLockID(inv.Caller)); err != nil {
		return fmt.Errorf("audit.Append advisory lock: %w", err)
	}

	prev, err := lastHash(ctx, tx, inv.Caller)
	if err != nil {
		return fmt.Errorf("audit.Append last hash: %w", err)
	}
	inv.PrevHash = prev
	inv.Hash = ChainHash(prev, canonInv, canonOut)

	var args any
	if len(inv.Arguments) > 0 {
		args = string(inv.Arguments)
	}
	o := inv.Outcome
	_, err = tx.Exec(ctx, `
		INSERT INTO tool_invocations (
			invocation_id, caller, tool, arguments, started_at,
			status, result_kind, error_kind, status_code, message, trace_id, duration_ms,
			canon_invocation, canon_outcome, hash, prev_hash
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,$11,$12,
			$13,$14,$15,$16
		)`,
		inv.ID, inv.Caller, inv.Tool, args, inv.StartedAt,
		o.Status, o.ResultKind, o.ErrorKind, o.StatusCode, o.Message, o.TraceID, o.DurationMS,
		canonInv, canonOut, inv.Hash, inv.PrevHash,
	)
	if err != nil {
		return fmt.Errorf("audit.Append insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("audit.Append commit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read path
// ──────────────────────────────────────────────────────────────────────────────

// LinksAfter returns a caller's links with seq greater than afterSeq, oldest
// first, ready for VerifyChainFrom.
func (s *Store) LinksAfter(ctx context.Context, caller string, afterSeq int64) ([]Link, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, invocation_id::text, started_at, hash, prev_hash, canon_invocation, canon_outcome
		FROM tool_invocations
		WHERE caller = $1 AND seq > $2
		ORDER BY seq ASC`, caller, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("audit.LinksAfter: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.Seq, &l.ID, &l.StartedAt, &l.Hash, &l.PrevHash, &l.CanonInvocation, &l.CanonOutcome); err != nil {
			return nil, fmt.Errorf("audit.LinksAfter scan: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit.LinksAfter iteration: %w", err)
	}
	return links, nil
}

// Callers lists every caller with at least one recorded invocation.
func (s *Store) Callers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT caller FROM tool_invocations ORDER BY caller`)
	if err != nil {
		return nil, fmt.Errorf("audit.Callers: %w", err)
	}
	defer rows.Close()

	var callers []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("audit.Callers scan: %w", err)
		}
		callers = append(callers, c)
	}
	return callers, rows.Err()
}

// ──────────────────────────────────────────────────────────────────────────────
// Archive checkpoints
// ──────────────────────────────────────────────────────────────────────────────

// ArchiveCheckpoint returns where the last archive run stopped for caller.
// A caller never archived yields zero values.
func (s *Store) ArchiveCheckpoint(ctx context.Context, caller string) (until time.Time, hash string, seq int64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT archived_until, last_hash, last_seq
		FROM audit_archive_checkpoints WHERE caller = $1`, caller).Scan(&until, &hash, &seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, "", 0, nil
	}
	if err != nil {
		return time.Time{}, "", 0, fmt.Errorf("audit.ArchiveCheckpoint: %w", err)
	}
	return until, hash, seq, nil
}

func (s *Store) SaveArchiveCheckpoint(ctx context.Context, caller string, until time.Time, hash string, seq int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_archive_checkpoints (caller, archived_until, last_hash, last_seq, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (caller) DO UPDATE SET
			archived_until = EXCLUDED.archived_until,
			last_hash      = EXCLUDED.last_hash,
			last_seq       = EXCLUDED.last_seq,
			updated_at     = NOW()`, caller, until, hash, seq)
	if err != nil {
		return fmt.Errorf("audit.SaveArchiveCheckpoint: %w", err)
	}
	return nil
}

func lastHash(ctx context.Context, tx pgx.Tx, caller string) (string, error) {
	var h string
	err := tx.QueryRow(ctx, `
		SELECT hash FROM tool_invocations
		WHERE caller = $1
		ORDER BY seq DESC LIMIT 1`, caller).Scan(&h)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return h, err
}

// callerLockID maps a caller to a deterministic advisory-lock key.
func callerLockID(caller string) int64 {
	h := fnv.New64a()
	h.Write([]byte("tool_invocations:" + caller))
	return int64(binary.BigEndian.Uint64(h.Sum(nil)))
}
