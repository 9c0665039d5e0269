// Package archiver ships verified slices of the audit chain to object storage,
// one bundle per caller per run, and advances a checkpoint so the next run
// continues where this one stopped.
package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frousselet/unifi-mcp/pkg/audit"
)

type ChainStore interface {
	ArchiveCheckpoint(ctx context.Context, caller string) (time.Time, string, int64, error)
	LinksAfter(ctx context.Context, caller string, afterSeq int64) ([]audit.Link, error)
	SaveArchiveCheckpoint(ctx context.Context, caller string, until time.Time, hash string, seq int64) error
	Callers(ctx context.Context) ([]string, error)
}

type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

type Service struct {
	store    ChainStore
	uploader Uploader
	now      func() time.Time
}

func New(store ChainStore, uploader Uploader) *Service {
	return &Service{store: store, uploader: uploader, now: func() time.Time { return time.Now().UTC() }}
}

// Bundle is the object written for one archive run of one caller.
type Bundle struct {
	Caller       string       `json:"caller"`
	CreatedAt    time.Time    `json:"created_at"`
	LinkCount    int          `json:"link_count"`
	PrevHash     string       `json:"prev_hash"`
	Checkpoint   string       `json:"checkpoint_hash"`
	Since        time.Time    `json:"since"`
	Until        time.Time    `json:"until"`
	ChainRecords []audit.Link `json:"chain_records"`
}

// ArchiveCaller uploads everything recorded for caller since the last
// checkpoint. It returns the object key, or "" when there was nothing new.
// A chain that fails verification is not uploaded and the checkpoint stays.
func (s *Service) ArchiveCaller(ctx context.Context, caller string) (string, error) {
	since, lastHash, lastSeq, err := s.store.ArchiveCheckpoint(ctx, caller)
	if err != nil {
		return "", err
	}
	links, err := s.store.LinksAfter(ctx, caller, lastSeq)
	if err != nil {
		return "", err
	}
	if len(links) == 0 {
		return "", nil
	}
	if err := audit.VerifyChainFrom(lastHash, links); err != nil {
		return "", fmt.Errorf("verify chain: %w", err)
	}

	last := links[len(links)-1]
	now := s.now()
	bundle := Bundle{
		Caller:       caller,
		CreatedAt:    now,
		LinkCount:    len(links),
		PrevHash:     lastHash,
		Checkpoint:   last.Hash,
		Since:        since,
		Until:        last.StartedAt,
		ChainRecords: links,
	}
	body, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}

	key := fmt.Sprintf("audit/%s/%04d/%02d/%02d/%s.json", caller, now.Year(), now.Month(), now.Day(), last.Hash)
	if err := s.uploader.Upload(ctx, key, body); err != nil {
		return "", err
	}
	if err := s.store.SaveArchiveCheckpoint(ctx, caller, last.StartedAt, last.Hash, last.Seq); err != nil {
		return "", err
	}
	return key, nil
}

// ArchiveAll runs ArchiveCaller for every caller and returns the keys written.
// A failing caller does not stop the others; failures are reported through
// onErr.
func (s *Service) ArchiveAll(ctx context.Context, onErr func(caller string, err error)) ([]string, error) {
	callers, err := s.store.Callers(ctx)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, caller := range callers {
		key, err := s.ArchiveCaller(ctx, caller)
		if err != nil {
			if onErr != nil {
				onErr(caller, err)
			}
			continue
		}
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
