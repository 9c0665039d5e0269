package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ChainHash links an invocation to its predecessor in the caller's chain.
//
//	hash = SHA-256( prevHash || canonicalInvocation || canonicalOutcome )
func ChainHash(prevHash string, canonInvocation, canonOutcome []byte) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(canonInvocation)
	h.Write(canonOutcome)
	return hex.EncodeToString(h.Sum(nil))
}

// Link is the part of a stored row needed to re-derive its hash.
type Link struct {
	Seq             int64     `json:"seq"`
	ID              string    `json:"invocation_id"`
	StartedAt       time.Time `json:"started_at"`
	Hash            string    `json:"hash"`
	PrevHash        string    `json:"prev_hash"`
	CanonInvocation []byte    `json:"canon_invocation"`
	CanonOutcome    []byte    `json:"canon_outcome"`
}

// VerifyChain recomputes every hash of a chain read from its first link.
func VerifyChain(links []Link) error {
	return VerifyChainFrom("", links)
}

// VerifyChainFrom verifies links that continue a chain whose last known hash
// is prevHash, and reports the first break.
func VerifyChainFrom(prevHash string, links []Link) error {
	prev := prevHash
	for i, l := range links {
		want := ChainHash(prev, l.CanonInvocation, l.CanonOutcome)
		if l.Hash != want {
			return fmt.Errorf("audit chain broken at index %d (invocation %s): expected %s, got %s",
				i, l.ID, want, l.Hash)
		}
		prev = l.Hash
	}
	return nil
}
