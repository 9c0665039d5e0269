package audit

import (
	"testing"
	"time"
)

func TestChainHash_Deterministic(t *testing.T) {
	inv := []byte(`{"tool":"list_hosts"}`)
	out := []byte(`{"status":"ok"}`)

	if ChainHash("abc", inv, out) != ChainHash("abc", inv, out) {
		t.Error("non-deterministic chain hash")
	}
	if ChainHash("", []byte("a"), nil) == ChainHash("", []byte("b"), nil) {
		t.Error("different invocations should produce different hashes")
	}
	if ChainHash("p1", inv, out) == ChainHash("p2", inv, out) {
		t.Error("the previous hash must feed the chain")
	}
}

func TestVerifyChain(t *testing.T) {
	i1, o1 := []byte(`{"n":1}`), []byte(`{"status":"ok"}`)
	h1 := ChainHash("", i1, o1)
	i2, o2 := []byte(`{"n":2}`), []byte(`{"status":"error"}`)
	h2 := ChainHash(h1, i2, o2)

	links := []Link{
		{ID: "a", Hash: h1, CanonInvocation: i1, CanonOutcome: o1},
		{ID: "b", Hash: h2, CanonInvocation: i2, CanonOutcome: o2},
	}
	if err := VerifyChain(links); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	links[1].CanonOutcome = []byte(`{"status":"ok"}`)
	if err := VerifyChain(links); err == nil {
		t.Fatal("expected tampered outcome to break the chain")
	}
}

func TestInvocation_CanonicalSplitsOutcome(t *testing.T) {
	inv := &Invocation{
		ID:        "7f0c6f0e-3d1c-4d7a-9a51-7c3c1c4e8f00",
		Caller:    "stdio",
		Tool:      "network_list_devices",
		Arguments: []byte(`{"site_id":"s1"}`),
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Outcome:   Outcome{Status: StatusOK, ResultKind: "list", DurationMS: 12},
	}
	req, out, err := inv.canonical()
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	wantReq := `{"arguments":{"site_id":"s1"},"caller":"stdio","id":"7f0c6f0e-3d1c-4d7a-9a51-7c3c1c4e8f00","started_at":"2026-01-02T03:04:05Z","tool":"network_list_devices"}`
	if string(req) != wantReq {
		t.Errorf("unexpected invocation form %s", req)
	}
	if string(out) != `{"duration_ms":12,"result_kind":"list","status":"ok"}` {
		t.Errorf("unexpected outcome form %s", out)
	}
}

func TestVerifyChainFrom_Continuation(t *testing.T) {
	i1, o1 := []byte(`{"n":1}`), []byte(`{"status":"ok"}`)
	h1 := ChainHash("", i1, o1)
	i2, o2 := []byte(`{"n":2}`), []byte(`{"status":"ok"}`)
	h2 := ChainHash(h1, i2, o2)

	tail := []Link{{Seq: 2, ID: "b", Hash: h2, PrevHash: h1, CanonInvocation: i2, CanonOutcome: o2}}
	if err := VerifyChainFrom(h1, tail); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := VerifyChain(tail); err == nil {
		t.Fatal("a tail must not verify as a chain start")
	}
}
