package auth

import "testing"

func TestNewKeyStore(t *testing.T) {
	ks := NewKeyStore("desktop:sk-abc,ops:sk-def")

	tests := []struct {
		key    string
		caller string
		ok     bool
	}{
		{"sk-abc", "desktop", true},
		{"sk-def", "ops", true},
		{"sk-unknown", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		caller, ok := ks.Lookup(tt.key)
		if ok != tt.ok {
			t.Errorf("Lookup(%q) ok=%v, want %v", tt.key, ok, tt.ok)
		}
		if caller != tt.caller {
			t.Errorf("Lookup(%q) caller=%q, want %q", tt.key, caller, tt.caller)
		}
	}
	if ks.Len() != 2 {
		t.Errorf("expected 2 keys, got %d", ks.Len())
	}
}

func TestNewKeyStore_Empty(t *testing.T) {
	ks := NewKeyStore("")
	if _, ok := ks.Lookup("anything"); ok {
		t.Error("empty store should not match")
	}
	if ks.Len() != 0 {
		t.Errorf("expected 0 keys, got %d", ks.Len())
	}
}

func TestNewKeyStore_Malformed(t *testing.T) {
	ks := NewKeyStore(" desktop : sk-abc , no-colon, :sk-orphan, ops: ")
	if caller, ok := ks.Lookup("sk-abc"); !ok || caller != "desktop" {
		t.Error("should handle whitespace in key pairs")
	}
	if ks.Len() != 1 {
		t.Errorf("malformed pairs must be skipped, got %d keys", ks.Len())
	}
}
