package domain

import (
	"strings"
	"testing"
)

func TestPKCEAlphabet(t *testing.T) {
	if len(PKCEAlphabet) != 66 {
		t.Fatalf("expected 66 characters, got %d", len(PKCEAlphabet))
	}

	seen := make(map[rune]bool)
	for _, r := range PKCEAlphabet {
		if seen[r] {
			t.Errorf("duplicate character %q", r)
		}
		seen[r] = true
	}

	for _, r := range "-._~" {
		if !strings.ContainsRune(PKCEAlphabet, r) {
			t.Errorf("missing unreserved character %q", r)
		}
	}
}
