//go:build !integration

package usecase

import (
	"regexp"
	"testing"
)

func TestGenerateCodeToken(t *testing.T) {
	pattern := regexp.MustCompile(`^CODE-[0-9A-F]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := generateCodeToken()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !pattern.MatchString(tok) {
			t.Fatalf("token %q does not match CODE-XXXXXXXX", tok)
		}
		seen[tok] = true
	}
	// 1000 draws from a 2^32 space should essentially never collide.
	if len(seen) < 990 {
		t.Errorf("suspiciously many collisions: %d distinct of 1000", len(seen))
	}
}
