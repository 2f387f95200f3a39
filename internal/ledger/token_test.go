package ledger_test

import (
	"regexp"
	"testing"

	"github.com/edumint/edumint/internal/ledger"
)

func TestTokenSigner_RoundTrip(t *testing.T) {
	s := ledger.NewTokenSigner("secret-a")

	value, err := s.NewValue()
	if err != nil {
		t.Fatalf("new value: %v", err)
	}
	if len(value) != 32 { // 16 bytes hex-encoded
		t.Fatalf("expected 128-bit hex value, got %q", value)
	}

	sig := s.Sign(value)
	if !s.Verify(value, sig) {
		t.Fatalf("signature does not verify")
	}
	if s.Verify(value, sig[:len(sig)-1]+"0") {
		t.Fatalf("tampered signature verified")
	}
	if s.Verify(value+"x", sig) {
		t.Fatalf("tampered value verified")
	}

	other := ledger.NewTokenSigner("secret-b")
	if other.Verify(value, sig) {
		t.Fatalf("signature verified under a different secret")
	}
}

func TestNewKeyCode_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^EDU-[A-Z2-9]{4}-[A-Z2-9]{4}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := ledger.NewKeyCode()
		if err != nil {
			t.Fatalf("new key code: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("bad key code format: %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate key code in 50 draws: %q", code)
		}
		seen[code] = true
	}
}
