package hashid

import "testing"

func TestNewProducesDistinctLowercaseHexTokens(t *testing.T) {
	a := New()
	b := New()

	if a == b {
		t.Error("two calls to New() produced the same token")
	}
	if len(a) != 32 {
		t.Errorf("len(New()) = %d, want 32", len(a))
	}
	for _, r := range a {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHex {
			t.Fatalf("token %q contains non-lowercase-hex rune %q", a, r)
		}
	}
}
