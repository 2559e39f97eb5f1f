package ids

import (
	"strings"
	"testing"
)

func TestNewIsSortedAndValid(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		if !Valid(next) {
			t.Fatalf("New produced invalid id %q", next)
		}
		prev = next
	}
}

func TestNormalize(t *testing.T) {
	id := New()
	got, ok := Normalize(" " + strings.ToLower(id) + " ")
	if !ok || got != id {
		t.Fatalf("Normalize lower-case: got %q ok=%v, want %q", got, ok, id)
	}
	for _, bad := range []string{"", "42", "not-an-id", strings.Repeat("Z", 26)} {
		if _, ok := Normalize(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
		if Valid(bad) {
			t.Fatalf("Valid(%q) = true", bad)
		}
	}
}
