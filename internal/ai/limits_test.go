package ai

import (
	"strings"
	"testing"

	"github.com/DartonStaker/appapost/internal/policy"
)

func TestTruncateToLimitExactBoundary(t *testing.T) {
	text := strings.Repeat("a", 300)
	got := truncateToLimit(text, 280)
	if n := len([]rune(got)); n != 280 {
		t.Fatalf("expected exactly 280 runes, got %d", n)
	}
	if !strings.HasSuffix(got, policy.TruncationMarker) {
		t.Fatal("expected marker suffix")
	}
}

func TestTruncateToLimitShortTextUntouched(t *testing.T) {
	text := "short caption"
	if got := truncateToLimit(text, 280); got != text {
		t.Fatalf("expected untouched text, got %q", got)
	}
	exact := strings.Repeat("b", 280)
	if got := truncateToLimit(exact, 280); got != exact {
		t.Fatal("expected text at exactly the limit to be untouched")
	}
}

func TestTruncateToLimitAvoidsMidHashtagCut(t *testing.T) {
	text := strings.Repeat("a", 270) + " #supersummer"
	got := truncateToLimit(text, 280)
	if strings.Contains(got, "#super") && !strings.Contains(got, "#supersummer") {
		t.Fatalf("expected no partial hashtag, got %q", got)
	}
	if !strings.HasSuffix(got, policy.TruncationMarker) {
		t.Fatal("expected marker suffix")
	}
	if n := len([]rune(got)); n > 280 {
		t.Fatalf("expected at most 280 runes, got %d", n)
	}
}
