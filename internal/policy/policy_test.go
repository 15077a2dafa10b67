package policy

import (
	"testing"
	"time"
)

func TestNormalizeFoldsLegacyAlias(t *testing.T) {
	p, ok := Normalize("twitter")
	if !ok || p != X {
		t.Fatalf("expected twitter to normalize to x, got %q ok=%v", p, ok)
	}
	p, ok = Normalize("Instagram")
	if !ok || p != Instagram {
		t.Fatalf("expected case-insensitive match, got %q ok=%v", p, ok)
	}
	if _, ok := Normalize("myspace"); ok {
		t.Fatal("expected unknown platform to be rejected")
	}
}

func TestEveryPlatformHasLimits(t *testing.T) {
	for _, p := range All() {
		if LimitFor(p) <= 0 {
			t.Fatalf("%s: missing char limit", p)
		}
		if len(FormatsFor(p)) == 0 {
			t.Fatalf("%s: missing formats", p)
		}
		rl := RateLimitFor(p)
		if rl.PerHour <= 0 || rl.PerDay <= 0 {
			t.Fatalf("%s: missing rate limit", p)
		}
	}
}

func TestLegacyNames(t *testing.T) {
	names := LegacyNames(X)
	if len(names) != 2 || names[0] != "x" || names[1] != "twitter" {
		t.Fatalf("unexpected names %v", names)
	}
	if got := LegacyNames(Instagram); len(got) != 1 {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestMinInterval(t *testing.T) {
	if got := MinInterval(TikTok); got != 360*time.Second {
		t.Fatalf("tiktok: expected 360s, got %s", got)
	}
	if got := MinInterval(X); got != time.Hour/300 {
		t.Fatalf("x: expected %s, got %s", time.Hour/300, got)
	}
}

func TestCoerceFormat(t *testing.T) {
	if got := CoerceFormat(X, FormatText); got != FormatText {
		t.Fatalf("expected text kept, got %q", got)
	}
	if got := CoerceFormat(TikTok, FormatText); got != FormatVideo {
		t.Fatalf("expected tiktok to coerce to video, got %q", got)
	}
	if got := CoerceFormat(X, FormatCarousel); got != FormatText {
		t.Fatalf("expected carousel to coerce to first allowed, got %q", got)
	}
}
