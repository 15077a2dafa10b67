package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DartonStaker/appapost/internal/ai"
	"github.com/DartonStaker/appapost/internal/policy"
)

type stubAdapter struct {
	platform policy.Platform
	postURL  string
	err      error
	panics   bool
	calls    int
}

func (s *stubAdapter) Platform() policy.Platform { return s.platform }

func (s *stubAdapter) Publish(ctx context.Context, cred Credential, text string, mediaURLs []string, extras map[string]string) (string, error) {
	s.calls++
	if s.panics {
		panic("adapter exploded")
	}
	if s.err != nil {
		return "", s.err
	}
	return s.postURL, nil
}

func attemptFor(p policy.Platform) PostAttempt {
	return PostAttempt{
		PostID:     "post-1",
		Platform:   p,
		Variant:    ai.Variant{Text: "hello", CharLimit: policy.LimitFor(p)},
		Credential: &Credential{AccessToken: "tok"},
		Status:     StatusPending,
	}
}

func TestDispatchAllIsolatesFailures(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Adapters: []Adapter{
		&stubAdapter{platform: policy.X, postURL: "https://x.com/1"},
		&stubAdapter{platform: policy.Instagram, err: errors.New("token expired")},
		&stubAdapter{platform: policy.LinkedIn, postURL: "https://linkedin.com/3"},
	}})

	results := d.DispatchAll(context.Background(), []PostAttempt{
		attemptFor(policy.X),
		attemptFor(policy.Instagram),
		attemptFor(policy.LinkedIn),
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Status != StatusPosted || results[0].PostURL != "https://x.com/1" {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if results[1].Status != StatusFailed || results[1].Error != "token expired" {
		t.Fatalf("expected verbatim adapter error, got %+v", results[1])
	}
	if results[2].Status != StatusPosted {
		t.Fatalf("expected sibling unaffected, got %+v", results[2])
	}
	if SuccessCount(results) != 2 {
		t.Fatalf("expected 2 successes, got %d", SuccessCount(results))
	}
	if got := Summary(results); got != "Posted to 2/3 platforms" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestDispatchAllMissingCredential(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Adapters: []Adapter{
		&stubAdapter{platform: policy.X, postURL: "https://x.com/1"},
	}})

	req := attemptFor(policy.X)
	req.Credential = nil

	results := d.DispatchAll(context.Background(), []PostAttempt{req})
	if results[0].Status != StatusFailed || results[0].Error != ErrAccountNotConnected {
		t.Fatalf("expected account-not-connected failure, got %+v", results[0])
	}
}

func TestDispatchAllRecoversAdapterPanic(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Adapters: []Adapter{
		&stubAdapter{platform: policy.X, panics: true},
		&stubAdapter{platform: policy.LinkedIn, postURL: "https://linkedin.com/1"},
	}})

	results := d.DispatchAll(context.Background(), []PostAttempt{
		attemptFor(policy.X),
		attemptFor(policy.LinkedIn),
	})

	if results[0].Status != StatusFailed {
		t.Fatalf("expected panic converted to failure, got %+v", results[0])
	}
	if results[1].Status != StatusPosted {
		t.Fatalf("expected sibling to survive panic, got %+v", results[1])
	}
}

func TestDispatchAllRecordsPostedAt(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Adapters: []Adapter{
		&stubAdapter{platform: policy.X, postURL: "https://x.com/1"},
	}})

	before := time.Now().UTC()
	results := d.DispatchAll(context.Background(), []PostAttempt{attemptFor(policy.X)})
	if results[0].PostedAt == nil || results[0].PostedAt.Before(before) {
		t.Fatalf("expected posted timestamp, got %+v", results[0].PostedAt)
	}
}
