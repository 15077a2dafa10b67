package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DartonStaker/appapost/internal/ai"
	"github.com/DartonStaker/appapost/internal/dispatch"
	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/internal/queue"
	"github.com/DartonStaker/appapost/internal/store"
	"github.com/DartonStaker/appapost/pkg/llm"
)

type stubGenerator struct {
	result ai.GenerationResult
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, item ai.ContentItem, platforms []policy.Platform) (ai.GenerationResult, error) {
	return s.result, s.err
}

type stubAccounts struct {
	accounts map[policy.Platform]*store.Account
}

func (s *stubAccounts) GetActive(ctx context.Context, userID string, platform policy.Platform) (*store.Account, error) {
	if acc, ok := s.accounts[platform]; ok {
		return acc, nil
	}
	return nil, store.ErrAccountNotFound
}

type stubVariants struct {
	variants map[policy.Platform]*store.StoredVariant
}

func (s *stubVariants) GetSelected(ctx context.Context, postID string, platform policy.Platform) (*store.StoredVariant, error) {
	if v, ok := s.variants[platform]; ok {
		return v, nil
	}
	return nil, store.ErrVariantNotFound
}

type stubAttempts struct {
	recorded []dispatch.PostAttempt
}

func (s *stubAttempts) Record(ctx context.Context, attempt dispatch.PostAttempt) error {
	s.recorded = append(s.recorded, attempt)
	return nil
}

func (s *stubAttempts) LastPostedAt(ctx context.Context, userID string, platform policy.Platform) (*time.Time, error) {
	return nil, nil
}

type stubOllama struct {
	status llm.OllamaStatus
	err    error
}

func (s *stubOllama) Status(ctx context.Context) (llm.OllamaStatus, error) {
	return s.status, s.err
}

type okAdapter struct {
	platform policy.Platform
}

func (a *okAdapter) Platform() policy.Platform { return a.platform }

func (a *okAdapter) Publish(ctx context.Context, cred dispatch.Credential, text string, mediaURLs []string, extras map[string]string) (string, error) {
	return "https://" + string(a.platform) + ".example/post/1", nil
}

func newTestRouter(cfg Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	New(cfg).Register(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateCaptionsLegacyKeys(t *testing.T) {
	gen := &stubGenerator{result: ai.GenerationResult{
		Variants: map[policy.Platform][]ai.Variant{
			policy.X: {{Text: "hello", CharLimit: 280}, {Text: "hi", CharLimit: 280}, {Text: "hey", CharLimit: 280}},
		},
	}}
	router := newTestRouter(Config{Generator: gen, Ollama: &stubOllama{}})

	w := doJSON(t, router, http.MethodPost, "/api/ai/generate", gin.H{
		"title":     "Braai Master Tee",
		"kind":      "product",
		"platforms": []string{"twitter"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Variants       map[string][]ai.Variant `json:"variants"`
		VisionDegraded bool                    `json:"vision_degraded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Variants["x"]) != 3 || len(resp.Variants["twitter"]) != 3 {
		t.Fatalf("expected both alias keys populated, got %v", resp.Variants)
	}
}

func TestGenerateCaptionsRejectsUnknownPlatform(t *testing.T) {
	router := newTestRouter(Config{Generator: &stubGenerator{}, Ollama: &stubOllama{}})

	w := doJSON(t, router, http.MethodPost, "/api/ai/generate", gin.H{
		"title":     "t",
		"platforms": []string{"myspace"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAutoPostNowPartialFailure(t *testing.T) {
	d := dispatch.NewDispatcher(dispatch.DispatcherConfig{Adapters: []dispatch.Adapter{
		&okAdapter{platform: policy.X},
	}})
	attempts := &stubAttempts{}
	router := newTestRouter(Config{
		Generator:  &stubGenerator{},
		Dispatcher: d,
		Accounts: &stubAccounts{accounts: map[policy.Platform]*store.Account{
			policy.X: {AccessToken: "tok"},
		}},
		Variants: &stubVariants{variants: map[policy.Platform]*store.StoredVariant{
			policy.X:         {ID: "v1", Variant: ai.Variant{Text: "hello", CharLimit: 280}},
			policy.Instagram: {ID: "v2", Variant: ai.Variant{Text: "hello insta", CharLimit: 2200}},
		}},
		Attempts: attempts,
		Queue:    queue.NewMemoryStore(),
		Tracker:  dispatch.NewRateTracker(),
		Ollama:   &stubOllama{},
	})

	w := doJSON(t, router, http.MethodPost, "/api/post/auto", gin.H{
		"user_id":   "user-1",
		"post_id":   "post-1",
		"platforms": []string{"x", "instagram"},
		"post_now":  true,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Message      string                 `json:"message"`
		SuccessCount int                    `json:"success_count"`
		Results      []dispatch.PostAttempt `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Posted to 1/2 platforms" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	// Instagram has no linked account, so it fails without an API call.
	for _, r := range resp.Results {
		if r.Platform == policy.Instagram && r.Error != dispatch.ErrAccountNotConnected {
			t.Fatalf("expected account-not-connected, got %+v", r)
		}
	}
	if len(attempts.recorded) != 2 {
		t.Fatalf("expected both attempts recorded, got %d", len(attempts.recorded))
	}
}

func TestAutoPostQueuedPath(t *testing.T) {
	qs := queue.NewMemoryStore()
	router := newTestRouter(Config{
		Generator:  &stubGenerator{},
		Dispatcher: dispatch.NewDispatcher(dispatch.DispatcherConfig{}),
		Accounts:   &stubAccounts{},
		Variants: &stubVariants{variants: map[policy.Platform]*store.StoredVariant{
			policy.TikTok: {ID: "v1", Variant: ai.Variant{Text: "dance", CharLimit: 150}},
		}},
		Attempts: &stubAttempts{},
		Queue:    qs,
		Ollama:   &stubOllama{},
	})

	w := doJSON(t, router, http.MethodPost, "/api/post/auto", gin.H{
		"user_id":   "user-1",
		"post_id":   "post-1",
		"platforms": []string{"tiktok"},
		"post_now":  false,
	})

	if w.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if n, _ := qs.Len(context.Background()); n != 1 {
		t.Fatalf("expected 1 queued job, got %d", n)
	}
}

func TestOllamaStatusEndpoint(t *testing.T) {
	router := newTestRouter(Config{
		Generator: &stubGenerator{},
		Ollama: &stubOllama{status: llm.OllamaStatus{
			Running:        true,
			Model:          "qwen3-vl:2b",
			ModelAvailable: true,
		}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ollama/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var status llm.OllamaStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Running || !status.ModelAvailable {
		t.Fatalf("unexpected status %+v", status)
	}
}
