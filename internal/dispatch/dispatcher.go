package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/logging"
)

const defaultPublishTimeout = 30 * time.Second

// ErrAccountNotConnected is the error string recorded when a request
// has no usable credential. It reaches end users verbatim.
const ErrAccountNotConnected = "account not connected"

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Adapters []Adapter
	Logger   logging.Logger

	// PublishTimeout bounds each adapter call.
	PublishTimeout time.Duration

	// OnAttempt is an optional metrics hook invoked once per request
	// with the terminal status.
	OnAttempt func(platform, status string, elapsed time.Duration)
}

// Dispatcher fans a batch of publish requests out across platform
// adapters. Requests are independent: one platform failing, or even
// panicking, never aborts its siblings.
type Dispatcher struct {
	adapters  map[policy.Platform]Adapter
	logger    logging.Logger
	timeout   time.Duration
	onAttempt func(platform, status string, elapsed time.Duration)
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	adapters := make(map[policy.Platform]Adapter, len(cfg.Adapters))
	for _, a := range cfg.Adapters {
		adapters[a.Platform()] = a
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Dispatcher{
		adapters:  adapters,
		logger:    cfg.Logger,
		timeout:   timeout,
		onAttempt: cfg.OnAttempt,
	}
}

// DispatchAll executes every request concurrently and returns one
// result per request, in input order. It never returns an error;
// callers inspect each attempt's Status and Error.
func (d *Dispatcher) DispatchAll(ctx context.Context, requests []PostAttempt) []PostAttempt {
	results := make([]PostAttempt, len(requests))

	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.dispatchOne(ctx, requests[i])
		}(i)
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, req PostAttempt) (result PostAttempt) {
	start := time.Now()
	result = req

	defer func() {
		if r := recover(); r != nil {
			result.Status = StatusFailed
			result.Error = fmt.Sprintf("adapter panic: %v", r)
			if d.logger != nil {
				d.logger.WithFields(logging.Fields{
					"platform": req.Platform,
					"panic":    r,
				}).Error("Platform adapter panicked")
			}
		}
		d.emit(string(req.Platform), string(result.Status), time.Since(start))
	}()

	if req.Credential == nil || req.Credential.AccessToken == "" {
		result.Status = StatusFailed
		result.Error = ErrAccountNotConnected
		return result
	}

	adapter, ok := d.adapters[req.Platform]
	if !ok {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("no adapter for platform %q", req.Platform)
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	postURL, err := adapter.Publish(callCtx, *req.Credential, req.Variant.Text, req.Variant.MediaURLs, req.Extras)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		if d.logger != nil {
			d.logger.WithError(err).WithField("platform", req.Platform).Warn("Publish failed")
		}
		return result
	}

	now := time.Now().UTC()
	result.Status = StatusPosted
	result.PostURL = postURL
	result.PostedAt = &now
	result.Error = ""
	return result
}

func (d *Dispatcher) emit(platform, status string, elapsed time.Duration) {
	if d.onAttempt != nil {
		d.onAttempt(platform, status, elapsed)
	}
}

// SuccessCount counts posted attempts in a result batch.
func SuccessCount(results []PostAttempt) int {
	count := 0
	for _, r := range results {
		if r.Status == StatusPosted {
			count++
		}
	}
	return count
}

// Summary renders the caller-facing outcome line.
func Summary(results []PostAttempt) string {
	return fmt.Sprintf("Posted to %d/%d platforms", SuccessCount(results), len(results))
}
