package llm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/jobforge/jobforge/internal/model"
)

// Router wraps every provider call with failure detection and fallback.
// Providers are tried in fixed priority order: a failing call is retried on
// the same provider up to the configured retry count, then the router fails
// over to the next provider. Failure counters are shared across concurrent
// workflows and updated atomically.
type Router struct {
	providers []Provider
	limiters  []*rate.Limiter // nil entry = unlimited
	failures  []atomic.Int64  // consecutive failures per provider
	retries   int             // same-provider retries before failover
}

// NewRouter creates a router over providers in priority order. rates carries
// the per-provider request rate (requests/second, 0 = unlimited) and may be
// nil or shorter than providers.
func NewRouter(providers []Provider, rates []float64, retries int) (*Router, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("router needs at least one provider")
	}
	if retries < 0 {
		retries = 0
	}
	limiters := make([]*rate.Limiter, len(providers))
	for i := range providers {
		if i < len(rates) && rates[i] > 0 {
			limiters[i] = rate.NewLimiter(rate.Limit(rates[i]), 1)
		}
	}
	return &Router{
		providers: providers,
		limiters:  limiters,
		failures:  make([]atomic.Int64, len(providers)),
		retries:   retries,
	}, nil
}

// RouterFromConfig wires a router from application configuration.
func RouterFromConfig(cfg *model.Config) (*Router, error) {
	providers, err := ProvidersFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	rates := make([]float64, len(cfg.Providers))
	for i, pc := range cfg.Providers {
		rates[i] = pc.RateRPS
	}
	return NewRouter(providers, rates, cfg.Budgets.ProviderRetries)
}

// Generate runs the request against the first provider that answers,
// returning the response and the name of the provider that produced it.
// When every provider is exhausted the last error is wrapped in
// model.ErrAllProvidersExhausted.
func (r *Router) Generate(ctx context.Context, req Request) (*Response, string, error) {
	var lastErr error

	for i, p := range r.providers {
		for attempt := 0; attempt <= r.retries; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, "", err
			}
			if lim := r.limiters[i]; lim != nil {
				if err := lim.Wait(ctx); err != nil {
					return nil, "", err
				}
			}

			resp, err := p.Generate(ctx, req)
			if err == nil {
				r.failures[i].Store(0)
				return resp, p.Name(), nil
			}
			// Caller cancellation is not a provider failure.
			if errors.Is(err, context.Canceled) {
				return nil, "", err
			}
			r.failures[i].Add(1)
			lastErr = err
		}
	}

	return nil, "", fmt.Errorf("%w: %v", model.ErrAllProvidersExhausted, lastErr)
}

// ConsecutiveFailures reports the current failure streak for the provider at
// the given priority index.
func (r *Router) ConsecutiveFailures(i int) int64 {
	if i < 0 || i >= len(r.failures) {
		return 0
	}
	return r.failures[i].Load()
}

// Providers returns the provider names in priority order.
func (r *Router) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}
