// Package gateway contains the provider resilience layer: the quota-aware
// retry loop over a provider's credential pool and the registry that caches
// one resilient provider per configured name.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelgate/modelgate/internal/adapter"
	"github.com/modelgate/modelgate/internal/domain"
	"github.com/modelgate/modelgate/internal/metrics"
	"github.com/modelgate/modelgate/internal/security"
)

// ResilientProvider wraps one adapter with a key rotator so a request
// eventually reaches a working credential, or fails with a complete picture
// of why. It is the only mutable shared state reachable by concurrent
// callers targeting the same provider name; the rotator serializes cursor
// advancement, everything else here is immutable after construction.
type ResilientProvider struct {
	name    string
	adapter adapter.Adapter
	rotator *domain.KeyRotator
	logger  *slog.Logger
}

// NewResilientProvider builds a resilient provider over the given credential
// pool. Fails with ErrEmptyCredentialPool when the pool is empty.
func NewResilientProvider(name string, ad adapter.Adapter, keys []string, logger *slog.Logger) (*ResilientProvider, error) {
	rotator, err := domain.NewKeyRotator(keys)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ResilientProvider{
		name:    name,
		adapter: ad,
		rotator: rotator,
		logger:  logger,
	}, nil
}

// Name returns the configured provider name.
func (p *ResilientProvider) Name() string { return p.name }

// AdapterKind returns the adapter variant behind this provider.
func (p *ResilientProvider) AdapterKind() string { return p.adapter.Name() }

// KeyCount returns the credential pool size.
func (p *ResilientProvider) KeyCount() int { return p.rotator.Count() }

// Send drives the retry loop: every credential is tried at most once per
// call. A success returns immediately. A transient failure (quota,
// rate-limit, 5xx-class) is recorded and the next credential is tried. A
// fatal failure propagates immediately without touching the remaining
// credentials. When the whole pool fails transiently the caller gets
// ErrAllCredentialsExhausted with the last transient error attached.
//
// The upstream call is the sole suspension point; cancellation propagates
// through ctx, the loop imposes no timeout of its own.
func (p *ResilientProvider) Send(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	budget := p.rotator.Count()
	var lastErr error

	for attempt := 1; attempt <= budget; attempt++ {
		credential := p.rotator.Next()

		resp, err := p.adapter.Call(ctx, credential, req)
		if err == nil {
			p.logger.Info("request successful",
				slog.String("provider", p.name),
				slog.Int("attempt", attempt),
				slog.String("model", resp.Model),
			)
			metrics.ObserveAttempts(p.name, attempt)
			return resp, nil
		}

		if p.adapter.Classify(err) == adapter.ClassTransient {
			p.logger.Warn("transient upstream error, rotating credential",
				slog.String("provider", p.name),
				slog.Int("attempt", attempt),
				slog.String("credential", security.MaskKey(credential)),
				slog.String("error", err.Error()),
			)
			lastErr = err
			continue
		}

		p.logger.Error("fatal upstream error",
			slog.String("provider", p.name),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		metrics.ObserveAttempts(p.name, attempt)
		return domain.ChatResponse{}, err
	}

	p.logger.Error("credential pool exhausted",
		slog.String("provider", p.name),
		slog.Int("attempts", budget),
		slog.String("last_error", lastErr.Error()),
	)
	metrics.ObserveAttempts(p.name, budget)

	return domain.ChatResponse{}, fmt.Errorf("provider %s: %w: %w", p.name, domain.ErrAllCredentialsExhausted, lastErr)
}

// Usage delegates a usage probe to the adapter with the current credential —
// a probe must not perturb rotation state. When no credential has ever been
// drawn there is no rotation state to perturb, so the first one is drawn.
// Returns (nil, nil) when the upstream has no usage reporting.
func (p *ResilientProvider) Usage(ctx context.Context) (*adapter.UsageInfo, error) {
	credential, err := p.rotator.Current()
	if err != nil {
		credential = p.rotator.Next()
	}
	return p.adapter.Usage(ctx, credential)
}
