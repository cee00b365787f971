// Package gateway contains the provider resilience layer.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/modelgate/modelgate/internal/adapter"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/domain"
)

// adapterConstructor builds one adapter variant from a provider descriptor.
type adapterConstructor func(desc config.ProviderDescriptor) adapter.Adapter

// adapterKinds is the closed, compile-time-checked set of adapter variants.
// Configuration selects by name; unknown names fail fast at first use, no
// dynamic loading involved.
var adapterKinds = map[string]adapterConstructor{
	"openai": func(desc config.ProviderDescriptor) adapter.Adapter {
		return adapter.NewOpenAIAdapter(descriptorOptions(desc)...)
	},
	"gemini": func(desc config.ProviderDescriptor) adapter.Adapter {
		return adapter.NewGeminiAdapter(descriptorOptions(desc)...)
	},
}

// descriptorOptions translates descriptor overrides into adapter options.
func descriptorOptions(desc config.ProviderDescriptor) []adapter.Option {
	opts := []adapter.Option{
		adapter.WithHost(desc.Host),
		adapter.WithDefaultModel(desc.DefaultModel),
		adapter.WithStrictEmulation(desc.StrictEmulation),
	}
	if desc.TimeoutSeconds > 0 {
		opts = append(opts, adapter.WithTimeout(time.Duration(desc.TimeoutSeconds)*time.Second))
	}
	return opts
}

// Registry lazily constructs and caches one ResilientProvider per configured
// provider name. Instances live for the process lifetime; concurrent first
// use converges on a single cached instance so its key rotator is shared,
// never duplicated.
type Registry struct {
	mu          sync.Mutex
	descriptors map[string]config.ProviderDescriptor
	providers   map[string]*ResilientProvider
	usage       *usageCache
	logger      *slog.Logger
}

// NewRegistry creates a registry over the given provider descriptors.
func NewRegistry(descriptors map[string]config.ProviderDescriptor, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		descriptors: descriptors,
		providers:   make(map[string]*ResilientProvider),
		usage:       newUsageCache(DefaultUsageCacheTTL),
		logger:      logger,
	}
}

// Get returns the cached resilient provider for name, building it on first
// use. Fails with ErrUnknownProvider when name is absent from configuration
// and ErrUnknownAdapterKind when the descriptor names an adapter variant
// outside the compiled-in set.
func (r *Registry) Get(name string) (*ResilientProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[name]; ok {
		return p, nil
	}

	desc, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}

	construct, ok := adapterKinds[desc.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (provider %q)", domain.ErrUnknownAdapterKind, desc.Kind, name)
	}

	p, err := NewResilientProvider(name, construct(desc), desc.Keys, r.logger)
	if err != nil {
		return nil, err
	}

	r.logger.Info("provider initialized",
		slog.String("provider", name),
		slog.String("kind", desc.Kind),
		slog.Int("keys", p.KeyCount()),
	)

	r.providers[name] = p
	return p, nil
}

// Send resolves the named provider and drives one request through its
// retry loop. This is the surface the HTTP layer calls.
func (r *Registry) Send(ctx context.Context, name string, req domain.ChatRequest) (domain.ChatResponse, error) {
	p, err := r.Get(name)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	return p.Send(ctx, req)
}

// Usage resolves the named provider and probes its usage report. Fresh
// reports are served from a short-lived cache so repeated probes don't spend
// upstream calls. Returns (nil, nil) when the upstream has no usage
// reporting; that answer is not cached.
func (r *Registry) Usage(ctx context.Context, name string) (*adapter.UsageInfo, error) {
	if info, ok := r.usage.Get(name); ok {
		return info, nil
	}

	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	info, err := p.Usage(ctx)
	if err == nil && info != nil {
		r.usage.Set(name, info)
	}
	return info, err
}

// ProviderInfo is a configured provider summary for listings and health.
type ProviderInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	KeyCount    int    `json:"key_count"`
	Initialized bool   `json:"initialized"`
}

// Providers lists all configured providers in name order, whether or not
// they have been built yet.
func (r *Registry) Providers() []ProviderInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ProviderInfo, 0, len(r.descriptors))
	for name, desc := range r.descriptors {
		info := ProviderInfo{Name: name, Kind: desc.Kind, KeyCount: len(desc.Keys)}
		if _, ok := r.providers[name]; ok {
			info.Initialized = true
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
