package gateway

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDescriptors() map[string]config.ProviderDescriptor {
	return map[string]config.ProviderDescriptor{
		"openai": {Kind: "openai", Keys: []string{"key-a", "key-b"}},
		"gemini": {Kind: "gemini", Keys: []string{"key-c"}},
		"broken": {Kind: "llamacloud", Keys: []string{"key-d"}},
		"keyless": {Kind: "openai"},
	}
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	r := NewRegistry(testDescriptors(), testLogger())

	_, err := r.Get("anthropic")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestRegistryGetUnknownAdapterKind(t *testing.T) {
	r := NewRegistry(testDescriptors(), testLogger())

	_, err := r.Get("broken")
	assert.ErrorIs(t, err, domain.ErrUnknownAdapterKind)
}

func TestRegistryGetEmptyKeyPool(t *testing.T) {
	r := NewRegistry(testDescriptors(), testLogger())

	_, err := r.Get("keyless")
	assert.ErrorIs(t, err, domain.ErrEmptyCredentialPool)
}

func TestRegistryGetCachesInstance(t *testing.T) {
	r := NewRegistry(testDescriptors(), testLogger())

	first, err := r.Get("openai")
	require.NoError(t, err)
	second, err := r.Get("openai")
	require.NoError(t, err)

	assert.Same(t, first, second, "repeated Get must return the cached instance")
}

func TestRegistryConcurrentGetConverges(t *testing.T) {
	r := NewRegistry(testDescriptors(), testLogger())

	const goroutines = 16
	results := make([]*ResilientProvider, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			p, err := r.Get("gemini")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = p
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i], "concurrent first use must converge on one instance")
	}
}

func TestRegistryProvidersListing(t *testing.T) {
	r := NewRegistry(testDescriptors(), testLogger())

	_, err := r.Get("openai")
	require.NoError(t, err)

	infos := r.Providers()
	require.Len(t, infos, 4)

	byName := make(map[string]ProviderInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	assert.True(t, byName["openai"].Initialized)
	assert.False(t, byName["gemini"].Initialized)
	assert.Equal(t, 2, byName["openai"].KeyCount)
	assert.Equal(t, "gemini", byName["gemini"].Kind)

	// Name-sorted order.
	for i := 1; i < len(infos); i++ {
		assert.Less(t, infos[i-1].Name, infos[i].Name)
	}
}
