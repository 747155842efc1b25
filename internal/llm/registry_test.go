package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/core"
)

type fakeProvider struct {
	name string
}

func (p *fakeProvider) Name() string         { return p.name }
func (p *fakeProvider) DefaultModel() string { return "fake" }

func (p *fakeProvider) GenerateReply(ctx context.Context, content, systemPrompt, subject string) (string, error) {
	return "", nil
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("openai", func() (core.Provider, error) {
		return &fakeProvider{name: "openai"}, nil
	})

	provider, err := reg.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider.Name())
}

func TestRegistryGetIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("OpenAI", func() (core.Provider, error) {
		return &fakeProvider{name: "openai"}, nil
	})

	provider, err := reg.Get("OPENAI")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider.Name())
}

func TestRegistryCachesInstances(t *testing.T) {
	built := 0
	reg := NewRegistry(zap.NewNop())
	reg.Register("openai", func() (core.Provider, error) {
		built++
		return &fakeProvider{name: "openai"}, nil
	})

	first, err := reg.Get("openai")
	require.NoError(t, err)
	second, err := reg.Get("openai")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, built)
}

func TestRegistryUnknownProviderEnumeratesNames(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("openai", func() (core.Provider, error) { return &fakeProvider{}, nil })
	reg.Register("anthropic", func() (core.Provider, error) { return &fakeProvider{}, nil })

	_, err := reg.Get("gpt5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider: gpt5")
	assert.Contains(t, err.Error(), "anthropic, openai")
}

func TestRegistryBuilderFailure(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("openai", func() (core.Provider, error) {
		return nil, errors.New("missing api key")
	})

	_, err := reg.Get("openai")
	require.Error(t, err)

	var provErr *core.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "openai", provErr.Provider)
	assert.Contains(t, err.Error(), "missing api key")
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("ollama", func() (core.Provider, error) { return &fakeProvider{}, nil })
	reg.Register("bedrock", func() (core.Provider, error) { return &fakeProvider{}, nil })
	reg.Register("google", func() (core.Provider, error) { return &fakeProvider{}, nil })

	assert.Equal(t, []string{"bedrock", "google", "ollama"}, reg.Names())
}
