package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/adalundhe/instructgen/core/errors"
)

func fakeFactory(p *fakeProvider) Factory {
	return func(_ context.Context, c BaseConfig) (Provider, error) {
		p.config = c
		return p, nil
	}
}

func TestRegistry_NewLowercasesType(t *testing.T) {
	r := NewRegistry()
	fake := &fakeProvider{}
	r.Register("fake", fakeFactory(fake))

	p, err := r.New(context.Background(), "FAKE", BaseConfig{Model: "m", APIKey: "k"})
	require.NoError(t, err)
	assert.Same(t, fake, p)
	assert.Equal(t, "m", fake.config.Model)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry()
	r.Register("fake", fakeFactory(&fakeProvider{}))

	_, err := r.New(context.Background(), "mystery", BaseConfig{})
	require.Error(t, err)
	assert.Equal(t, gerrors.TierUserFixable, gerrors.GetTier(err))
	assert.Contains(t, err.Error(), "mystery")
}

func TestRegistry_InvalidConfig(t *testing.T) {
	r := NewRegistry()
	r.Register("fake", fakeFactory(&fakeProvider{validateErr: errors.New("api_key is required")}))

	_, err := r.New(context.Background(), "fake", BaseConfig{})
	require.Error(t, err)
	assert.Equal(t, gerrors.TierUserFixable, gerrors.GetTier(err))
}

func TestRegistry_FactoryError(t *testing.T) {
	r := NewRegistry()
	r.Register("broken", func(context.Context, BaseConfig) (Provider, error) {
		return nil, errors.New("no client")
	})

	_, err := r.New(context.Background(), "broken", BaseConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: no client")
}

func TestDefaultRegistry_Available(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []ProviderType{ProviderTypeAnthropic, ProviderTypeGoogle, ProviderTypeOpenAI}, r.Available())
	assert.True(t, r.Has(ProviderTypeOpenAI))
	assert.False(t, r.Has("ollama"))
}

func TestDefaultRegistry_MissingAPIKey(t *testing.T) {
	r := DefaultRegistry()

	for _, pt := range []ProviderType{ProviderTypeAnthropic, ProviderTypeOpenAI} {
		_, err := r.New(context.Background(), pt, BaseConfig{Model: "m"})
		require.Error(t, err, pt)
		assert.Equal(t, gerrors.TierUserFixable, gerrors.GetTier(err), pt)
	}
}
