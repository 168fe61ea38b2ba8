package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/adalundhe/instructgen/core/config"
	gerrors "github.com/adalundhe/instructgen/core/errors"
)

const (
	defaultCacheTTL     = 30 * time.Minute
	defaultBufferItems  = 64
	countersPerCacheKey = 10
)

// TextModel turns a Provider into a prompt-in, text-out model with token
// counting, tiered retries and a completion cache.
type TextModel struct {
	provider Provider
	counter  TokenCounter
	retry    *gerrors.RetryExecutor
	cache    *ristretto.Cache
	timeout  time.Duration
	logger   *slog.Logger
}

// TextModelConfig configures a TextModel.
type TextModelConfig struct {
	Provider Provider
	Counter  TokenCounter
	Retry    *gerrors.RetryExecutor
	// CacheSize is the number of completions kept; zero disables caching.
	CacheSize int
	// Timeout bounds each provider call; zero leaves it to ctx.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewTextModel creates a TextModel.
func NewTextModel(cfg TextModelConfig) (*TextModel, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("text model: provider is required")
	}
	if cfg.Counter == nil {
		cfg.Counter = NewCharacterBasedCounter(DefaultTokenCounterConfig())
	}
	if cfg.Retry == nil {
		cfg.Retry = gerrors.NewRetryExecutor(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &TextModel{
		provider: cfg.Provider,
		counter:  cfg.Counter,
		retry:    cfg.Retry,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
	if cfg.CacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: int64(cfg.CacheSize * countersPerCacheKey),
			MaxCost:     int64(cfg.CacheSize),
			BufferItems: defaultBufferItems,
		})
		if err != nil {
			return nil, fmt.Errorf("text model cache: %w", err)
		}
		m.cache = cache
	}
	return m, nil
}

// Open builds a TextModel from a model configuration using the default
// provider registry.
func Open(ctx context.Context, cfg *config.ModelConfig, logger *slog.Logger) (*TextModel, error) {
	return OpenWith(ctx, DefaultRegistry(), cfg, logger)
}

// OpenWith builds a TextModel using the given registry.
func OpenWith(ctx context.Context, registry *Registry, cfg *config.ModelConfig, logger *slog.Logger) (*TextModel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	params := cfg.InferenceModel.ModelParams

	provider, err := registry.New(ctx, ProviderType(cfg.InferenceModel.Provider), BaseConfig{
		APIKey:      params.APIKey,
		Model:       params.Model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		Timeout:     params.Timeout,
		BaseURL:     params.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	if limit := provider.MaxContextTokens(params.Model); params.ContextLength > limit {
		logger.Warn("context_length exceeds the model's context window",
			"model", params.Model, "context_length", params.ContextLength, "model_limit", limit)
	}

	counter, err := NewTokenCounter(params.Tokenizer)
	if err != nil {
		logger.Warn("tokenizer unavailable, estimating tokens from characters",
			"tokenizer", params.Tokenizer, "error", err)
		counter = NewCharacterBasedCounter(DefaultTokenCounterConfig())
	}
	cached, err := NewCachedCounter(counter, 0)
	if err != nil {
		return nil, err
	}

	return NewTextModel(TextModelConfig{
		Provider:  provider,
		Counter:   cached,
		CacheSize: params.CacheSize,
		Timeout:   params.Timeout,
		Logger:    logger.With("provider", provider.Name(), "model", params.Model),
	})
}

// Complete returns the model's text for prompt, served from the completion
// cache when the same prompt was answered before.
func (m *TextModel) Complete(ctx context.Context, prompt string) (string, error) {
	if m.cache != nil {
		if v, ok := m.cache.Get(prompt); ok {
			if text, ok := v.(string); ok {
				m.logger.Debug("completion cache hit", "prompt_chars", len(prompt))
				return text, nil
			}
		}
	}

	text, err := m.CompleteUncached(ctx, prompt)
	if err != nil {
		return "", err
	}
	if m.cache != nil {
		m.cache.SetWithTTL(prompt, text, 1, defaultCacheTTL)
	}
	return text, nil
}

// CompleteUncached always calls the provider. Retries of a failed parse use
// it so that they are not answered from the cache.
func (m *TextModel) CompleteUncached(ctx context.Context, prompt string) (string, error) {
	var resp *Response
	err := m.retry.Do(ctx, func() error {
		callCtx, cancel := m.callContext(ctx)
		defer cancel()

		r, err := m.provider.Complete(callCtx, PromptRequest(prompt))
		if err != nil {
			m.logger.Debug("provider call failed", "tier", gerrors.GetTier(err), "error", err)
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Debug("completion",
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason)
	if resp.StopReason == StopReasonError && resp.Content == "" {
		return "", gerrors.NewTieredError(gerrors.TierPermanent, m.provider.Name()+" returned no content", nil)
	}
	return resp.Content, nil
}

func (m *TextModel) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return context.WithCancel(ctx)
}

// CountTokens measures text with the configured tokenizer.
func (m *TextModel) CountTokens(text string) (int, error) {
	return m.counter.CountText(text)
}

// Close releases the cache and the provider.
func (m *TextModel) Close() error {
	if m.cache != nil {
		m.cache.Close()
	}
	return m.provider.Close()
}
