package providers

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures text in model tokens.
type TokenCounter interface {
	CountText(text string) (int, error)
}

type TokenCounterConfig struct {
	FallbackCharsPerToken int
}

func DefaultTokenCounterConfig() TokenCounterConfig {
	return TokenCounterConfig{FallbackCharsPerToken: 4}
}

// CharacterBasedCounter estimates tokens from byte length.
type CharacterBasedCounter struct {
	config TokenCounterConfig
}

func NewCharacterBasedCounter(config TokenCounterConfig) *CharacterBasedCounter {
	if config.FallbackCharsPerToken <= 0 {
		config.FallbackCharsPerToken = 4
	}
	return &CharacterBasedCounter{config: config}
}

func (c *CharacterBasedCounter) CountText(text string) (int, error) {
	return c.charsToTokens(len(text)), nil
}

func (c *CharacterBasedCounter) charsToTokens(chars int) int {
	return (chars + c.config.FallbackCharsPerToken - 1) / c.config.FallbackCharsPerToken
}

// TiktokenCounter counts BPE tokens with a tiktoken encoding. cl100k_base is
// a close approximation for every supported provider.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (t *TiktokenCounter) CountText(text string) (int, error) {
	return len(t.enc.Encode(text, nil, nil)), nil
}

// CachedCounter memoizes counts by content hash. The context ladder and the
// discovery retry re-measure identical prompts.
type CachedCounter struct {
	inner TokenCounter
	cache *lru.Cache[uint64, int]
}

func NewCachedCounter(inner TokenCounter, size int) (*CachedCounter, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[uint64, int](size)
	if err != nil {
		return nil, err
	}
	return &CachedCounter{inner: inner, cache: cache}, nil
}

func (c *CachedCounter) CountText(text string) (int, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	key := h.Sum64()

	if n, ok := c.cache.Get(key); ok {
		return n, nil
	}
	n, err := c.inner.CountText(text)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, n)
	return n, nil
}

// NewTokenCounter parses a tokenizer spec: "chars", "chars:<n>",
// "tiktoken" or "tiktoken:<encoding>".
func NewTokenCounter(spec string) (TokenCounter, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
	switch strings.ToLower(kind) {
	case "", "tiktoken":
		return NewTiktokenCounter(arg)
	case "chars":
		config := DefaultTokenCounterConfig()
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("tokenizer %q: %w", spec, err)
			}
			config.FallbackCharsPerToken = n
		}
		return NewCharacterBasedCounter(config), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", spec)
	}
}

var modelContextLimits = map[string]int{
	"claude-opus-4-5-20251101":   200000,
	"claude-sonnet-4-5-20250901": 1000000,
	"claude-haiku-4-5-20251001":  200000,
	"gpt-5.2-codex":              400000,
	"gpt-4o":                     128000,
	"gpt-4o-mini":                128000,
	"gemini-3-pro":               2000000,
	"gemini-3-pro-preview":       2000000,
	"gemini-3-flash":             1000000,
}

func getModelContextLimit(model string) int {
	if limit, exists := modelContextLimits[model]; exists {
		return limit
	}
	return 128000
}

func supportsModel(models []ModelInfo, model string) bool {
	for _, m := range models {
		if m.ID == model {
			return true
		}
	}
	return false
}
