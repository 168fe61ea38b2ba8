package providers

import (
	"errors"
	"sync"
	"testing"
)

// =============================================================================
// CharacterBasedCounter Tests
// =============================================================================

func TestNewCharacterBasedCounter_DefaultConfig(t *testing.T) {
	counter := NewCharacterBasedCounter(DefaultTokenCounterConfig())

	if counter == nil {
		t.Fatal("expected non-nil counter")
	}
	if counter.config.FallbackCharsPerToken != 4 {
		t.Errorf("expected FallbackCharsPerToken=4, got %d", counter.config.FallbackCharsPerToken)
	}
}

func TestNewCharacterBasedCounter_InvalidConfig(t *testing.T) {
	for _, n := range []int{0, -1} {
		counter := NewCharacterBasedCounter(TokenCounterConfig{FallbackCharsPerToken: n})
		if counter.config.FallbackCharsPerToken != 4 {
			t.Errorf("FallbackCharsPerToken=%d: expected default 4, got %d", n, counter.config.FallbackCharsPerToken)
		}
	}
}

func TestCharacterBasedCounter_CountText(t *testing.T) {
	counter := NewCharacterBasedCounter(DefaultTokenCounterConfig())

	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"empty string", "", 0},
		{"single char", "a", 1},
		{"exactly 4 chars", "abcd", 1},
		{"5 chars", "abcde", 2},
		{"8 chars", "abcdefgh", 2},
		{"unicode", "你好世界", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := counter.CountText(tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if count != tt.expected {
				t.Errorf("expected %d tokens, got %d", tt.expected, count)
			}
		})
	}
}

// =============================================================================
// NewTokenCounter Tests
// =============================================================================

func TestNewTokenCounter_Chars(t *testing.T) {
	tests := []struct {
		spec     string
		text     string
		expected int
	}{
		{"chars", "abcdefgh", 2},
		{"CHARS", "abcdefgh", 2},
		{"chars:2", "abcdefgh", 4},
		{" chars:8 ", "abcdefgh", 1},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			counter, err := NewTokenCounter(tt.spec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			count, _ := counter.CountText(tt.text)
			if count != tt.expected {
				t.Errorf("expected %d tokens, got %d", tt.expected, count)
			}
		})
	}
}

func TestNewTokenCounter_Invalid(t *testing.T) {
	for _, spec := range []string{"chars:x", "sentencepiece", "bpe:foo"} {
		if _, err := NewTokenCounter(spec); err == nil {
			t.Errorf("%q: expected error", spec)
		}
	}
}

// =============================================================================
// CachedCounter Tests
// =============================================================================

type countingCounter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCounter) CountText(text string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	return len(text), nil
}

func TestCachedCounter_MemoizesByContent(t *testing.T) {
	inner := &countingCounter{}
	counter, err := NewCachedCounter(inner, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		n, err := counter.CountText("hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 5 {
			t.Errorf("expected 5, got %d", n)
		}
	}
	if _, err := counter.CountText("world!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
}

func TestCachedCounter_DoesNotCacheErrors(t *testing.T) {
	inner := &countingCounter{err: errors.New("boom")}
	counter, _ := NewCachedCounter(inner, 0)

	for i := 0; i < 2; i++ {
		if _, err := counter.CountText("x"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
}

func TestCachedCounter_Concurrent(t *testing.T) {
	counter, _ := NewCachedCounter(NewCharacterBasedCounter(DefaultTokenCounterConfig()), 16)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if n, _ := counter.CountText("abcdefgh"); n != 2 {
				t.Errorf("expected 2, got %d", n)
			}
		}()
	}
	wg.Wait()
}

// =============================================================================
// Model Limits
// =============================================================================

func TestGetModelContextLimit(t *testing.T) {
	if got := getModelContextLimit(string(SonnetLongContext)); got != 1000000 {
		t.Errorf("expected 1000000, got %d", got)
	}
	if got := getModelContextLimit("unknown-model"); got != 128000 {
		t.Errorf("expected fallback 128000, got %d", got)
	}
}
