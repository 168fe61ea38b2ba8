// Package budget selects prompt context under a token budget.
package budget

import (
	"fmt"
	"log/slog"

	gerrors "github.com/adalundhe/instructgen/core/errors"
)

// DefaultFraction of the context window a prompt may use. The remainder is
// headroom for the model's response.
const DefaultFraction = 0.70

// Counter measures text in model tokens.
type Counter interface {
	CountTokens(text string) (int, error)
}

// Candidate produces one context representation. Candidates are evaluated
// only when reached.
type Candidate func() string

// Static returns a Candidate for an already computed context.
func Static(context string) Candidate {
	return func() string { return context }
}

// Fitted is the outcome of a successful fit.
type Fitted struct {
	Prompt  string
	Context string
	Tokens  int
	// Index of the accepted candidate.
	Index int
}

// Config configures a Fitter.
type Config struct {
	Counter       Counter
	ContextLength int
	// Fraction of ContextLength a prompt may use; DefaultFraction when unset.
	Fraction float64
	Logger   *slog.Logger
}

// Fitter checks prompts against fraction × context length.
type Fitter struct {
	counter       Counter
	contextLength int
	fraction      float64
	logger        *slog.Logger
}

// NewFitter creates a Fitter.
func NewFitter(cfg Config) *Fitter {
	if cfg.Fraction <= 0 || cfg.Fraction > 1 {
		cfg.Fraction = DefaultFraction
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fitter{
		counter:       cfg.Counter,
		contextLength: cfg.ContextLength,
		fraction:      cfg.Fraction,
		logger:        cfg.Logger,
	}
}

// Fraction returns the configured budget fraction.
func (f *Fitter) Fraction() float64 { return f.fraction }

// Limit returns the budget in tokens.
func (f *Fitter) Limit() float64 {
	return f.fraction * float64(f.contextLength)
}

// Fits reports whether a prompt of the given size is within budget. The
// boundary itself is accepted.
func (f *Fitter) Fits(tokens int) bool {
	return float64(tokens) <= f.Limit()
}

// Fit builds a prompt from each candidate in order and returns the first that
// fits. If none fit the error is a ContextTooLarge GenerationError carrying
// the last measured size. Errors from build or the counter stop the fit.
func (f *Fitter) Fit(build func(context string) (string, error), candidates ...Candidate) (Fitted, error) {
	if len(candidates) == 0 {
		return Fitted{}, gerrors.NewGenerationError(gerrors.KindContextTooLarge, "", fmt.Errorf("no context candidates"))
	}

	last := 0
	for i, candidate := range candidates {
		context := candidate()
		prompt, err := build(context)
		if err != nil {
			return Fitted{}, err
		}
		tokens, err := f.count(prompt)
		if err != nil {
			return Fitted{}, err
		}
		f.logger.Debug("context size", "candidate", i, "tokens", tokens, "limit", f.Limit())
		if f.Fits(tokens) {
			return Fitted{Prompt: prompt, Context: context, Tokens: tokens, Index: i}, nil
		}
		last = tokens
	}
	return Fitted{}, gerrors.NewContextTooLarge("", last, f.fraction)
}

// Check measures a single prompt with no fallback.
func (f *Fitter) Check(prompt string) (int, error) {
	tokens, err := f.count(prompt)
	if err != nil {
		return 0, err
	}
	f.logger.Debug("context size", "tokens", tokens, "limit", f.Limit())
	if !f.Fits(tokens) {
		return tokens, gerrors.NewContextTooLarge("", tokens, f.fraction)
	}
	return tokens, nil
}

func (f *Fitter) count(prompt string) (int, error) {
	if f.counter == nil {
		return 0, gerrors.NewGenerationError(gerrors.KindModelInvocation, "", fmt.Errorf("no token counter"))
	}
	tokens, err := f.counter.CountTokens(prompt)
	if err != nil {
		return 0, gerrors.NewGenerationError(gerrors.KindModelInvocation, "", fmt.Errorf("count tokens: %w", err))
	}
	return tokens, nil
}
