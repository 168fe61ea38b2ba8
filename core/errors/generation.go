package errors

import (
	"errors"
	"fmt"
	"math"
)

// Kind identifies a failure of one unit of generation work.
type Kind int

const (
	// KindContextTooLarge: no context candidate fits the token budget.
	KindContextTooLarge Kind = iota + 1

	// KindModelInvocation: the model call itself failed.
	KindModelInvocation

	// KindTemplateSubstitution: a template references an undefined field.
	KindTemplateSubstitution

	// KindInstructionParse: no instruction delimiter in the model output.
	KindInstructionParse

	// KindSchema: a file details record lacks a required field.
	KindSchema
)

var kindNames = map[Kind]string{
	KindContextTooLarge:      "context_too_large",
	KindModelInvocation:      "model_invocation",
	KindTemplateSubstitution: "template_substitution",
	KindInstructionParse:     "instruction_parse",
	KindSchema:               "schema",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Tier maps a generation failure onto the provider error tiers.
func (k Kind) Tier() ErrorTier {
	switch k {
	case KindContextTooLarge:
		return TierUserFixable
	case KindModelInvocation:
		return TierExternalDegrading
	case KindInstructionParse:
		return TierTransient
	default:
		return TierPermanent
	}
}

// GenerationError is a failure scoped to one question, record or fragment.
// It never aborts a generation pass.
type GenerationError struct {
	Kind Kind
	Unit string

	// Tokens is the last measured prompt size (ContextTooLarge only).
	Tokens int
	// Required is the smallest context length that would have fit.
	Required int

	Err error
}

func (e *GenerationError) Error() string {
	msg := e.Kind.String()
	if e.Unit != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Unit)
	}
	if e.Kind == KindContextTooLarge && e.Required > 0 {
		msg = fmt.Sprintf("%s: prompt is %d tokens, increase context_length > %d", msg, e.Tokens, e.Required)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is matches any GenerationError of the same kind.
func (e *GenerationError) Is(target error) bool {
	var ge *GenerationError
	if errors.As(target, &ge) {
		return e.Kind == ge.Kind
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrContextTooLarge      = &GenerationError{Kind: KindContextTooLarge}
	ErrModelInvocation      = &GenerationError{Kind: KindModelInvocation}
	ErrTemplateSubstitution = &GenerationError{Kind: KindTemplateSubstitution}
	ErrInstructionParse     = &GenerationError{Kind: KindInstructionParse}
	ErrSchema               = &GenerationError{Kind: KindSchema}
)

// NewContextTooLarge reports a prompt of tokens that exceeded fraction of the
// model context window. Required is ceil(tokens / fraction).
func NewContextTooLarge(unit string, tokens int, fraction float64) *GenerationError {
	return &GenerationError{
		Kind:     KindContextTooLarge,
		Unit:     unit,
		Tokens:   tokens,
		Required: RequiredContextLength(tokens, fraction),
	}
}

// RequiredContextLength is the smallest context length whose budget fraction
// admits a prompt of the given size.
func RequiredContextLength(tokens int, fraction float64) int {
	if fraction <= 0 {
		return tokens
	}
	return int(math.Ceil(float64(tokens) / fraction))
}

// NewGenerationError wraps err as a failure of the given kind.
func NewGenerationError(kind Kind, unit string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Unit: unit, Err: err}
}

// KindOf returns the generation kind of err, or zero if err is not one.
func KindOf(err error) Kind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}
