package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adalundhe/instructgen/core/config"
	"github.com/adalundhe/instructgen/core/dataset"
)

// Model is the language model capability generation depends on.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CountTokens(text string) (int, error)
}

// uncachedCompleter is implemented by models that memoize completions. The
// discovery retry uses it so an identical prompt reaches the model again.
type uncachedCompleter interface {
	CompleteUncached(ctx context.Context, prompt string) (string, error)
}

// Mode selects which dataset protocol a pass runs.
type Mode string

const (
	// ModeQA answers templated questions per file, function, class and method.
	ModeQA Mode = "qa"
	// ModeInstruct asks the model for open-ended instructions per code fragment.
	ModeInstruct Mode = "instruct"
	// ModeBoth runs ModeQA then ModeInstruct into the same record list.
	ModeBoth Mode = "both"
)

// ParseMode converts a mode name. The empty string selects ModeQA.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeQA, nil
	case ModeQA, ModeInstruct, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want qa, instruct or both)", s)
	}
}

func (m Mode) qa() bool       { return m == ModeQA || m == ModeBoth }
func (m Mode) instruct() bool { return m == ModeInstruct || m == ModeBoth }

// Options configures a Generator.
type Options struct {
	Details   *dataset.FileDetails
	Questions []dataset.Question

	// Config supplies prompts and the string contracts with model output.
	// DefaultModelConfig is used when nil.
	Config *config.ModelConfig

	// Model is required for ModeInstruct, ModeBoth and UseLLM.
	Model Model

	// BaseName is the file name substituted for {filename}.
	BaseName string
	Mode     Mode

	// UseLLM answers purpose questions with the model.
	UseLLM bool
	// Detailed adds a purpose and significance pass per code element.
	Detailed bool

	Logger *slog.Logger
}
