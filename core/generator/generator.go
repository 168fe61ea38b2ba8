// Package generator turns the structural facts of one source file into
// instruction records. Templated questions are routed to file, function,
// class and method records and answered from metadata or by the model; the
// instruct mode asks the model to discover instructions per code fragment.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/uuid"

	"github.com/adalundhe/instructgen/core/budget"
	"github.com/adalundhe/instructgen/core/config"
	"github.com/adalundhe/instructgen/core/dataset"
	gerrors "github.com/adalundhe/instructgen/core/errors"
	"github.com/adalundhe/instructgen/core/prompt"
)

var blankLines = regexp.MustCompile(`\n\s*\n`)

// Generator runs generation passes over one file. A Generator is not safe
// for concurrent use; each pass owns its record list.
type Generator struct {
	details   *dataset.FileDetails
	questions []dataset.Question
	cfg       *config.ModelConfig
	model     Model
	baseName  string
	mode      Mode
	useLLM    bool
	detailed  bool
	logger    *slog.Logger

	fitter      *budget.Fitter
	answerStage prompt.Stage
	genStage    prompt.Stage

	records []dataset.InstructRecord
}

// New validates opts and creates a Generator.
func New(opts Options) (*Generator, error) {
	if opts.Details == nil {
		return nil, fmt.Errorf("generator: file details are required")
	}
	if opts.Mode == "" {
		opts.Mode = ModeQA
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	if opts.Model == nil && (opts.UseLLM || opts.Mode.instruct()) {
		return nil, fmt.Errorf("generator: mode %s with use_llm=%t requires a model", opts.Mode, opts.UseLLM)
	}
	if opts.Config == nil {
		opts.Config = config.DefaultModelConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	g := &Generator{
		details:   opts.Details,
		questions: opts.Questions,
		cfg:       opts.Config,
		model:     opts.Model,
		baseName:  opts.BaseName,
		mode:      opts.Mode,
		useLLM:    opts.UseLLM && opts.Model != nil,
		detailed:  opts.Detailed && opts.UseLLM && opts.Model != nil,
		logger:    opts.Logger,
	}

	if g.model != nil {
		if err := g.cfg.Validate(); err != nil {
			return nil, err
		}
		builder := prompt.NewBuilder(g.cfg.PromptTemplate, g.cfg.SystemPrompt)
		var err error
		if g.answerStage, err = builder.Stage(g.cfg.InstructionPrompt); err != nil {
			return nil, fmt.Errorf("instruction_prompt: %w", err)
		}
		if g.genStage, err = builder.Stage(g.cfg.InstructionGenPrompt); err != nil {
			return nil, fmt.Errorf("instruction_gen_prompt_2: %w", err)
		}
		g.fitter = budget.NewFitter(budget.Config{
			Counter:       g.model,
			ContextLength: g.cfg.InferenceModel.ModelParams.ContextLength,
			Fraction:      g.cfg.BudgetFraction,
			Logger:        g.logger,
		})
	}
	return g, nil
}

// Generate runs one pass and returns the records in generation order. Unit
// failures are logged and skipped. If ctx is cancelled the records produced
// so far are returned with ctx.Err().
func (g *Generator) Generate(ctx context.Context) ([]dataset.InstructRecord, error) {
	g.records = nil
	pass := g.logger
	g.logger = pass.With("run_id", uuid.NewString(), "file", g.baseName)
	defer func() { g.logger = pass }()

	g.logger.Info("generating dataset", "mode", g.mode, "questions", len(g.questions), "use_llm", g.useLLM)

	if g.mode.qa() {
		for _, q := range g.questions {
			for _, req := range g.route(q) {
				if err := ctx.Err(); err != nil {
					return g.records, err
				}
				g.resolve(ctx, req)
			}
		}
	}
	if g.mode.instruct() {
		for _, frag := range g.fragments() {
			if err := ctx.Err(); err != nil {
				return g.records, err
			}
			g.discoverFragment(ctx, frag)
		}
	}

	g.logger.Info("dataset generated", "records", len(g.records))
	return g.records, nil
}

// Generate builds a Generator from opts and runs a single pass.
func Generate(ctx context.Context, opts Options) ([]dataset.InstructRecord, error) {
	g, err := New(opts)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx)
}

func (g *Generator) fence(code string) string {
	return "```" + g.cfg.CodeLanguage + "\n" + code + "\n```"
}

func collapseBlankLines(s string) string {
	return blankLines.ReplaceAllString(s, "\n\n")
}

// logFailure reports a contained unit failure with its diagnostics.
func (g *Generator) logFailure(unit string, err error, attrs ...any) {
	args := []any{"unit", unit, "kind", gerrors.KindOf(err).String(), "error", err}
	var ge *gerrors.GenerationError
	if errors.As(err, &ge) && ge.Kind == gerrors.KindContextTooLarge {
		args = append(args, "tokens", ge.Tokens, "required_context_length", ge.Required)
	}
	g.logger.Error("generation unit failed", append(args, attrs...)...)
}

func (g *Generator) complete(ctx context.Context, unit, prompt string, uncached bool) (string, error) {
	var (
		resp string
		err  error
	)
	if u, ok := g.model.(uncachedCompleter); ok && uncached {
		resp, err = u.CompleteUncached(ctx, prompt)
	} else {
		resp, err = g.model.Complete(ctx, prompt)
	}
	if err != nil {
		return "", gerrors.NewGenerationError(gerrors.KindModelInvocation, unit, err)
	}
	return collapseBlankLines(resp), nil
}

// withUnit tags a generation error with the unit it belongs to. Other
// errors can only come from templating.
func withUnit(err error, unit string) error {
	var ge *gerrors.GenerationError
	if errors.As(err, &ge) {
		tagged := *ge
		tagged.Unit = unit
		return &tagged
	}
	return gerrors.NewGenerationError(gerrors.KindTemplateSubstitution, unit, err)
}
