package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/adalundhe/instructgen/core/config"
	"github.com/adalundhe/instructgen/core/dataset"
	"github.com/adalundhe/instructgen/core/generator"
	"github.com/adalundhe/instructgen/core/output"
	"github.com/adalundhe/instructgen/core/providers"
)

const (
	// GenerateDefaultOutputDir is where datasets are written.
	GenerateDefaultOutputDir = "datasets"

	// detailsSuffix marks file details produced by static analysis.
	detailsSuffix = ".details"
)

// GenerateDefaultInclude selects file details when a directory is given.
var GenerateDefaultInclude = []string{"**.details.json", "**.details.yaml", "**.details.yml"}

var (
	generateQuestions   string
	generateModelConfig string
	generateEnvFiles    []string
	generateUseLLM      bool
	generateDetailed    bool
	generateMode        string
	generateOutputDir   string
	generateFormat      string
	generateInclude     []string
	generateExclude     []string
	generateCombine     bool
)

// generateCmd generates datasets from file details.
var generateCmd = &cobra.Command{
	Use:   "generate <details-file|dir>...",
	Short: "Generate datasets from file details",
	Long: `Generate an instruction dataset for every file details document (JSON or
YAML, as produced by static analysis) given directly or found under a
directory. One dataset is written per source file, then all datasets in the
output directory are combined and de-duplicated.

Examples:
  instructgen generate details/                       # templated Q&A, no model
  instructgen generate --use-llm --detailed details/  # model answers purpose questions
  instructgen generate --mode instruct mod.py.details.json
  instructgen generate --format jsonl -o out details/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.StringVar(&generateQuestions, "questions", dataset.QuestionsFile, "Questions file (defaults are used when missing)")
	flags.StringVar(&generateModelConfig, "model-config", "", "Model config file (default: search ./ and ./configs/)")
	flags.StringSliceVar(&generateEnvFiles, "env-file", nil, "Env files loaded before the model config (default .env,.env.local)")
	flags.BoolVar(&generateUseLLM, "use-llm", false, "Answer purpose questions with the model")
	flags.BoolVar(&generateDetailed, "detailed", false, "Add a purpose and significance pass per code element")
	flags.StringVarP(&generateMode, "mode", "m", string(generator.ModeQA), "Dataset mode: qa, instruct or both")
	flags.StringVarP(&generateOutputDir, "output-dir", "o", GenerateDefaultOutputDir, "Output directory")
	flags.StringVarP(&generateFormat, "format", "f", string(output.FormatJSON), "Output format: json, jsonl or yaml")
	flags.StringSliceVarP(&generateInclude, "include", "I", GenerateDefaultInclude, "Include patterns for directories")
	flags.StringSliceVarP(&generateExclude, "exclude", "E", nil, "Exclude patterns for directories")
	flags.BoolVar(&generateCombine, "combine", true, "Combine all datasets in the output directory")
}

// textModel is a generator.Model that holds provider resources.
type textModel interface {
	generator.Model
	Close() error
}

// openModel is replaced in tests.
var openModel = func(ctx context.Context, cfg *config.ModelConfig, logger *slog.Logger) (textModel, error) {
	return providers.Open(ctx, cfg, logger)
}

// detailsInput is one file details document and the name its dataset uses.
type detailsInput struct {
	path     string
	baseName string
}

// generateSummary reports a generate run.
type generateSummary struct {
	Files   int
	Failed  int
	Records int
}

func runGenerate(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted. Writing what was generated...")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := slog.Default()

	mode, err := generator.ParseMode(generateMode)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(generateFormat)
	if err != nil {
		return err
	}
	inputs, err := collectInputs(args, generateInclude, generateExclude)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no file details found in %s", strings.Join(args, ", "))
	}

	cfg, err := config.Load(config.Options{Path: generateModelConfig, EnvFiles: generateEnvFiles, Logger: logger})
	if err != nil {
		return err
	}
	questions := dataset.ResolveQuestions(generateQuestions, logger)

	var model generator.Model
	if generateUseLLM || mode != generator.ModeQA {
		m, err := openModel(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("open model: %w", err)
		}
		defer m.Close()
		model = m
	}

	outDir, err := output.ResolveDir(generateOutputDir)
	if err != nil {
		return err
	}

	summary := generateSummary{}
	for _, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		n, err := generateOne(ctx, in, generator.Options{
			Questions: questions,
			Config:    cfg,
			Model:     model,
			BaseName:  in.baseName,
			Mode:      mode,
			UseLLM:    generateUseLLM,
			Detailed:  generateDetailed,
			Logger:    logger,
		}, outDir, format)
		summary.Files++
		summary.Records += n
		if err != nil && !errors.Is(err, context.Canceled) {
			summary.Failed++
			logger.Error("file failed", "path", in.path, "error", err)
		}
	}

	if generateCombine {
		if _, err := output.Combine(outDir, format, logger); err != nil {
			return fmt.Errorf("combine datasets: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d records from %d files (%d failed) in %s\n",
		summary.Records, summary.Files, summary.Failed, outDir)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// generateOne writes the dataset for one details file. Records produced
// before a cancellation are still written.
func generateOne(ctx context.Context, in detailsInput, opts generator.Options, outDir string, format output.Format) (int, error) {
	details, err := dataset.LoadFileDetails(in.path)
	if err != nil {
		return 0, err
	}
	opts.Details = details

	records, genErr := generator.Generate(ctx, opts)
	if records == nil && genErr != nil {
		return 0, genErr
	}
	if err := output.WriteFile(output.DatasetPath(outDir, in.baseName, format), records); err != nil {
		return 0, err
	}
	return len(records), genErr
}

// collectInputs expands args into details files. Files are taken as given;
// directories are walked and filtered by the include and exclude patterns,
// matched against slash-separated paths relative to the directory.
func collectInputs(args, include, exclude []string) ([]detailsInput, error) {
	includes, err := compileGlobs(include)
	if err != nil {
		return nil, err
	}
	excludes, err := compileGlobs(exclude)
	if err != nil {
		return nil, err
	}

	var inputs []detailsInput
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			inputs = append(inputs, detailsInput{path: arg, baseName: baseNameFor(filepath.Base(arg))})
			continue
		}

		var found []detailsInput
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if !matchAny(includes, rel) || matchAny(excludes, rel) {
				return nil
			}
			found = append(found, detailsInput{path: path, baseName: baseNameFor(rel)})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		sort.Slice(found, func(i, j int) bool { return found[i].path < found[j].path })
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

// baseNameFor derives the dataset name from a slash-separated relative path:
// the extension and a .details marker are dropped and directories are joined
// with dots, so pkg/mod.py.details.json becomes pkg.mod.py.
func baseNameFor(rel string) string {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = strings.TrimSuffix(rel, detailsSuffix)
	return strings.Join(strings.Split(rel, "/"), ".")
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		matcher, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		matchers = append(matchers, matcher)
	}
	return matchers, nil
}

func matchAny(matchers []glob.Glob, path string) bool {
	for _, m := range matchers {
		if m.Match(path) {
			return true
		}
	}
	return false
}
