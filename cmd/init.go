package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adalundhe/instructgen/core/config"
	"github.com/adalundhe/instructgen/core/dataset"
)

var initForce bool

// initCmd writes editable copies of the built-in questions and model config.
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write the default questions and model config",
	Long: `Write the built-in question set to instructgen_questions.json and the
built-in model configuration to instructgen_model_config.yaml so they can be
edited. API keys are written as ${ENV} references, never as values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	if !initForce {
		for _, name := range []string{dataset.QuestionsFile, config.ModelConfigFile} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
	}

	questionsPath, err := dataset.WriteQuestions(dir, dataset.DefaultQuestions())
	if err != nil {
		return fmt.Errorf("write questions: %w", err)
	}
	configPath, err := config.WriteModelConfig(dir, config.DefaultModelConfig())
	if err != nil {
		return fmt.Errorf("write model config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nWrote %s\n", questionsPath, configPath)
	return nil
}
