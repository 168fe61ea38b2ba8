// Package cmd provides the instructgen command line.
package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	rootQuiet   bool
	rootVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "instructgen",
	Short: "instructgen - fine-tuning datasets from source code facts",
	Long: `instructgen turns the structural facts extracted from source files into
instruction, input and output records for supervised fine-tuning.

Templated questions are answered from the extracted metadata or by a language
model; the instruct mode asks the model to discover instructions per file and
method.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(cmd.ErrOrStderr()))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Log prompts, responses and context sizes")
}

func Execute() error {
	return rootCmd.Execute()
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case rootQuiet:
		level = slog.LevelWarn
	case rootVerbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
