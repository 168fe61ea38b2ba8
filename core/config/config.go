// Package config defines the model configuration bundle used by dataset
// generation: prompt slots, the inference model, and the brittle string
// contracts the pipeline depends on.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/adalundhe/instructgen/core/prompt"
)

// ModelConfigFile is the default model configuration file name.
const ModelConfigFile = "instructgen_model_config.yaml"

// Defaults for the string contracts between prompts and model output.
const (
	DefaultInstructionDelimiter = "In the context of Home Assistant"
	DefaultBudgetFraction       = 0.70
	DefaultCodeLanguage         = "python"
	DefaultProvider             = "anthropic"
	DefaultModel                = "claude-sonnet-4-5-20250901"
	DefaultContextLength        = 200000
	DefaultMaxTokens            = 4096
	DefaultTokenizer            = "tiktoken:cl100k_base"
)

// DefaultExcludedPrefixes are instruction prefixes left out of the Code
// Elements aggregate.
var DefaultExcludedPrefixes = []string{"Call code graph", "Docstring"}

// DefaultLabelConnectives end an aggregate label. The earliest match in an
// instruction wins.
var DefaultLabelConnectives = []string{
	" are in the Python file",
	" in the Python file",
	" of the Python file",
	" in Python file:",
}

// ModelConfig is the typed model configuration bundle.
type ModelConfig struct {
	SystemPrompt         string `yaml:"system_prompt"`
	InstructionPrompt    string `yaml:"instruction_prompt"`
	InstructionGenPrompt string `yaml:"instruction_gen_prompt_2"`
	PromptTemplate       string `yaml:"prompt_template"`

	InstructionDelimiter string   `yaml:"instruction_delimiter"`
	ExcludedPrefixes     []string `yaml:"excluded_prefixes"`
	LabelConnectives     []string `yaml:"label_connectives"`
	BudgetFraction       float64  `yaml:"budget_fraction"`
	CodeLanguage         string   `yaml:"code_language"`

	InferenceModel InferenceModel `yaml:"inference_model"`
}

// InferenceModel selects the provider and its parameters.
type InferenceModel struct {
	Provider    string      `yaml:"provider"`
	ModelParams ModelParams `yaml:"model_params"`
}

// ModelParams configures one provider model.
type ModelParams struct {
	Model         string        `yaml:"model"`
	ContextLength int           `yaml:"context_length"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   float64       `yaml:"temperature"`
	APIKey        string        `yaml:"api_key,omitempty"`
	BaseURL       string        `yaml:"base_url,omitempty"`
	Tokenizer     string        `yaml:"tokenizer"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheSize     int           `yaml:"cache_size"`
}

// DefaultModelConfig returns the built-in configuration.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		SystemPrompt: "You are a master mathematician and Python programmer. " +
			"Provide a brief yet thorough answer to the given question considering the context.",
		InstructionPrompt: "### Instruction:\nGiven this context:\n'{context}'\n" +
			"Answer the following question and provide your reasoning: {query}\n### Response:",
		InstructionGenPrompt: "### Instruction:\nGiven this context:\n'{context}'\n" +
			"Write the distinct questions or tasks a developer would ask about this code. " +
			"Begin every one of them with the exact phrase \"" + DefaultInstructionDelimiter + "\" " +
			"and do not number them.\n### Response:",
		PromptTemplate:       "{system_prompt}\n{instruction_prompt}",
		InstructionDelimiter: DefaultInstructionDelimiter,
		ExcludedPrefixes:     slices.Clone(DefaultExcludedPrefixes),
		LabelConnectives:     slices.Clone(DefaultLabelConnectives),
		BudgetFraction:       DefaultBudgetFraction,
		CodeLanguage:         DefaultCodeLanguage,
		InferenceModel: InferenceModel{
			Provider: DefaultProvider,
			ModelParams: ModelParams{
				Model:         DefaultModel,
				ContextLength: DefaultContextLength,
				MaxTokens:     DefaultMaxTokens,
				Temperature:   0.2,
				Tokenizer:     DefaultTokenizer,
				Timeout:       2 * time.Minute,
				CacheSize:     1024,
			},
		},
	}
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid model config: " + strings.Join(e.Problems, "; ")
}

// Validate checks that every slot the pipeline reads is present and that the
// assembled prompts reference the placeholders they will be filled with.
func (c *ModelConfig) Validate() error {
	var problems []string
	missing := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			problems = append(problems, name+" is required")
		}
	}
	missing("system_prompt", c.SystemPrompt)
	missing("instruction_prompt", c.InstructionPrompt)
	missing("instruction_gen_prompt_2", c.InstructionGenPrompt)
	missing("prompt_template", c.PromptTemplate)
	missing("instruction_delimiter", c.InstructionDelimiter)
	missing("inference_model.provider", c.InferenceModel.Provider)
	missing("inference_model.model_params.model", c.InferenceModel.ModelParams.Model)

	if c.InferenceModel.ModelParams.ContextLength <= 0 {
		problems = append(problems, "inference_model.model_params.context_length must be positive")
	}
	if c.BudgetFraction <= 0 || c.BudgetFraction > 1 {
		problems = append(problems, fmt.Sprintf("budget_fraction must be in (0, 1], got %v", c.BudgetFraction))
	}

	if c.PromptTemplate != "" {
		problems = append(problems, c.checkPlaceholders("instruction_prompt", c.InstructionPrompt, prompt.SlotContext, prompt.SlotQuery)...)
		problems = append(problems, c.checkPlaceholders("instruction_gen_prompt_2", c.InstructionGenPrompt, prompt.SlotContext)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// checkPlaceholders verifies that the template assembled with instruction
// references each required slot and nothing the pipeline cannot fill.
func (c *ModelConfig) checkPlaceholders(name, instruction string, required ...string) []string {
	stage, err := prompt.NewBuilder(c.PromptTemplate, c.SystemPrompt).Stage(instruction)
	if err != nil {
		return []string{fmt.Sprintf("prompt_template with %s: %v", name, err)}
	}
	found := prompt.Placeholders(string(stage))

	var problems []string
	for _, slot := range required {
		if !slices.Contains(found, slot) {
			problems = append(problems, fmt.Sprintf("prompt_template with %s does not reference {%s}", name, slot))
		}
	}
	for _, slot := range found {
		if slot != prompt.SlotContext && slot != prompt.SlotQuery {
			problems = append(problems, fmt.Sprintf("prompt_template with %s references unknown {%s}", name, slot))
		}
	}
	return problems
}

// applyDefaults fills optional fields left empty by a config file.
func (c *ModelConfig) applyDefaults() {
	if c.ExcludedPrefixes == nil {
		c.ExcludedPrefixes = slices.Clone(DefaultExcludedPrefixes)
	}
	if c.LabelConnectives == nil {
		c.LabelConnectives = slices.Clone(DefaultLabelConnectives)
	}
	if c.CodeLanguage == "" {
		c.CodeLanguage = DefaultCodeLanguage
	}
	if c.InferenceModel.ModelParams.Tokenizer == "" {
		c.InferenceModel.ModelParams.Tokenizer = DefaultTokenizer
	}
}
