package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME}. Bare $VAR is left alone because prompts
// may contain dollar signs.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// apiKeyEnv lists the environment variables consulted for each provider's
// API key, in order.
var apiKeyEnv = map[string][]string{
	"anthropic": {"ANTHROPIC_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"google":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Options controls how a ModelConfig is loaded.
type Options struct {
	// Path of the config file. Empty searches the default locations.
	Path string
	// EnvFiles are loaded before parsing. Existing variables win.
	EnvFiles []string
	Logger   *slog.Logger
}

// Load builds a ModelConfig from defaults, the config file, a sibling
// ".local" override file and the environment, then validates it. A missing
// config file falls back to the defaults; an unreadable or invalid one is an
// error.
func Load(opts Options) (*ModelConfig, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env", ".env.local"}
	}
	loadEnvFiles(opts.EnvFiles)

	cfg := DefaultModelConfig()

	path := opts.Path
	if path == "" {
		path = FindModelConfig()
	}
	if path == "" {
		opts.Logger.Info("model config file not found, using default model config")
	} else {
		found, err := loadYAMLFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("model config %s: %w", path, err)
		}
		if !found {
			if opts.Path != "" {
				return nil, fmt.Errorf("model config %s: %w", path, os.ErrNotExist)
			}
		} else {
			opts.Logger.Info("using model config", "path", path)
		}
		if _, err := loadYAMLFile(localPath(path), cfg); err != nil {
			return nil, fmt.Errorf("local model config: %w", err)
		}
	}

	applyEnvironment(cfg)
	cfg.applyDefaults()
	resolveAPIKey(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a ModelConfig from YAML over the defaults, without reading
// files or the environment.
func Parse(data []byte) (*ModelConfig, error) {
	cfg := DefaultModelConfig()
	if err := decodeYAML(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindModelConfig returns the first existing default config location, or "".
func FindModelConfig() string {
	candidates := []string{
		ModelConfigFile,
		filepath.Join("configs", ModelConfigFile),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// WriteModelConfig writes the default configuration to dir/ModelConfigFile.
// API keys are written as environment references.
func WriteModelConfig(dir string, cfg *ModelConfig) (string, error) {
	if dir == "" {
		dir = "."
	}
	if cfg == nil {
		cfg = DefaultModelConfig()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	out := *cfg
	if vars := apiKeyVars(out.InferenceModel.Provider); len(vars) > 0 {
		out.InferenceModel.ModelParams.APIKey = "${" + vars[0] + "}"
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return "", fmt.Errorf("marshal model config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(dir, ModelConfigFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("write model config: %w", err)
	}
	return path, nil
}

func loadEnvFiles(files []string) {
	for _, f := range files {
		// godotenv.Load never overwrites variables already set.
		_ = godotenv.Load(f)
	}
}

func loadYAMLFile(path string, cfg *ModelConfig) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, decodeYAML(data, cfg)
}

func decodeYAML(data []byte, cfg *ModelConfig) error {
	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func applyEnvironment(cfg *ModelConfig) {
	params := &cfg.InferenceModel.ModelParams
	if v := os.Getenv("INSTRUCTGEN_PROVIDER"); v != "" {
		cfg.InferenceModel.Provider = v
	}
	if v := os.Getenv("INSTRUCTGEN_MODEL"); v != "" {
		params.Model = v
	}
	if v := os.Getenv("INSTRUCTGEN_BASE_URL"); v != "" {
		params.BaseURL = v
	}
	if v := os.Getenv("INSTRUCTGEN_CONTEXT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.ContextLength = n
		}
	}
	if v := os.Getenv("INSTRUCTGEN_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.MaxTokens = n
		}
	}
	if v := os.Getenv("INSTRUCTGEN_BUDGET_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.BudgetFraction = f
		}
	}
	if v := os.Getenv("INSTRUCTGEN_INSTRUCTION_DELIMITER"); v != "" {
		cfg.InstructionDelimiter = v
	}
}

// apiKeyVars returns the environment variables holding a provider's API key.
// Provider names match case-insensitively.
func apiKeyVars(provider string) []string {
	return apiKeyEnv[strings.ToLower(strings.TrimSpace(provider))]
}

// resolveAPIKey fills an empty API key from the provider's environment
// variables.
func resolveAPIKey(cfg *ModelConfig) {
	params := &cfg.InferenceModel.ModelParams
	if params.APIKey != "" {
		return
	}
	for _, name := range apiKeyVars(cfg.InferenceModel.Provider) {
		if v := os.Getenv(name); v != "" {
			params.APIKey = v
			return
		}
	}
}
