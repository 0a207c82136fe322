package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	AI struct {
		Provider       string `yaml:"provider"`
		Model          string `yaml:"model"` // page writer model
		APIKey         string `yaml:"api_key"`
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"ai"`
	Synth struct {
		UseLLM bool `yaml:"use_llm"`
		Strict bool `yaml:"strict"`
	} `yaml:"synth"`
	Render struct {
		Primary string `yaml:"primary"` // "mathml" or "katex"
	} `yaml:"render"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default is the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	cfg.Store.Path = "coursegen.db"
	cfg.AI.Provider = "gemini"
	cfg.AI.TimeoutSeconds = 60
	cfg.Render.Primary = "mathml"
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error;
// a malformed one is. COURSEGEN_* environment variables (also read from
// .env) win over the file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"COURSEGEN_DB":             &cfg.Store.Path,
		"COURSEGEN_AI_PROVIDER":    &cfg.AI.Provider,
		"COURSEGEN_AI_MODEL":       &cfg.AI.Model,
		"COURSEGEN_API_KEY":        &cfg.AI.APIKey,
		"COURSEGEN_AI_BASE_URL":    &cfg.AI.BaseURL,
		"COURSEGEN_RENDER_PRIMARY": &cfg.Render.Primary,
		"COURSEGEN_LOG_LEVEL":      &cfg.Log.Level,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"COURSEGEN_USE_LLM": &cfg.Synth.UseLLM,
		"COURSEGEN_STRICT":  &cfg.Synth.Strict,
	}
	for key, dst := range bools {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
	}

	if v := strings.TrimSpace(os.Getenv("COURSEGEN_AI_TIMEOUT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid COURSEGEN_AI_TIMEOUT: %w", err)
		}
		cfg.AI.TimeoutSeconds = n
	}
	return nil
}

// ConfigureLogger applies the configured level to the standard logrus logger.
func (c *Config) ConfigureLogger() error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	logrus.SetLevel(level)
	return nil
}
