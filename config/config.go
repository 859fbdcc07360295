// Package config loads chainy settings from defaults, an optional YAML file,
// CHAINY_ environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CHAINY_MODEL_NAME.
const EnvPrefix = "CHAINY"

// Backends understood by model.backend.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// DefaultPrompts are the steps run when no prompt is configured: read a file,
// annotate it, save the result.
var DefaultPrompts = []string{
	"Read the content of the file whose name is in the Input.",
	"Add comments and annotations to the code in the Input.",
	"Save the code in the Input as commented.py",
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Model     ModelConfig     `mapstructure:"model"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Log       LogConfig       `mapstructure:"log"`
}

type ModelConfig struct {
	Backend string        `mapstructure:"backend"`  // "ollama", "openai"
	Name    string        `mapstructure:"name"`     // model tag, e.g. qwen2.5
	BaseURL string        `mapstructure:"base_url"` // empty means the backend default
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	Model    string        `mapstructure:"model"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // 0 disables memoization
}

type ChainConfig struct {
	Prompts          []string `mapstructure:"prompts"`
	KeepToolRequests bool     `mapstructure:"keep_tool_requests"`
}

type ToolsConfig struct {
	Root string `mapstructure:"root"` // confines file tools; empty means the working directory
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console", "json"
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"backend":            "model.backend",
	"model":              "model.name",
	"base-url":           "model.base_url",
	"api-key":            "model.api_key",
	"timeout":            "model.timeout",
	"embedding-model":    "embedding.model",
	"keep-tool-requests": "chain.keep_tool_requests",
	"root":               "tools.root",
	"log-level":          "log.level",
	"log-format":         "log.format",
}

// Flags returns a flag set declaring one flag per overridable key plus --config.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to a YAML config file")
	fs.String("backend", BackendOllama, "model backend: ollama or openai")
	fs.StringP("model", "m", "qwen2.5", "model name")
	fs.String("base-url", "", "backend base URL")
	fs.String("api-key", "", "API key for the openai backend")
	fs.Duration("timeout", 5*time.Minute, "per-request timeout")
	fs.String("embedding-model", "nomic-embed-text", "embedding model name")
	fs.StringArrayP("prompt", "p", nil, "chain prompt (repeatable, replaces the configured prompts)")
	fs.Bool("keep-tool-requests", false, "keep the assistant turn that requested tools in the transcript")
	fs.String("root", "", "directory the file tools are confined to")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "console", "log format: console or json")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.backend", BackendOllama)
	v.SetDefault("model.name", "qwen2.5")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.timeout", "5m")

	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.cache_ttl", "10m")

	v.SetDefault("chain.prompts", DefaultPrompts)
	v.SetDefault("chain.keep_tool_requests", false)

	v.SetDefault("tools.root", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the configuration. path may be empty, in which case config.yaml
// is looked up in the working directory and its absence is not an error.
// flags may be nil; only flags that were set override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if flags != nil && flags.Changed("prompt") {
		// StringArray keeps commas inside a prompt, which viper's flag binding would split.
		prompts, err := flags.GetStringArray("prompt")
		if err != nil {
			return nil, err
		}
		cfg.Chain.Prompts = prompts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendOllama, BackendOpenAI:
	default:
		return fmt.Errorf("%w: unknown model.backend %q", ErrInvalidConfig, c.Model.Backend)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("%w: model.name is empty", ErrInvalidConfig)
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("%w: model.timeout is negative", ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Logger builds a logger writing to w in the configured format and level.
func (c LogConfig) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if c.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
