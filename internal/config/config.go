// Package config loads run settings from an optional YAML file, PEREDOC_*
// environment variables and bound CLI flags, and provider credentials from
// the environment (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/valpere/peredoc/internal/chunker"
	"github.com/valpere/peredoc/internal/translator"
)

// EnvPrefix is the prefix of every environment override (PEREDOC_MAX_CHUNK).
const EnvPrefix = "PEREDOC"

type Config struct {
	Provider           string        `mapstructure:"provider"`
	Model              string        `mapstructure:"model"`
	MaxChunk           int           `mapstructure:"max_chunk"`
	SupportedFileTypes []string      `mapstructure:"supported_file_types"`
	GlossaryPath       string        `mapstructure:"glossary_path"`
	InputDirectory     string        `mapstructure:"input_directory"`
	OutputDirectory    string        `mapstructure:"output_directory"`
	SourceLang         string        `mapstructure:"source_lang"`
	TargetLang         string        `mapstructure:"target_lang"`
	Workers            int           `mapstructure:"workers"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	Temperature        float64       `mapstructure:"temperature"`
	Protect            bool          `mapstructure:"protect"`
	ValidateLang       bool          `mapstructure:"validate"`
	Refine             bool          `mapstructure:"refine"`
	DBPath             string        `mapstructure:"db_path"`
	NoCache            bool          `mapstructure:"no_cache"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
	ServeAddr          string        `mapstructure:"serve_addr"`

	Credentials Credentials `mapstructure:"-"`
}

// Credentials are read from the conventional provider variables, not from
// the PEREDOC_ namespace.
type Credentials struct {
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`
	CohereAPIKey      string `envconfig:"COHERE_API_KEY"`
	GroqAPIKey        string `envconfig:"GROQ_API_KEY"`
	TogetherAPIKey    string `envconfig:"TOGETHER_API_KEY"`
	OpenRouterAPIKey  string `envconfig:"OPENROUTER_API_KEY"`
	GoogleCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	OllamaBaseURL     string `envconfig:"OLLAMA_BASE_URL"`
}

// For returns the API key and base URL override of a provider.
func (c Credentials) For(provider string) (apiKey, baseURL string) {
	switch strings.ToLower(provider) {
	case "gemini":
		return c.GeminiAPIKey, ""
	case "cohere":
		return c.CohereAPIKey, ""
	case "groq":
		return c.GroqAPIKey, ""
	case "together":
		return c.TogetherAPIKey, ""
	case "openrouter":
		return c.OpenRouterAPIKey, ""
	case "ollama":
		return "", c.OllamaBaseURL
	}
	return "", ""
}

// DefaultFileTypes are the extensions with a registered adapter.
var DefaultFileTypes = []string{".md", ".mdx", ".rst", ".rstx", ".html", ".py", ".ipynb"}

// New returns a viper instance with every default set and environment
// overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "")
	v.SetDefault("max_chunk", chunker.DefaultMaxChars)
	v.SetDefault("supported_file_types", DefaultFileTypes)
	v.SetDefault("glossary_path", "")
	v.SetDefault("input_directory", "input_files")
	v.SetDefault("output_directory", "output_files")
	v.SetDefault("source_lang", "en")
	v.SetDefault("target_lang", "ar")
	v.SetDefault("workers", 1)
	v.SetDefault("timeout", 120*time.Second)
	v.SetDefault("max_retries", 3)
	v.SetDefault("temperature", translator.DefaultTemperature)
	v.SetDefault("protect", false)
	v.SetDefault("validate", false)
	v.SetDefault("refine", false)
	v.SetDefault("db_path", "./data/peredoc.db")
	v.SetDefault("no_cache", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("serve_addr", ":8080")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (an explicit path must exist; the default
// search locations are optional), decodes v and the credentials, and
// validates the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("peredoc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "peredoc"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadEnv loads a .env file into the process environment. A missing file
// is not an error; the returned path is empty when nothing was loaded.
func LoadEnv(path string) (string, error) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("loading %s: %w", path, err)
	}
	return path, nil
}

func (c *Config) Validate() error {
	if _, ok := translator.Lookup(c.Provider); !ok {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.MaxChunk < 1 {
		return fmt.Errorf("max_chunk must be >= 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if strings.TrimSpace(c.TargetLang) == "" {
		return fmt.Errorf("target_lang is required")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// APIKey returns the credential of the configured provider.
func (c *Config) APIKey() string {
	key, _ := c.Credentials.For(c.Provider)
	return key
}

// BaseURL returns the endpoint override of the configured provider.
func (c *Config) BaseURL() string {
	_, url := c.Credentials.For(c.Provider)
	return url
}

// FileTypes returns SupportedFileTypes lower-cased with a leading dot.
func (c *Config) FileTypes() []string {
	out := make([]string, 0, len(c.SupportedFileTypes))
	for _, ext := range c.SupportedFileTypes {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
