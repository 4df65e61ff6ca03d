package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "gemini" || cfg.TargetLang != "ar" {
		t.Errorf("provider=%s target=%s", cfg.Provider, cfg.TargetLang)
	}
	if cfg.MaxChunk != 8292 || cfg.Workers != 1 || cfg.MaxRetries != 3 {
		t.Errorf("max_chunk=%d workers=%d retries=%d", cfg.MaxChunk, cfg.Workers, cfg.MaxRetries)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if !reflect.DeepEqual(cfg.FileTypes(), DefaultFileTypes) {
		t.Errorf("file types = %v", cfg.FileTypes())
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peredoc.yaml")
	data := "provider: ollama\nmax_chunk: 2000\ntimeout: 45s\nsupported_file_types: [md, .RST]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PEREDOC_WORKERS", "4")
	t.Setenv("PEREDOC_TARGET_LANG", "uk")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "ollama" || cfg.MaxChunk != 2000 || cfg.Timeout != 45*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Workers != 4 || cfg.TargetLang != "uk" {
		t.Errorf("env values not applied: workers=%d target=%s", cfg.Workers, cfg.TargetLang)
	}
	if cfg.BaseURL() != "http://gpu-box:11434" {
		t.Errorf("BaseURL = %q", cfg.BaseURL())
	}
	if want := []string{".md", ".rst"}; !reflect.DeepEqual(cfg.FileTypes(), want) {
		t.Errorf("file types = %v, want %v", cfg.FileTypes(), want)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Provider: "gemini", MaxChunk: 100, Workers: 1, MaxRetries: 1, Timeout: time.Second, TargetLang: "ar", LogFormat: "json"}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "babelfish" }},
		{"zero max chunk", func(c *Config) { c.MaxChunk = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"no target", func(c *Config) { c.TargetLang = " " }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	ok := base()
	if err := ok.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCredentials_For(t *testing.T) {
	c := Credentials{GeminiAPIKey: "g", CohereAPIKey: "c", OllamaBaseURL: "http://x"}
	if key, _ := c.For("Gemini"); key != "g" {
		t.Errorf("gemini key = %q", key)
	}
	if _, url := c.For("ollama"); url != "http://x" {
		t.Errorf("ollama url = %q", url)
	}
	if key, url := c.For("identity"); key != "" || url != "" {
		t.Error("identity has no credentials")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if got, err := LoadEnv(filepath.Join(dir, ".env")); err != nil || got != "" {
		t.Errorf("missing file: got %q, %v", got, err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PEREDOC_TEST_ENV_VALUE=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PEREDOC_TEST_ENV_VALUE", "")
	os.Unsetenv("PEREDOC_TEST_ENV_VALUE")
	if got, err := LoadEnv(path); err != nil || got != path {
		t.Fatalf("LoadEnv = %q, %v", got, err)
	}
	if os.Getenv("PEREDOC_TEST_ENV_VALUE") != "loaded" {
		t.Error("value not loaded into environment")
	}
}
