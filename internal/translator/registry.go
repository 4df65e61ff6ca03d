package translator

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// DefaultTemperature keeps model output close to the source.
const DefaultTemperature = 0.3

// ProviderInfo describes one selectable translation provider.
type ProviderInfo struct {
	Name         string
	Display      string
	BaseURL      string
	DefaultModel string
	Models       []string
	// KeyEnv names the environment variable holding the credential.
	KeyEnv string
	// LLM is false for services that take no prompt.
	LLM    bool
	format apiFormat
}

var providers = map[string]ProviderInfo{
	"gemini": {
		Name:         "gemini",
		Display:      "Google AI (Gemini)",
		BaseURL:      "https://generativelanguage.googleapis.com",
		DefaultModel: "gemini-1.5-pro",
		Models:       []string{"gemini-1.5-pro", "gemini-2.0-flash", "gemini-2.5-flash"},
		KeyEnv:       "GEMINI_API_KEY",
		LLM:          true,
		format:       formatGeminiNative,
	},
	"cohere": {
		Name:         "cohere",
		Display:      "Cohere",
		BaseURL:      "https://api.cohere.com",
		DefaultModel: "command-r-plus-08-2024",
		Models:       []string{"command-r-plus-08-2024", "command-r-08-2024", "command-r"},
		KeyEnv:       "COHERE_API_KEY",
		LLM:          true,
		format:       formatCohereChat,
	},
	"groq": {
		Name:         "groq",
		Display:      "Groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		DefaultModel: "llama-3.3-70b-versatile",
		Models:       []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
		KeyEnv:       "GROQ_API_KEY",
		LLM:          true,
		format:       formatOpenAIChat,
	},
	"together": {
		Name:         "together",
		Display:      "Together AI",
		BaseURL:      "https://api.together.xyz/v1",
		DefaultModel: "mistralai/Mixtral-8x7B-Instruct-v0.1",
		Models:       []string{"mistralai/Mixtral-8x7B-Instruct-v0.1", "meta-llama/Llama-2-70b-chat-hf"},
		KeyEnv:       "TOGETHER_API_KEY",
		LLM:          true,
		format:       formatOpenAIChat,
	},
	"openrouter": {
		Name:         "openrouter",
		Display:      "OpenRouter",
		BaseURL:      "https://openrouter.ai/api/v1",
		DefaultModel: "google/gemini-2.0-flash-exp:free",
		Models: []string{
			"google/gemini-2.0-flash-exp:free",
			"qwen/qwen2.5-72b-instruct:free",
			"mistralai/mistral-nemo:free",
			"meta-llama/llama-3.1-8b-instruct:free",
		},
		KeyEnv: "OPENROUTER_API_KEY",
		LLM:    true,
		format: formatOpenAIChat,
	},
	"ollama": {
		Name:         "ollama",
		Display:      "Ollama (local)",
		BaseURL:      "http://localhost:11434",
		DefaultModel: "llama3.2",
		Models:       []string{"llama3.2", "gemma2:2b", "qwen2.5:3b", "mistral:7b", "phi4:14b"},
		KeyEnv:       "OLLAMA_BASE_URL",
		LLM:          true,
		format:       formatOllamaGenerate,
	},
	"google": {
		Name:    "google",
		Display: "Google Cloud Translation",
		KeyEnv:  "GOOGLE_APPLICATION_CREDENTIALS",
	},
	"identity": {
		Name:    "identity",
		Display: "Identity (returns input unchanged)",
	},
}

// Providers lists every provider sorted by name.
func Providers() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a provider by case-insensitive name.
func Lookup(name string) (ProviderInfo, bool) {
	p, ok := providers[normalizeName(name)]
	return p, ok
}

// AvailableModels maps LLM provider names to their known models.
func AvailableModels() map[string][]string {
	out := make(map[string][]string)
	for name, p := range providers {
		if p.LLM {
			out[name] = append([]string(nil), p.Models...)
		}
	}
	return out
}

// Options selects and configures a provider.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Credentials string
	Temperature float64
	// Timeout bounds a single HTTP exchange; zero leaves it to the caller's
	// context.
	Timeout time.Duration
	Client  *http.Client
}

// NewBackend builds the HTTP backend of an LLM provider.
func NewBackend(opts Options) (*HTTPBackend, error) {
	p, ok := Lookup(opts.Provider)
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
	if !p.LLM {
		return nil, fmt.Errorf("provider %s does not take prompts", p.Name)
	}

	b := &HTTPBackend{
		name:        p.Name,
		format:      p.format,
		baseURL:     p.BaseURL,
		apiKey:      opts.APIKey,
		model:       p.DefaultModel,
		temperature: DefaultTemperature,
		client:      opts.Client,
	}
	if opts.BaseURL != "" {
		b.baseURL = opts.BaseURL
	}
	if opts.Model != "" {
		b.model = opts.Model
	}
	if opts.Temperature > 0 {
		b.temperature = opts.Temperature
	}
	if b.client == nil {
		b.client = &http.Client{Timeout: opts.Timeout}
	}
	if p.Name == "openrouter" {
		b.headers = map[string]string{
			"HTTP-Referer": "https://github.com/valpere/peredoc",
			"X-Title":      "PereDoc",
		}
	}
	return b, nil
}

// NewService returns the TranslationService for opts.Provider: an
// LLMService around the provider's backend, or one of the prompt-less
// services.
func NewService(opts Options, llm LLMOptions) (TranslationService, error) {
	switch normalizeName(opts.Provider) {
	case "identity":
		return NewIdentityService(), nil
	case "google":
		return NewGoogleService(opts.Credentials, llm.Protect), nil
	}
	b, err := NewBackend(opts)
	if err != nil {
		return nil, err
	}
	return NewLLMService(b, llm), nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
