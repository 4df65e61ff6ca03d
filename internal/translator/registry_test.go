package translator

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestProviders_Sorted(t *testing.T) {
	ps := Providers()
	if len(ps) == 0 {
		t.Fatal("no providers")
	}
	for i := 1; i < len(ps); i++ {
		if ps[i-1].Name > ps[i].Name {
			t.Errorf("providers not sorted: %s before %s", ps[i-1].Name, ps[i].Name)
		}
	}
}

func TestLookup(t *testing.T) {
	if p, ok := Lookup(" Gemini "); !ok || p.Name != "gemini" {
		t.Errorf("Lookup(Gemini) = %+v, %v", p, ok)
	}
	if _, ok := Lookup("systran"); ok {
		t.Error("unexpected provider systran")
	}
}

func TestAvailableModels_LLMOnly(t *testing.T) {
	models := AvailableModels()
	if _, ok := models["google"]; ok {
		t.Error("google takes no model")
	}
	if len(models["ollama"]) == 0 {
		t.Error("expected ollama models")
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(Options{Provider: "groq", Model: "custom", Temperature: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if b.Model() != "custom" || b.temperature != 0.1 {
		t.Errorf("options not applied: model=%s temp=%v", b.Model(), b.temperature)
	}
	if b.baseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("baseURL = %s", b.baseURL)
	}

	if _, err := NewBackend(Options{Provider: "google"}); err == nil {
		t.Error("google has no prompt backend")
	}
	if _, err := NewBackend(Options{Provider: "nope"}); err == nil {
		t.Error("expected unsupported provider error")
	}
}

func TestNewService(t *testing.T) {
	tests := map[string]string{
		"identity": "identity",
		"google":   "google",
		"ollama":   "ollama",
	}
	for provider, want := range tests {
		svc, err := NewService(Options{Provider: provider}, LLMOptions{})
		if err != nil {
			t.Fatalf("NewService(%s): %v", provider, err)
		}
		if svc.Name() != want {
			t.Errorf("Name = %q, want %q", svc.Name(), want)
		}
	}
}

func TestIdentityService(t *testing.T) {
	svc := NewIdentityService()
	res, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "  keep me\n"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TranslatedText != "  keep me\n" {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Translate(ctx, ServiceConfig{}, TranslateRequest{Text: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGoogleBackendError(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
		status    int
	}{
		{&googleapi.Error{Code: 429}, true, 429},
		{&googleapi.Error{Code: 503}, true, 503},
		{&googleapi.Error{Code: 403}, false, 403},
		{errors.New("plain"), false, 0},
	}
	for _, tt := range tests {
		be := googleBackendError(tt.err)
		if be.Retryable != tt.retryable || be.StatusCode != tt.status {
			t.Errorf("googleBackendError(%v) = retryable %v status %d", tt.err, be.Retryable, be.StatusCode)
		}
	}
}
