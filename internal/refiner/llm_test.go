package refiner

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLLMRefiner_Refine_Success(t *testing.T) {
	var gotSystem, gotUser string
	r := NewLLMRefiner(func(ctx context.Context, system, user string) (string, error) {
		gotSystem, gotUser = system, user
		return "Here is the refined translation: مرحبا بالعالم", nil
	})

	result, err := r.Refine(context.Background(), "en", "ar", "Hello world", "أهلا عالم")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "مرحبا بالعالم" {
		t.Errorf("expected cleaned reply, got %q", result)
	}
	if !strings.Contains(gotSystem, "ar technical editor") {
		t.Errorf("system prompt should name the target language: %q", gotSystem)
	}
	if !strings.Contains(gotUser, "Hello world") || !strings.Contains(gotUser, "أهلا عالم") {
		t.Errorf("user prompt should carry source and draft: %q", gotUser)
	}
}

func TestLLMRefiner_Refine_ReturnsEmpty(t *testing.T) {
	r := NewLLMRefiner(func(ctx context.Context, system, user string) (string, error) {
		return "   ", nil
	})

	result, err := r.Refine(context.Background(), "en", "ar", "Hello", "مرحبا")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "مرحبا" {
		t.Errorf("expected draft fallback, got %q", result)
	}
}

func TestLLMRefiner_Refine_Error(t *testing.T) {
	boom := errors.New("backend down")
	r := NewLLMRefiner(func(ctx context.Context, system, user string) (string, error) {
		return "", boom
	})

	if _, err := r.Refine(context.Background(), "en", "ar", "Hello", "مرحبا"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

func TestBuildRefinementPrompt(t *testing.T) {
	p := buildRefinementPrompt("en", "ar")
	for _, want := range []string{"Code blocks", "[PHn]", "Output ONLY"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
