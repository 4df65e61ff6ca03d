package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeBackend struct {
	mu      sync.Mutex
	calls   int
	prompts []Prompt
	invoke  func(ctx context.Context, call int, p Prompt) (string, error)
}

func (f *fakeBackend) Name() string  { return "fake" }
func (f *fakeBackend) Model() string { return "fake-1" }

func (f *fakeBackend) Invoke(ctx context.Context, p Prompt) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	return f.invoke(ctx, call, p)
}

func newTestService(b Backend, opts LLMOptions) (*LLMService, *[]time.Duration) {
	opts.Logger = zerolog.Nop()
	s := NewLLMService(b, opts)
	var waits []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return s, &waits
}

func TestLLMService_Translate_Success(t *testing.T) {
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		return "```markdown\nBonjour le monde\n```", nil
	}}
	s, _ := newTestService(fb, LLMOptions{})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text: "Hello world", SourceLang: "en", TargetLang: "fr",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != "Bonjour le monde" {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
	if res.Metadata["model"] != "fake-1" {
		t.Errorf("model metadata = %q", res.Metadata["model"])
	}
}

func TestLLMService_Translate_RetriesRetryable(t *testing.T) {
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		switch call {
		case 1:
			return "", &BackendError{Provider: "fake", StatusCode: 429, Retryable: true, RetryAfter: 5 * time.Second, Err: errors.New("rate limited")}
		case 2:
			return "", &BackendError{Provider: "fake", StatusCode: 500, Retryable: true, Err: errors.New("boom")}
		}
		return "Hallo", nil
	}}
	s, waits := newTestService(fb, LLMOptions{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "de"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != "Hallo" || res.Attempts != 3 {
		t.Errorf("got %q after %d attempts", res.TranslatedText, res.Attempts)
	}
	want := []time.Duration{5 * time.Second, 2 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, (*waits)[i], want[i])
		}
	}
}

func TestLLMService_Translate_NonRetryable(t *testing.T) {
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		return "", &BackendError{Provider: "fake", StatusCode: 400, Err: errors.New("bad request")}
	}}
	s, _ := newTestService(fb, LLMOptions{MaxAttempts: 5})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "de"})
	var be *BackendError
	if !errors.As(err, &be) || be.StatusCode != 400 {
		t.Fatalf("expected 400 BackendError, got %v", err)
	}
	if fb.calls != 1 {
		t.Errorf("calls = %d, want 1", fb.calls)
	}
	if res.Error == "" {
		t.Error("expected error recorded in result")
	}
}

func TestLLMService_Translate_ExhaustsAttempts(t *testing.T) {
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		return "", &BackendError{Provider: "fake", StatusCode: 503, Retryable: true, Err: errors.New("unavailable")}
	}}
	s, _ := newTestService(fb, LLMOptions{MaxAttempts: 3})

	_, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "de"})
	if !IsRetryable(err) {
		t.Errorf("expected the last retryable BackendError, got %v", err)
	}
	if fb.calls != 3 {
		t.Errorf("calls = %d, want 3", fb.calls)
	}
}

func TestLLMService_Translate_Timeout(t *testing.T) {
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		if call == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "Hallo", nil
	}}
	s, _ := newTestService(fb, LLMOptions{MaxAttempts: 2, Timeout: 20 * time.Millisecond})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "de"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != "Hallo" || res.Attempts != 2 {
		t.Errorf("got %q after %d attempts", res.TranslatedText, res.Attempts)
	}
}

func TestLLMService_Translate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fb := &fakeBackend{invoke: func(c context.Context, call int, p Prompt) (string, error) {
		cancel()
		<-c.Done()
		return "", c.Err()
	}}
	s, _ := newTestService(fb, LLMOptions{MaxAttempts: 3})

	_, err := s.Translate(ctx, ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "de"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if fb.calls != 1 {
		t.Errorf("calls = %d, want 1", fb.calls)
	}
}

func TestLLMService_Translate_ProtectsMarkup(t *testing.T) {
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		if strings.Contains(p.User, "`go build`") {
			t.Errorf("inline code reached the model: %q", p.User)
		}
		if call == 1 {
			return "Führe aus", nil
		}
		return strings.Replace(p.User, "Run", "Führe aus", 1), nil
	}}
	s, _ := newTestService(fb, LLMOptions{MaxAttempts: 2, Protect: true})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Run `go build` now", TargetLang: "de"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != "Führe aus `go build` now" {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
	if fb.calls != 2 {
		t.Errorf("calls = %d, want 2 (first reply lost the marker)", fb.calls)
	}
	if !strings.Contains(fb.prompts[0].System, "[PHn]") {
		t.Error("system prompt should carry the marker hint")
	}
}

func TestLLMService_Translate_EmptyReplyRetried(t *testing.T) {
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		if call == 1 {
			return "   ", nil
		}
		return "Hallo", nil
	}}
	s, _ := newTestService(fb, LLMOptions{MaxAttempts: 2})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "de"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != "Hallo" {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
}

func TestLLMService_Translate_Refine(t *testing.T) {
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		if call == 1 {
			return "Hallo Welt draft", nil
		}
		if !strings.Contains(p.User, "Hallo Welt draft") {
			t.Errorf("refinement prompt lacks the draft: %q", p.User)
		}
		return "Hallo Welt", nil
	}}
	s, _ := newTestService(fb, LLMOptions{Refine: true})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello world", SourceLang: "en", TargetLang: "de"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != "Hallo Welt" {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
}

func TestLLMService_Backoff_Capped(t *testing.T) {
	s := NewLLMService(&fakeBackend{}, LLMOptions{BaseDelay: time.Second, MaxDelay: 3 * time.Second, Logger: zerolog.Nop()})

	if got := s.backoff(1, errors.New("x")); got != time.Second {
		t.Errorf("backoff(1) = %v", got)
	}
	if got := s.backoff(5, errors.New("x")); got != 3*time.Second {
		t.Errorf("backoff(5) = %v, want cap", got)
	}
	if got := s.backoff(1, &BackendError{RetryAfter: time.Minute}); got != 3*time.Second {
		t.Errorf("server delay should be capped, got %v", got)
	}
}

func TestLLMService_Translate_ValidationRetried(t *testing.T) {
	const (
		english = "Install the package and then run the tests from the repository root."
		german  = "Installieren Sie das Paket und führen Sie dann die Tests im Stammverzeichnis aus."
	)
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		if call == 1 {
			return english, nil
		}
		return german, nil
	}}
	s, _ := newTestService(fb, LLMOptions{MaxAttempts: 3, Validate: true})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: english, SourceLang: "en", TargetLang: "de"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != german || fb.calls != 2 {
		t.Errorf("got %q after %d calls", res.TranslatedText, fb.calls)
	}
	if _, ok := res.Metadata["validation"]; ok {
		t.Error("validation note set on a valid reply")
	}
}

func TestLLMService_Translate_ValidationKeptOnLastAttempt(t *testing.T) {
	const english = "Install the package and then run the tests from the repository root."
	fb := &fakeBackend{invoke: func(ctx context.Context, call int, p Prompt) (string, error) {
		return english, nil
	}}
	s, _ := newTestService(fb, LLMOptions{MaxAttempts: 2, Validate: true})

	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: english, SourceLang: "en", TargetLang: "de"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != english || fb.calls != 2 {
		t.Errorf("got %q after %d calls", res.TranslatedText, fb.calls)
	}
	if !strings.Contains(res.Metadata["validation"], "detected en") {
		t.Errorf("validation note = %q", res.Metadata["validation"])
	}
}
