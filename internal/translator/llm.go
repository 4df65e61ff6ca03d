package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/peredoc/internal/placeholder"
	"github.com/valpere/peredoc/internal/postprocess"
	"github.com/valpere/peredoc/internal/refiner"
	"github.com/valpere/peredoc/internal/validator"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultCallTimeout = 120 * time.Second
)

// LLMOptions configures the boundary around a Backend.
type LLMOptions struct {
	// MaxAttempts is the total number of calls per chunk, retries included.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Timeout bounds each backend call; expiry is a retryable BackendError.
	Timeout time.Duration
	// Protect swaps markup for [PHn] markers before the call.
	Protect bool
	// Validate checks the reply is in the target language.
	Validate bool
	// Refine runs a second editing pass through the same backend.
	Refine bool
	Logger zerolog.Logger
}

// LLMService is the TranslationService of every prompt-driven provider. It
// owns the prompt, the per-call timeout, bounded retry with backoff, output
// cleaning and the optional protect, validate and refine steps.
type LLMService struct {
	backend   Backend
	opts      LLMOptions
	validator *validator.Validator
	refiner   refiner.Refiner
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewLLMService(b Backend, opts LLMOptions) *LLMService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultCallTimeout
	}

	s := &LLMService{backend: b, opts: opts, sleep: sleepContext}
	if opts.Validate {
		s.validator = validator.New()
	}
	if opts.Refine {
		s.refiner = refiner.NewLLMRefiner(func(ctx context.Context, system, user string) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
			return b.Invoke(callCtx, Prompt{System: system, User: user})
		})
	}
	return s
}

func (s *LLMService) Name() string { return s.backend.Name() }

func (s *LLMService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{
		ServiceName: s.Name(),
		Metadata:    map[string]string{"model": s.backend.Model()},
	}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	text := req.Text
	var markers *placeholder.Markers
	if s.opts.Protect {
		text, markers = placeholder.Protect(text)
	}
	protectedReq := req
	protectedReq.Text = text
	prompt := BuildPrompt(protectedReq, markers.Len() > 0)

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		result.Attempts = attempt
		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			return result, err
		}

		out, err := s.call(ctx, prompt)
		if err == nil {
			out, err = s.finish(out, req.Text, markers)
		}
		if err == nil && s.validator != nil {
			if verr := s.validator.Check(out, req.TargetLang); verr != nil {
				if attempt < s.opts.MaxAttempts {
					err = &BackendError{Provider: s.Name(), Retryable: true, Err: fmt.Errorf("validation: %w", verr)}
				} else {
					s.opts.Logger.Warn().Err(verr).Str("provider", s.Name()).Msg("validation failed on last attempt, keeping result")
					result.Metadata["validation"] = verr.Error()
				}
			}
		}
		if err == nil {
			result.TranslatedText = s.refine(ctx, req, out, markers)
			result.Confidence = 0.7
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil || !IsRetryable(err) || attempt == s.opts.MaxAttempts {
			break
		}

		wait := s.backoff(attempt, err)
		s.opts.Logger.Warn().
			Err(err).
			Str("provider", s.Name()).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("translation call failed, retrying")
		if err := s.sleep(ctx, wait); err != nil {
			result.Error = err.Error()
			return result, err
		}
	}

	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result, err
	}
	be := asBackendError(s.Name(), lastErr, false)
	result.Error = be.Error()
	return result, be
}

// call runs one backend invocation under the per-call timeout. Expiry of
// that timeout is reported as a retryable BackendError; cancellation of the
// parent context is returned as is.
func (s *LLMService) call(ctx context.Context, p Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	out, err := s.backend.Invoke(callCtx, p)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", &BackendError{
			Provider:  s.Name(),
			Retryable: true,
			Err:       fmt.Errorf("call timed out after %s: %w", s.opts.Timeout, context.DeadlineExceeded),
		}
	}
	return "", asBackendError(s.Name(), err, true)
}

// finish cleans the raw reply and puts protected markup back.
func (s *LLMService) finish(out, source string, markers *placeholder.Markers) (string, error) {
	out = postprocess.Clean(out, source)
	if out == "" {
		return "", &BackendError{Provider: s.Name(), Retryable: true, Err: errors.New("empty translation")}
	}
	if missing := markers.Missing(out); len(missing) > 0 {
		return "", &BackendError{
			Provider:  s.Name(),
			Retryable: true,
			Err:       fmt.Errorf("reply lost %d of %d markup markers: %s", len(missing), markers.Len(), strings.Join(missing, " ")),
		}
	}
	return markers.Restore(out), nil
}

// refine runs the optional second pass. A failed or marker-breaking
// refinement keeps the draft.
func (s *LLMService) refine(ctx context.Context, req TranslateRequest, draft string, markers *placeholder.Markers) string {
	if s.refiner == nil {
		return draft
	}
	refined, err := s.refiner.Refine(ctx, languageName(req.SourceLang), languageName(req.TargetLang), req.Text, draft)
	if err != nil {
		s.opts.Logger.Warn().Err(err).Str("provider", s.Name()).Msg("refinement failed, keeping draft")
		return draft
	}
	refined = postprocess.Clean(refined, draft)
	for _, m := range markers.Originals() {
		if !strings.Contains(refined, m) {
			s.opts.Logger.Warn().Str("provider", s.Name()).Msg("refinement altered protected markup, keeping draft")
			return draft
		}
	}
	return refined
}

// backoff doubles BaseDelay per attempt, honours a server-requested delay
// and never exceeds MaxDelay.
func (s *LLMService) backoff(attempt int, err error) time.Duration {
	wait := s.opts.BaseDelay << (attempt - 1)
	var be *BackendError
	if errors.As(err, &be) && be.RetryAfter > wait {
		wait = be.RetryAfter
	}
	if wait > s.opts.MaxDelay || wait <= 0 {
		wait = s.opts.MaxDelay
	}
	return wait
}

func (s *LLMService) IsAvailable(ctx context.Context) error {
	if p, ok := s.backend.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *LLMService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"ar", "de", "en", "es", "fr", "it", "ja", "ko", "pt", "ru", "uk", "zh"}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
