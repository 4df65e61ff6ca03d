package translator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

// TranslateRequest is one chunk plus everything its prompt needs.
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// GlossaryTerms is the run's read-only glossary.
	GlossaryTerms map[string]string `json:"glossary_terms,omitempty"`
	// PreviousContext is the tail of the previous source chunk, given to
	// the model for continuity and never translated.
	PreviousContext string `json:"previous_context,omitempty"`
	Instructions    string `json:"instructions,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Confidence     float64           `json:"confidence"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Attempts       int               `json:"attempts"`
	Error          string            `json:"error,omitempty"`
}

// TranslationService turns one chunk into its translation. A failed call
// returns a *BackendError.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// BackendError reports a failed translation call: network, auth, quota,
// timeout or a malformed reply.
type BackendError struct {
	Provider   string
	StatusCode int
	// Retryable marks failures worth another attempt (429, 5xx, timeouts,
	// transport errors, lost markup markers).
	Retryable bool
	// RetryAfter is the server-requested delay, zero when none was given.
	RetryAfter time.Duration
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a BackendError worth retrying.
func IsRetryable(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Retryable
}

// asBackendError wraps err unless it already is a BackendError.
func asBackendError(provider string, err error, retryable bool) *BackendError {
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}
	return &BackendError{Provider: provider, Retryable: retryable, Err: err}
}
