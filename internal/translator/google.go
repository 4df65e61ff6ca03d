package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/valpere/peredoc/internal/placeholder"
)

// GoogleService uses Google Cloud Translation. It takes no prompt, so the
// glossary is enforced by swapping source terms for markers before the call
// and their targets in after it.
type GoogleService struct {
	credentials string
	protect     bool
}

func NewGoogleService(credentials string, protect bool) *GoogleService {
	return &GoogleService{credentials: credentials, protect: protect}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name(), Attempts: 1}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	fail := func(err error) (*ServiceResult, error) {
		be := googleBackendError(err)
		result.Error = be.Error()
		return result, be
	}

	targetLangTag, err := language.Parse(req.TargetLang)
	if err != nil {
		return fail(fmt.Errorf("invalid target language: %w", err))
	}

	client, err := translate.NewClient(ctx, s.clientOptions(cfg)...)
	if err != nil {
		return fail(fmt.Errorf("failed to create client: %w", err))
	}
	defer client.Close()

	text := req.Text
	var markers *placeholder.Markers
	if s.protect {
		text, markers = placeholder.Protect(text)
	}
	text, terms := placeholder.ProtectTerms(text, req.GlossaryTerms)

	opts := &translate.Options{Format: translate.Text}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		sourceLangTag, err := language.Parse(req.SourceLang)
		if err != nil {
			return fail(fmt.Errorf("invalid source language: %w", err))
		}
		opts.Source = sourceLangTag
	}

	translations, err := client.Translate(ctx, []string{text}, targetLangTag, opts)
	if err != nil {
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			return result, ctx.Err()
		}
		return fail(fmt.Errorf("translation failed: %w", err))
	}
	if len(translations) == 0 {
		return fail(errors.New("no translation returned"))
	}

	out := translations[0].Text
	out = terms.Restore(out)
	out = markers.Restore(out)

	result.TranslatedText = out
	result.Confidence = 1.0
	return result, nil
}

func (s *GoogleService) clientOptions(cfg ServiceConfig) []option.ClientOption {
	creds := s.credentials
	if cfg.Credentials != "" {
		creds = cfg.Credentials
	}
	var opts []option.ClientOption
	if creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return opts
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *GoogleService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}

// googleBackendError marks quota and server failures retryable.
func googleBackendError(err error) *BackendError {
	be := &BackendError{Provider: "google", Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		be.StatusCode = gerr.Code
		be.Retryable = gerr.Code == 429 || gerr.Code >= 500
	}
	return be
}
