package translator

import (
	"context"
	"time"
)

// IdentityService returns every chunk unchanged. It needs no network and
// makes dry runs and round-trip checks cheap.
type IdentityService struct{}

func NewIdentityService() *IdentityService {
	return &IdentityService{}
}

func (s *IdentityService) Name() string {
	return "identity"
}

func (s *IdentityService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	if err := ctx.Err(); err != nil {
		return &ServiceResult{ServiceName: s.Name(), Error: err.Error()}, err
	}
	return &ServiceResult{
		ServiceName:    s.Name(),
		TranslatedText: req.Text,
		Confidence:     1.0,
		Attempts:       1,
		Latency:        time.Duration(0),
	}, nil
}

func (s *IdentityService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *IdentityService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}
