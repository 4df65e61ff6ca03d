package orchestrator

import (
	"context"
	"errors"

	"github.com/valpere/peredoc/internal/document"
	"github.com/valpere/peredoc/internal/translator"
)

// Error kinds reported in Result.ErrorKind.
const (
	KindUnsupportedFormat = "UnsupportedFormatError"
	KindExtraction        = "ExtractionError"
	KindBackend           = "BackendError"
	KindReconstruction    = "ReconstructionError"
	KindIO                = "IOError"
	KindCanceled          = "Canceled"
	KindUnknown           = "Error"
)

// KindOf classifies err into one of the error kinds.
func KindOf(err error) string {
	var (
		unsupported *document.UnsupportedFormatError
		extraction  *document.ExtractionError
		backend     *translator.BackendError
		reconstruct *document.ReconstructionError
		ioErr       *document.IOError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unsupported):
		return KindUnsupportedFormat
	case errors.As(err, &extraction):
		return KindExtraction
	case errors.As(err, &backend):
		return KindBackend
	case errors.As(err, &reconstruct):
		return KindReconstruction
	case errors.As(err, &ioErr):
		return KindIO
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindUnknown
}
