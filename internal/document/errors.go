package document

import "fmt"

// UnsupportedFormatError is returned when a file extension has no adapter.
type UnsupportedFormatError struct {
	Ext  string
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported file type: %s", ext)
}

// ExtractionError reports a document whose structure could not be parsed.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ReconstructionError reports translated prose that no longer matches the
// structural units of the original document.
type ReconstructionError struct {
	Format   Format
	Expected int
	Got      int
	Err      error
}

func (e *ReconstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reconstruct %s: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("reconstruct %s: expected %d segments, got %d", e.Format, e.Expected, e.Got)
}

func (e *ReconstructionError) Unwrap() error { return e.Err }

// IOError wraps a local read or write failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
