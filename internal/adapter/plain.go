package adapter

import "github.com/valpere/peredoc/internal/document"

// plainAdapter treats the whole file as prose. RST carries no separable
// metadata and source files are sent whole, so both share it.
type plainAdapter struct {
	format document.Format
}

func NewRST() Adapter  { return plainAdapter{format: document.FormatRST} }
func NewCode() Adapter { return plainAdapter{format: document.FormatCode} }

func (a plainAdapter) Format() document.Format { return a.format }

func (a plainAdapter) Extract(doc document.Document) (document.ExtractedUnit, error) {
	return document.ExtractedUnit{
		Path:   doc.Path,
		Format: a.format,
		Prose:  doc.String(),
	}, nil
}

func (a plainAdapter) Reconstruct(prose string, unit document.ExtractedUnit) (document.Document, error) {
	if err := checkUnit(a.format, unit); err != nil {
		return document.Document{}, err
	}
	return document.New(unit.Path, a.format, []byte(prose)), nil
}
