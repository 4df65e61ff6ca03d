// Package adapter converts documents of each supported format into
// translatable prose plus a reconstruction context, and rebuilds a document
// of the same format from translated prose and that context.
//
// Adapters are stateless: everything Reconstruct needs travels in the
// ExtractedUnit returned by Extract.
package adapter

import (
	"fmt"
	"sort"

	"github.com/valpere/peredoc/internal/document"
)

// Adapter is implemented once per document format.
type Adapter interface {
	Format() document.Format
	Extract(doc document.Document) (document.ExtractedUnit, error)
	Reconstruct(prose string, unit document.ExtractedUnit) (document.Document, error)
}

// Registry maps format tags to adapters.
type Registry struct {
	adapters map[document.Format]Adapter
}

// NewRegistry builds a registry; a later adapter for the same format wins.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[document.Format]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Format()] = a
	}
	return r
}

// Default returns a registry with an adapter for every supported format.
func Default() *Registry {
	return NewRegistry(
		NewMarkdown(),
		NewRST(),
		NewHTML(),
		NewCode(),
		NewNotebook(),
	)
}

// ForPath resolves the adapter from the file extension. Unknown extensions
// yield *document.UnsupportedFormatError.
func (r *Registry) ForPath(path string) (Adapter, error) {
	f, err := document.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	a, ok := r.adapters[f]
	if !ok {
		return nil, &document.UnsupportedFormatError{Ext: string(f), Path: path}
	}
	return a, nil
}

// ForFormat returns the adapter registered for f.
func (r *Registry) ForFormat(f document.Format) (Adapter, error) {
	a, ok := r.adapters[f]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for format %q", f)
	}
	return a, nil
}

// Formats lists registered formats in sorted order.
func (r *Registry) Formats() []document.Format {
	out := make([]document.Format, 0, len(r.adapters))
	for f := range r.adapters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// checkUnit guards Reconstruct against a unit produced by another adapter.
func checkUnit(want document.Format, unit document.ExtractedUnit) error {
	if unit.Format != want {
		return &document.ReconstructionError{
			Format: want,
			Err:    fmt.Errorf("unit was extracted as %s", unit.Format),
		}
	}
	return nil
}
