package adapter

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/valpere/peredoc/internal/document"
)

//go:embed notebook.schema.json
var notebookSchemaJSON string

const (
	// CellSeparator joins markdown-cell sources in the extracted prose. It
	// sits on its own paragraph so chunking never splits it.
	CellSeparator = "<!--peredoc:cell-->"

	cellJoiner = "\n\n" + CellSeparator + "\n\n"

	// Any occurrence of escapePrefix inside a cell is rewritten to
	// escapedPrefix before joining, so a literal CellSeparator in a cell
	// can never be mistaken for a boundary.
	escapePrefix  = "<!--peredoc:"
	escapedPrefix = "<!--peredoc:!"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// NotebookCell is one cell of the original notebook. Only the byte span of
// its source value is kept; everything else is copied from the original
// bytes on reconstruction.
type NotebookCell struct {
	Type       string
	source     string
	sourceList bool
	// start and end delimit the raw source value in the notebook bytes.
	start, end int
	hasSource  bool
}

// Source returns the cell source joined into one string.
func (c NotebookCell) Source() string { return c.source }

// NotebookContext is the reconstruction context of a notebook: the original
// bytes and the ordered cell list. It is read-only after Extract.
type NotebookContext struct {
	data  []byte
	cells []NotebookCell
}

// Cells returns a copy of the cell list in notebook order.
func (c NotebookContext) Cells() []NotebookCell {
	out := make([]NotebookCell, len(c.cells))
	copy(out, c.cells)
	return out
}

// MarkdownCells counts the cells whose source is sent for translation.
func (c NotebookContext) MarkdownCells() int {
	n := 0
	for _, cell := range c.cells {
		if cell.Type == "markdown" {
			n++
		}
	}
	return n
}

type notebookAdapter struct{}

func NewNotebook() Adapter { return notebookAdapter{} }

func (notebookAdapter) Format() document.Format { return document.FormatNotebook }

func (notebookAdapter) Extract(doc document.Document) (document.ExtractedUnit, error) {
	ctx, err := parseNotebook(doc.Bytes())
	if err != nil {
		return document.ExtractedUnit{}, &document.ExtractionError{Format: document.FormatNotebook, Err: err}
	}

	var segments []string
	for _, c := range ctx.cells {
		if c.Type == "markdown" {
			segments = append(segments, strings.ReplaceAll(c.source, escapePrefix, escapedPrefix))
		}
	}

	return document.ExtractedUnit{
		Path:    doc.Path,
		Format:  document.FormatNotebook,
		Prose:   strings.Join(segments, cellJoiner),
		Context: ctx,
	}, nil
}

func (notebookAdapter) Reconstruct(prose string, unit document.ExtractedUnit) (document.Document, error) {
	if err := checkUnit(document.FormatNotebook, unit); err != nil {
		return document.Document{}, err
	}
	ctx, ok := unit.Context.(NotebookContext)
	if !ok {
		return document.Document{}, &document.ReconstructionError{
			Format: document.FormatNotebook,
			Err:    fmt.Errorf("unexpected context type %T", unit.Context),
		}
	}

	segments, err := splitCells(prose, ctx.MarkdownCells())
	if err != nil {
		return document.Document{}, err
	}

	// Only markdown source values are replaced; every other byte of the
	// original file is copied through.
	var buf bytes.Buffer
	buf.Grow(len(ctx.data))
	prev, next := 0, 0
	for _, c := range ctx.cells {
		if c.Type != "markdown" {
			continue
		}
		src, err := encodeSource(segments[next], c, ctx.data[c.start:c.end])
		if err != nil {
			return document.Document{}, &document.ReconstructionError{Format: document.FormatNotebook, Err: err}
		}
		buf.Write(ctx.data[prev:c.start])
		buf.Write(src)
		prev = c.end
		next++
	}
	buf.Write(ctx.data[prev:])
	return document.New(unit.Path, document.FormatNotebook, buf.Bytes()), nil
}

func parseNotebook(data []byte) (NotebookContext, error) {
	value, err := decodeStrictJSON(data)
	if err != nil {
		return NotebookContext{}, fmt.Errorf("decode notebook JSON: %w", err)
	}
	s, err := loadNotebookSchema()
	if err != nil {
		return NotebookContext{}, fmt.Errorf("load schema: %w", err)
	}
	if err := s.Validate(value); err != nil {
		return NotebookContext{}, fmt.Errorf("schema validation failed: %w", err)
	}

	cells, err := scanCells(data)
	if err != nil {
		return NotebookContext{}, err
	}
	return NotebookContext{data: data, cells: cells}, nil
}

// scanCells walks the top-level object and records each cell's type and
// the byte span of its source value in data.
func scanCells(data []byte) ([]NotebookCell, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var (
		cells []NotebookCell
		found bool
	)
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "cells" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			continue
		}
		found = true
		if cells, err = scanCellList(dec, data); err != nil {
			return nil, err
		}
	}
	if !found {
		return nil, errors.New("notebook has no cells")
	}
	return cells, nil
}

func scanCellList(dec *json.Decoder, data []byte) ([]NotebookCell, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("cells: %w", err)
	}
	var cells []NotebookCell
	for dec.More() {
		c, err := scanCell(dec, data)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", len(cells), err)
		}
		cells = append(cells, c)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, fmt.Errorf("cells: %w", err)
	}
	return cells, nil
}

func scanCell(dec *json.Decoder, data []byte) (NotebookCell, error) {
	var c NotebookCell
	if err := expectDelim(dec, '{'); err != nil {
		return c, err
	}
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return c, err
		}
		start := valueStart(data, int(dec.InputOffset()))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return c, fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "cell_type":
			if err := json.Unmarshal(raw, &c.Type); err != nil {
				return c, fmt.Errorf("cell_type: %w", err)
			}
		case "source":
			end := start + len(raw)
			if end > len(data) || !bytes.Equal(data[start:end], raw) {
				return c, errors.New("source: value not found at decoder offset")
			}
			c.start, c.end, c.hasSource = start, end, true
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return c, err
	}

	if c.Type == "markdown" {
		if !c.hasSource {
			return c, errors.New("markdown cell has no source")
		}
		var err error
		c.source, c.sourceList, err = decodeSource(data[c.start:c.end])
		if err != nil {
			return c, fmt.Errorf("source: %w", err)
		}
	}
	return c, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// valueStart skips the colon and whitespace that follow an object key
// ending at off.
func valueStart(data []byte, off int) int {
	for off < len(data) {
		switch data[off] {
		case ' ', '\t', '\r', '\n', ':':
			off++
		default:
			return off
		}
	}
	return off
}

// decodeSource accepts both source shapes of nbformat: a single string or
// a list of lines.
func decodeSource(raw json.RawMessage) (string, bool, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, false, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", false, err
	}
	return strings.Join(lines, ""), true, nil
}

// encodeSource renders a translated cell source in the shape of the
// original value. An unchanged source keeps its original bytes.
func encodeSource(src string, c NotebookCell, orig []byte) (json.RawMessage, error) {
	if src == c.source {
		return json.RawMessage(orig), nil
	}
	if !c.sourceList {
		return marshalRaw(src)
	}
	return encodeLines(splitLines(src), orig)
}

// encodeLines writes lines as a JSON list laid out like orig: the
// whitespace after its opening bracket precedes every item and the
// whitespace before its closing bracket is kept.
func encodeLines(lines []string, orig []byte) (json.RawMessage, error) {
	if len(lines) == 0 {
		return json.RawMessage("[]"), nil
	}
	var lead, trail []byte
	if len(orig) >= 2 {
		inner := orig[1 : len(orig)-1]
		if len(bytes.TrimSpace(inner)) > 0 {
			lead = inner[:len(inner)-len(bytes.TrimLeft(inner, " \t\r\n"))]
			trail = inner[len(bytes.TrimRight(inner, " \t\r\n")):]
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, line := range lines {
		item, err := marshalRaw(line)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(lead)
		buf.Write(item)
	}
	buf.Write(trail)
	buf.WriteByte(']')
	return json.RawMessage(buf.Bytes()), nil
}

// splitLines splits s after every newline, keeping the newline on each line
// as nbformat does.
func splitLines(s string) []string {
	lines := []string{}
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

// splitCells cuts translated prose back into want cell sources.
func splitCells(prose string, want int) ([]string, error) {
	if want == 0 {
		if strings.TrimSpace(prose) != "" {
			return nil, &document.ReconstructionError{Format: document.FormatNotebook, Expected: 0, Got: 1}
		}
		return nil, nil
	}

	parts := strings.Split(prose, CellSeparator)
	if len(parts) != want {
		return nil, &document.ReconstructionError{Format: document.FormatNotebook, Expected: want, Got: len(parts)}
	}
	for i, p := range parts {
		if i > 0 {
			p = trimPadding(p, strings.TrimPrefix, strings.TrimLeft)
		}
		if i < len(parts)-1 {
			p = trimPadding(p, strings.TrimSuffix, strings.TrimRight)
		}
		parts[i] = strings.ReplaceAll(p, escapedPrefix, escapePrefix)
	}
	return parts, nil
}

// trimPadding removes the blank line the joiner put next to a separator.
// When a backend changed that padding, any remaining line breaks go too.
func trimPadding(s string, exact func(string, string) string, loose func(string, string) string) string {
	if t := exact(s, "\n\n"); t != s {
		return t
	}
	return loose(s, "\r\n")
}

func loadNotebookSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("notebook.schema.json", strings.NewReader(notebookSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		s, err := compiler.Compile("notebook.schema.json")
		if err != nil {
			schemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		schema = s
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	if schema == nil {
		return nil, errors.New("schema not initialized")
	}
	return schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("notebook is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("notebook contains trailing content")
	}
	return value, nil
}

// marshalRaw encodes v without HTML escaping, matching how notebooks are
// written by Jupyter.
func marshalRaw(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
