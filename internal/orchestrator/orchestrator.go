// Package orchestrator runs the per-file pipeline: extract, chunk,
// translate, reassemble and write. One file's failure is turned into a
// Result and never stops the rest of a batch.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/valpere/peredoc/internal/adapter"
	"github.com/valpere/peredoc/internal/chunker"
	"github.com/valpere/peredoc/internal/detector"
	"github.com/valpere/peredoc/internal/document"
	"github.com/valpere/peredoc/internal/glossary"
	"github.com/valpere/peredoc/internal/translator"
)

// FileState is a step of the per-file state machine. Written and Failed
// are terminal; Skipped marks files a resumed batch already wrote.
type FileState string

const (
	StatePending      FileState = "pending"
	StateExtracted    FileState = "extracted"
	StateChunked      FileState = "chunked"
	StateTranslating  FileState = "translating"
	StateReassembling FileState = "reassembling"
	StateWritten      FileState = "written"
	StateFailed       FileState = "failed"
	StateSkipped      FileState = "skipped"
)

// Progress is reported on every state change and after every chunk.
type Progress struct {
	File   string
	State  FileState
	Chunk  int
	Chunks int
}

// Result is the outcome of one file.
type Result struct {
	File       string    `json:"file"`
	Output     string    `json:"output,omitempty"`
	State      FileState `json:"state"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	Chunks     int       `json:"chunks"`
	CacheHits  int       `json:"cache_hits"`
	SourceLang string    `json:"source_lang,omitempty"`
	Err        error     `json:"-"`
}

// OK reports whether the file was written.
func (r Result) OK() bool { return r.State == StateWritten }

// Cache is the chunk-level translation memory.
type Cache interface {
	GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang, service string) (string, bool, error)
	SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, service, finalText string) error
}

type Options struct {
	InputRoot string
	// Roots are further directories outputs are made relative to when a
	// file lies outside InputRoot, usually the directory arguments of a run.
	Roots      []string
	OutputRoot string
	BatchLabel string
	SourceLang string
	TargetLang string
	MaxChunk   int
	// Workers bounds how many files a batch processes at once; chunks of
	// one file are always translated in order.
	Workers      int
	Glossary     glossary.Glossary
	Instructions string
	// ContextWords is how much of the previous chunk the translator sees.
	ContextWords  int
	ServiceConfig translator.ServiceConfig
	Registry      *adapter.Registry
	Cache         Cache
	// CacheScope separates cache entries of different providers and models.
	CacheScope string
	// Skip lists input paths to pass over (resume).
	Skip        map[string]bool
	DeleteInput bool
	// OnProgress and OnResult are never called concurrently.
	OnProgress func(Progress)
	OnResult   func(Result)
}

type Pipeline struct {
	service translator.TranslationService
	opts    Options
	terms   map[string]string
	logger  zerolog.Logger
	mu      sync.Mutex
}

func New(service translator.TranslationService, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.Registry == nil {
		opts.Registry = adapter.Default()
	}
	if opts.MaxChunk <= 0 {
		opts.MaxChunk = chunker.DefaultMaxChars
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ContextWords <= 0 {
		opts.ContextWords = chunker.DefaultContextWords
	}
	if opts.CacheScope == "" {
		opts.CacheScope = service.Name()
	}
	var terms map[string]string
	if opts.Glossary.Len() > 0 {
		terms = opts.Glossary.Map()
	}
	return &Pipeline{service: service, opts: opts, terms: terms, logger: logger}
}

// Process translates one file and returns the written output path.
func (p *Pipeline) Process(ctx context.Context, inputPath string) (string, error) {
	r := p.ProcessFile(ctx, inputPath)
	if r.Err != nil {
		return "", r.Err
	}
	return r.Output, nil
}

// ProcessFile runs the whole pipeline for one file and reports the outcome
// as a Result instead of an error.
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath string) Result {
	res := Result{File: inputPath, State: StatePending}
	log := p.logger.With().Str("file", inputPath).Logger()

	fail := func(err error) Result {
		res.State = StateFailed
		res.Err = err
		res.ErrorKind = KindOf(err)
		res.Message = err.Error()
		p.progress(Progress{File: inputPath, State: StateFailed, Chunks: res.Chunks})
		log.Error().Err(err).Str("state", string(StateFailed)).Str("kind", res.ErrorKind).Msg("file failed")
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	p.progress(Progress{File: inputPath, State: StatePending})

	// Resolve the adapter before touching the file so unsupported inputs
	// cost nothing.
	a, err := p.opts.Registry.ForPath(inputPath)
	if err != nil {
		return fail(err)
	}
	output, err := p.OutputPath(inputPath)
	if err != nil {
		return fail(err)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fail(&document.IOError{Op: "read", Path: inputPath, Err: err})
	}

	doc := document.New(inputPath, a.Format(), data)
	out, stats, err := p.translate(ctx, a, doc)
	res.Chunks = stats.chunks
	res.CacheHits = stats.cacheHits
	res.SourceLang = stats.sourceLang
	if err != nil {
		return fail(err)
	}

	if err := writeAtomic(output, out.Bytes()); err != nil {
		return fail(err)
	}
	res.Output = output
	res.State = StateWritten
	p.progress(Progress{File: inputPath, State: StateWritten, Chunk: res.Chunks, Chunks: res.Chunks})
	log.Info().
		Str("state", string(StateWritten)).
		Str("output", output).
		Int("chunks", res.Chunks).
		Int("cache_hits", res.CacheHits).
		Msg("file translated")

	if p.opts.DeleteInput {
		if err := os.Remove(inputPath); err != nil {
			log.Warn().Err(err).Msg("could not delete input file")
		}
	}
	return res
}

// TranslateDocument runs extract, chunk, translate and reassemble on an
// in-memory document without touching the filesystem.
func (p *Pipeline) TranslateDocument(ctx context.Context, doc document.Document) (document.Document, int, error) {
	a, err := p.opts.Registry.ForFormat(doc.Format)
	if err != nil {
		return document.Document{}, 0, &document.UnsupportedFormatError{Ext: string(doc.Format), Path: doc.Path}
	}
	out, stats, err := p.translate(ctx, a, doc)
	return out, stats.chunks, err
}

type fileStats struct {
	chunks     int
	cacheHits  int
	sourceLang string
}

func (p *Pipeline) translate(ctx context.Context, a adapter.Adapter, doc document.Document) (document.Document, fileStats, error) {
	var stats fileStats

	unit, err := a.Extract(doc)
	if err != nil {
		var ee *document.ExtractionError
		if !errors.As(err, &ee) {
			err = &document.ExtractionError{Format: doc.Format, Err: err}
		}
		return document.Document{}, stats, err
	}
	p.progress(Progress{File: doc.Path, State: StateExtracted})

	stats.sourceLang = p.sourceLang(unit.Prose)

	chunks := chunker.Split(unit.Prose, p.opts.MaxChunk)
	stats.chunks = len(chunks)
	p.progress(Progress{File: doc.Path, State: StateChunked, Chunks: len(chunks)})

	translated := make([]string, len(chunks))
	prevContext := ""
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return document.Document{}, stats, err
		}
		p.progress(Progress{File: doc.Path, State: StateTranslating, Chunk: i, Chunks: len(chunks)})

		out, hit, err := p.translateChunk(ctx, c.Text, stats.sourceLang, prevContext)
		if err != nil {
			return document.Document{}, stats, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if hit {
			stats.cacheHits++
		}
		translated[i] = out
		prevContext = chunker.ExtractContext(c.Text, p.opts.ContextWords)

		p.logger.Debug().
			Str("file", doc.Path).
			Str("state", string(StateTranslating)).
			Int("chunk", i+1).
			Int("chunks", len(chunks)).
			Bool("cached", hit).
			Msg("chunk translated")
	}

	p.progress(Progress{File: doc.Path, State: StateReassembling, Chunk: len(chunks), Chunks: len(chunks)})
	prose := unit.Prose
	if len(chunks) > 0 {
		prose, err = chunker.Join(chunks, translated)
		if err != nil {
			return document.Document{}, stats, &document.ReconstructionError{Format: doc.Format, Err: err}
		}
	}

	out, err := a.Reconstruct(prose, unit)
	if err != nil {
		var re *document.ReconstructionError
		if !errors.As(err, &re) {
			err = &document.ReconstructionError{Format: doc.Format, Err: err}
		}
		return document.Document{}, stats, err
	}
	if out.Format != doc.Format {
		return document.Document{}, stats, &document.ReconstructionError{
			Format: doc.Format,
			Err:    fmt.Errorf("adapter produced %s output", out.Format),
		}
	}
	return out, stats, nil
}

// translateChunk sends the trimmed chunk to the service and puts the
// surrounding whitespace back, since translators trim their replies.
func (p *Pipeline) translateChunk(ctx context.Context, text, sourceLang, prevContext string) (string, bool, error) {
	lead, core, trail := splitSpace(text)
	if passThrough(core) {
		return text, false, nil
	}

	if p.opts.Cache != nil {
		cached, ok, err := p.opts.Cache.GetCachedTranslation(ctx, core, sourceLang, p.opts.TargetLang, p.opts.CacheScope)
		if err != nil {
			p.logger.Warn().Err(err).Msg("translation memory lookup failed")
		} else if ok {
			return lead + cached + trail, true, nil
		}
	}

	res, err := p.service.Translate(ctx, p.opts.ServiceConfig, translator.TranslateRequest{
		Text:            core,
		SourceLang:      sourceLang,
		TargetLang:      p.opts.TargetLang,
		GlossaryTerms:   p.terms,
		PreviousContext: prevContext,
		Instructions:    p.opts.Instructions,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		var be *translator.BackendError
		if !errors.As(err, &be) {
			err = &translator.BackendError{Provider: p.service.Name(), Err: err}
		}
		return "", false, err
	}
	if res == nil || strings.TrimSpace(res.TranslatedText) == "" {
		return "", false, &translator.BackendError{Provider: p.service.Name(), Err: errors.New("empty translation")}
	}

	out := strings.TrimSpace(res.TranslatedText)
	if p.opts.Cache != nil {
		if err := p.opts.Cache.SaveToMemory(ctx, core, sourceLang, p.opts.TargetLang, p.opts.CacheScope, out); err != nil {
			p.logger.Warn().Err(err).Msg("translation memory save failed")
		}
	}
	return lead + out + trail, false, nil
}

// sourceLang resolves "auto" from the extracted prose. Undetectable prose
// keeps "auto" and leaves the choice to the translator.
func (p *Pipeline) sourceLang(prose string) string {
	src := strings.TrimSpace(p.opts.SourceLang)
	if src != "" && !strings.EqualFold(src, "auto") {
		return src
	}
	if code, ok := detector.Shared().DetectDocument(prose); ok {
		return code
	}
	return "auto"
}

func (p *Pipeline) progress(ev Progress) {
	if p.opts.OnProgress == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.OnProgress(ev)
}

func (p *Pipeline) report(r Result) {
	if p.opts.OnResult == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.OnResult(r)
}

func splitSpace(s string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(s, unicode.IsSpace)
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

// passThrough reports chunks with nothing to translate: blank text or
// notebook cell separators only.
func passThrough(core string) bool {
	rest := strings.ReplaceAll(core, adapter.CellSeparator, "")
	return strings.TrimSpace(rest) == ""
}
