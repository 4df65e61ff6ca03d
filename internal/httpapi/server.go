// Package httpapi exposes the translation pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/valpere/peredoc/internal/document"
	"github.com/valpere/peredoc/internal/orchestrator"
	"github.com/valpere/peredoc/internal/store"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// BodyLimit caps request bodies, in echo's size syntax ("8M").
	BodyLimit string
}

// Translator is the slice of the pipeline the server needs.
type Translator interface {
	TranslateDocument(ctx context.Context, doc document.Document) (document.Document, int, error)
}

// BatchLog reads the per-file result log.
type BatchLog interface {
	GetBatch(ctx context.Context, id string) (*store.Batch, error)
	BatchFiles(ctx context.Context, batchID string) ([]store.FileRecord, error)
}

type Server struct {
	translator Translator
	batches    BatchLog
	logger     zerolog.Logger
	opts       Options
}

type translateRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type translateResponse struct {
	Path    string          `json:"path"`
	Format  document.Format `json:"format"`
	Content string          `json:"content"`
	Chunks  int             `json:"chunks"`
}

type errorResponse struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

type batchResponse struct {
	Batch   store.Batch          `json:"batch"`
	Files   []store.FileRecord   `json:"files"`
	Summary orchestrator.Summary `json:"summary"`
}

func NewServer(t Translator, batches BatchLog, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	// Translating a large document takes many backend calls.
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 15 * time.Minute
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "8M"
	}
	opts.Host = host

	return &Server{translator: t, batches: batches, logger: logger, opts: opts}
}

// Handler builds the echo instance with every route registered.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(s.opts.BodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.logger.Info()
			if v.Error != nil {
				ev = s.logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	v1 := e.Group("/v1")
	v1.GET("/formats", s.handleFormats)
	v1.POST("/translate", s.handleTranslate)
	v1.GET("/batches/:id", s.handleBatch)
	return e
}

func (s *Server) Start(ctx context.Context) error {
	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("peredoc server started")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("peredoc server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok && strings.TrimSpace(m) != "" {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}
	_ = c.JSON(status, errorResponse{ErrorKind: "HTTPError", Message: message})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "peredoc",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleFormats(c echo.Context) error {
	return c.JSON(http.StatusOK, document.ExtensionFormats())
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{ErrorKind: "BadRequest", Message: "invalid JSON body"})
	}
	if strings.TrimSpace(req.Path) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{ErrorKind: "BadRequest", Message: "path is required"})
	}

	format, err := document.FormatFromPath(req.Path)
	if err != nil {
		return s.pipelineError(c, err)
	}

	out, chunks, err := s.translator.TranslateDocument(c.Request().Context(), document.New(req.Path, format, []byte(req.Content)))
	if err != nil {
		return s.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, translateResponse{
		Path:    req.Path,
		Format:  out.Format,
		Content: out.String(),
		Chunks:  chunks,
	})
}

func (s *Server) handleBatch(c echo.Context) error {
	if s.batches == nil {
		return c.JSON(http.StatusNotFound, errorResponse{ErrorKind: "NotFound", Message: "batch log disabled"})
	}
	id := c.Param("id")
	ctx := c.Request().Context()

	b, err := s.batches.GetBatch(ctx, id)
	if errors.Is(err, store.ErrBatchNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{ErrorKind: "NotFound", Message: err.Error()})
	}
	if err != nil {
		s.logger.Error().Err(err).Str("batch", id).Msg("load batch failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{ErrorKind: "Error", Message: "failed to load batch"})
	}
	files, err := s.batches.BatchFiles(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("batch", id).Msg("load batch files failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{ErrorKind: "Error", Message: "failed to load batch files"})
	}

	results := make([]orchestrator.Result, len(files))
	for i, f := range files {
		results[i] = orchestrator.Result{State: orchestrator.FileState(f.State)}
	}
	if files == nil {
		files = []store.FileRecord{}
	}
	return c.JSON(http.StatusOK, batchResponse{Batch: *b, Files: files, Summary: orchestrator.Summarize(results)})
}

// pipelineError maps the error kinds onto HTTP status codes.
func (s *Server) pipelineError(c echo.Context, err error) error {
	kind := orchestrator.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case orchestrator.KindUnsupportedFormat:
		status = http.StatusUnsupportedMediaType
	case orchestrator.KindExtraction, orchestrator.KindReconstruction:
		status = http.StatusUnprocessableEntity
	case orchestrator.KindBackend:
		status = http.StatusBadGateway
	case orchestrator.KindCanceled:
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.logger.Error().Err(err).Str("kind", kind).Msg("translate request failed")
	}
	return c.JSON(status, errorResponse{ErrorKind: kind, Message: err.Error()})
}
