// Package server exposes the search engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/baheth/baheth/internal/search"
	"github.com/baheth/baheth/internal/telemetry"
)

// HealthChecker is implemented by every backing service the diagnostics
// endpoint probes.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server wires the engine and its dependencies into an echo instance.
type Server struct {
	echo    *echo.Echo
	engine  *search.Engine
	metrics *telemetry.Metrics
	logger  *slog.Logger

	// Named health probes for /api/diagnostics.
	probes map[string]HealthChecker
}

// Option configures the server.
type Option func(*Server)

// WithMetrics enables the /metrics endpoint and request instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithProbe registers a named backing-service health probe.
func WithProbe(name string, probe HealthChecker) Option {
	return func(s *Server) { s.probes[name] = probe }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the HTTP server around an engine.
func New(engine *search.Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
		probes: make(map[string]HealthChecker),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api")
	api.POST("/search", s.handleSearch)
	api.GET("/diagnostics", s.handleDiagnostics)

	s.echo = e
	return s
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", slog.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if httpErr.Message != nil {
			msg = fmt.Sprint(httpErr.Message)
		}
	}

	req := c.Request()
	s.logger.Warn("request failed",
		slog.Int("status", code),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.String("error", err.Error()))

	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

// searchRequest is the JSON body of POST /api/search.
type searchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Mode      string  `json:"mode"`
	Refine    bool    `json:"refine"`
	BookID    int     `json:"book_id"`
	Books     bool    `json:"books"`
	Ayahs     bool    `json:"ayahs"`
	Hadiths   bool    `json:"hadiths"`
	Cutoff    float64 `json:"cutoff"`
	TitleLang string  `json:"title_lang"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var body searchRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	req := search.Request{
		Query:     body.Query,
		Limit:     body.Limit,
		Mode:      search.Mode(body.Mode),
		Refine:    body.Refine,
		BookID:    body.BookID,
		Books:     body.Books,
		Ayahs:     body.Ayahs,
		Hadiths:   body.Hadiths,
		Cutoff:    body.Cutoff,
		TitleLang: body.TitleLang,
	}

	start := time.Now()
	resp, err := s.engine.Search(c.Request().Context(), req)
	if err != nil {
		s.recordSearch(string(req.Mode), req.Refine, statusLabel(err), time.Since(start))
		switch {
		case errors.Is(err, search.ErrEmptyQuery),
			errors.Is(err, search.ErrQueryTooLong),
			errors.Is(err, search.ErrInvalidMode),
			errors.Is(err, search.ErrInvalidLimit):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, search.ErrIndexNotReady):
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		default:
			return err
		}
	}

	s.recordSearch(string(resp.Diagnostics.Mode), resp.Diagnostics.Refined, "ok", time.Since(start))
	if s.metrics != nil {
		s.metrics.RecordResults(len(resp.Books), len(resp.Ayahs), len(resp.Hadiths))
		if resp.Diagnostics.RerankTimedOut {
			s.metrics.RecordRerankTimeout(resp.Diagnostics.Reranker)
		}
		if resp.Diagnostics.KeywordFallback {
			s.metrics.RecordKeywordFallback()
		}
		if resp.Diagnostics.Refined {
			outcome := "degraded"
			if len(resp.Diagnostics.Expansions) > 1 {
				outcome = "expanded"
			}
			s.metrics.RecordExpansion(outcome)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) recordSearch(mode string, refined bool, status string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordSearch(mode, refined, status, elapsed)
	}
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, search.ErrIndexNotReady):
		return "index_not_ready"
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, search.ErrQueryTooLong),
		errors.Is(err, search.ErrInvalidMode),
		errors.Is(err, search.ErrInvalidLimit):
		return "invalid_request"
	default:
		return "error"
	}
}

// diagnosticsResponse reports the reachability of every backing service.
type diagnosticsResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (s *Server) handleDiagnostics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp := diagnosticsResponse{
		Status:   "ok",
		Services: make(map[string]string, len(s.probes)),
	}
	for name, probe := range s.probes {
		if err := probe.Health(ctx); err != nil {
			resp.Status = "degraded"
			resp.Services[name] = err.Error()
			continue
		}
		resp.Services[name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
