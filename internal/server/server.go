// Package server exposes migration progress and dependency graphs over HTTP.
//
// The API is read-only. Ledger endpoints reload the ledger from its store on
// every request, so a server started next to a running batch reports live
// progress.
//
//	GET /healthz
//	GET /api/ledger              statistics
//	GET /api/units               processed, failed and skipped units plus the queue
//	GET /api/deps?unit=PATH      dependency statistics for one unit
//	GET /api/graph?unit=PATH     dependency graph as JSON
//	GET /api/graph.svg?unit=PATH dependency graph as SVG
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/uimigrate/pkg/deps"
	"github.com/matzehuels/uimigrate/pkg/errors"
	pkgio "github.com/matzehuels/uimigrate/pkg/io"
	"github.com/matzehuels/uimigrate/pkg/ledger"
	"github.com/matzehuels/uimigrate/pkg/render"
)

// DefaultTimeout bounds each request, including SVG rendering.
const DefaultTimeout = 30 * time.Second

// Options configures a Server.
type Options struct {
	Store    ledger.Store
	Resolver *deps.Resolver
	Logger   *log.Logger
	Timeout  time.Duration
}

// Server is an http.Handler serving the status API.
type Server struct {
	router   chi.Router
	store    ledger.Store
	resolver *deps.Resolver
	logger   *log.Logger
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	s := &Server{
		router:   chi.NewRouter(),
		store:    opts.Store,
		resolver: opts.Resolver,
		logger:   opts.Logger,
	}
	s.router.Use(requestID)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(opts.Timeout))
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/ledger", s.handleLedger)
		r.Get("/units", s.handleUnits)
		r.Get("/deps", s.handleDeps)
		r.Get("/graph", s.handleGraph)
		r.Get("/graph.svg", s.handleGraphSVG)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// =============================================================================
// Handlers
// =============================================================================

type unitsResponse struct {
	RunID     string                `json:"run_id"`
	Processed []ledger.Entry        `json:"processed"`
	Failed    []ledger.FailedEntry  `json:"failed"`
	Skipped   []ledger.SkippedEntry `json:"skipped"`
	Queue     []string              `json:"queue"`
}

func (s *Server) openLedger(ctx context.Context) (*ledger.Ledger, error) {
	if s.store == nil {
		return nil, errors.New(errors.ErrCodeUnavailable, "no ledger store configured")
	}
	return ledger.Open(ctx, s.store)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	l, err := s.openLedger(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l.Stats())
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	l, err := s.openLedger(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	processed := l.Processed()
	for i := range processed {
		processed[i].Result = nil
	}
	writeJSON(w, http.StatusOK, unitsResponse{
		RunID:     l.RunID(),
		Processed: processed,
		Failed:    l.Failed(),
		Skipped:   l.Skipped(),
		Queue:     l.Queue(),
	})
}

func (s *Server) handleDeps(w http.ResponseWriter, r *http.Request) {
	unit, err := s.unitParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stats, err := s.resolver.Stats(r.Context(), unit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	unit, err := s.unitParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.resolver.Build(r.Context(), unit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := pkgio.WriteJSON(g, w); err != nil {
		s.logger.Error("write graph", "error", err)
	}
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	unit, err := s.unitParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.resolver.Build(r.Context(), unit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detailed := r.URL.Query().Get("detailed") == "true"
	svg, err := render.RenderSVG(r.Context(), render.ToDOT(g, render.Options{Detailed: detailed}))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "render graph"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// unitParam resolves the unit query parameter against the resolver's base
// directory. Paths outside the base directory are rejected.
func (s *Server) unitParam(r *http.Request) (string, error) {
	if s.resolver == nil {
		return "", errors.New(errors.ErrCodeUnavailable, "no dependency resolver configured")
	}
	raw := r.URL.Query().Get("unit")
	if raw == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "unit query parameter is required")
	}
	if err := errors.ValidatePath(raw); err != nil {
		return "", err
	}
	base := s.resolver.BaseDir()
	unit := raw
	if !filepath.IsAbs(unit) {
		unit = filepath.Join(base, unit)
	}
	unit = filepath.Clean(unit)
	rel, err := filepath.Rel(base, unit)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeInvalidPath, "unit %q is outside %s", raw, base)
	}
	if info, err := os.Stat(unit); err != nil || !info.Mode().IsRegular() {
		return "", errors.New(errors.ErrCodeUnitNotFound, "unit %q not found", raw)
	}
	return unit, nil
}

// =============================================================================
// Responses
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound, errors.ErrCodeUnitNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Warn("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
