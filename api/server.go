// Package api - Thin HTTP layer over the scan engine
// The API is ONLY responsible for: snapshot loading, engine orchestration, output serialization.
// The API NEVER computes prices, fees or scores.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"crossmarket/adapters/export"
	"crossmarket/adapters/ingest"
	"crossmarket/adapters/storage"
	"crossmarket/core/analysis"
	"crossmarket/core/engine"
	"crossmarket/core/types"
	"crossmarket/internal/errors"
	"crossmarket/internal/logging"
)

// DefaultLimit and MaxLimit bound GET /opportunities
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Server is the API server
type Server struct {
	engine   *engine.Orchestrator
	source   ingest.Source
	defaults types.Params
	version  string
	logger   *zap.Logger
	mux      *http.ServeMux
	history  storage.Store

	mu   sync.RWMutex
	snap *types.Snapshot
	last *engine.RunResult
}

// NewServer creates a server. source may be nil when a snapshot is supplied with WithSnapshot.
func NewServer(version string, orch *engine.Orchestrator, source ingest.Source, defaults types.Params, logger *zap.Logger) *Server {
	s := &Server{
		engine:   orch,
		source:   source,
		defaults: defaults,
		version:  version,
		logger:   logging.OrNop(logger),
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// WithSnapshot preloads the listing snapshot
func (s *Server) WithSnapshot(snap *types.Snapshot) *Server {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return s
}

// WithHistory records every computed run and enables the /runs endpoints
func (s *Server) WithHistory(store storage.Store) *Server {
	s.history = store
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)

	s.mux.HandleFunc("GET /opportunities", s.handleOpportunities)
	s.mux.HandleFunc("GET /summary", s.handleSummary)
	s.mux.HandleFunc("POST /scan", s.handleScan)
	s.mux.HandleFunc("DELETE /cache", s.handleClearCache)

	s.mux.HandleFunc("GET /runs", s.handleListRuns)
	s.mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("GET /runs/{id}/diff/{other}", s.handleDiffRuns)
}

// Reload reads a fresh snapshot from the source and drops cached runs of the previous one
func (s *Server) Reload(ctx context.Context) error {
	if s.source == nil {
		return errors.New(errors.TypeConfig, "no listing source configured")
	}
	snap, report, err := s.source.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.snap
	s.snap = snap
	s.last = nil
	s.mu.Unlock()

	if old != nil && old.ID() != snap.ID() && s.engine.Cache() != nil {
		s.engine.Cache().InvalidateSnapshot(old.ID())
	}
	s.logger.Info("snapshot loaded",
		zap.String("source", s.source.Name()),
		zap.String("snapshot", snap.ID()),
		zap.Int("rows", report.Loaded),
		zap.Int("skipped", report.Skipped()))
	return nil
}

// Scan runs the engine on the current snapshot, loading it first if needed
func (s *Server) Scan(ctx context.Context, params types.Params) (*engine.RunResult, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	if snap == nil {
		if err := s.Reload(ctx); err != nil {
			return nil, err
		}
		s.mu.RLock()
		snap = s.snap
		s.mu.RUnlock()
	}

	res, err := s.engine.Run(ctx, snap, params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	if s.history != nil && !res.FromCache {
		if err := s.history.Save(ctx, storage.NewRun(res)); err != nil {
			s.logger.Warn("failed to record run", zap.String("run_id", res.RunID), zap.Error(err))
		}
	}
	return res, nil
}

// latest returns the last run, scanning with the defaults when there is none
func (s *Server) latest(ctx context.Context) (*engine.RunResult, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		return last, nil
	}
	return s.Scan(ctx, s.defaults)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	loaded := s.snap != nil
	s.mu.RUnlock()

	s.writeJSON(w, map[string]interface{}{
		"status":          "healthy",
		"version":         s.version,
		"snapshot_loaded": loaded,
		"time":            time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "crossmarket",
		"api_version": "v1",
	}, http.StatusOK)
}

// handleOpportunities handles GET /opportunities?min_score=&limit=&route=
func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minScore := 0.0
	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 100 {
			s.writeError(w, errors.Newf(errors.TypeInput, "min_score must be a number in [0,100], got %q", v))
			return
		}
		minScore = f
	}
	limit := DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			s.writeError(w, errors.Newf(errors.TypeInput, "limit must be an integer in [1,%d], got %q", MaxLimit, v))
			return
		}
		limit = n
	}
	route := normalizeRoute(q.Get("route"))

	res, err := s.latest(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows := []export.Row{}
	total := 0
	for _, o := range res.Opportunities {
		if o.Scores.Opportunity < minScore {
			continue
		}
		if route != "" && o.Label != route {
			continue
		}
		total++
		if len(rows) < limit {
			rows = append(rows, export.NewRow(o))
		}
	}

	s.writeJSON(w, OpportunitiesResponse{
		RunID: res.RunID,
		Total: total,
		Count: len(rows),
		Rows:  rows,
	}, http.StatusOK)
}

// handleSummary handles GET /summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	res, err := s.latest(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, newScanResponse(res), http.StatusOK)
}

// handleScan handles POST /scan
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ScanRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errors.Wrap(errors.TypeInput, "invalid JSON body", err))
			return
		}
	}

	params := req.Apply(s.defaults)
	if err := params.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Reload {
		if err := s.Reload(ctx); err != nil {
			s.writeError(w, err)
			return
		}
	}

	res, err := s.Scan(ctx, params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, newScanResponse(res), http.StatusOK)
}

// handleClearCache handles DELETE /cache
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	cache := s.engine.Cache()
	if cache == nil {
		s.writeJSON(w, map[string]interface{}{"cleared": 0}, http.StatusOK)
		return
	}
	n := cache.Stats().Entries
	cache.Clear()
	s.logger.Info("cache cleared", zap.Int("entries", n))
	s.writeJSON(w, map[string]interface{}{"cleared": n}, http.StatusOK)
}

// handleListRuns handles GET /runs?snapshot=&limit=&offset=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	q := r.URL.Query()
	filter := &storage.ListFilter{SnapshotID: q.Get("snapshot"), Limit: DefaultLimit}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > MaxLimit {
			s.writeError(w, errors.Newf(errors.TypeInput, "%s must be an integer in [0,%d], got %q", p.name, MaxLimit, v))
			return
		}
		*p.dst = n
	}

	runs, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"runs": runs, "count": len(runs)}, http.StatusOK)
}

// handleGetRun handles GET /runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	run, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, run, http.StatusOK)
}

// handleDiffRuns handles GET /runs/{id}/diff/{other}
func (s *Server) handleDiffRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	res, err := storage.Compare(r.Context(), s.history, r.PathValue("id"), r.PathValue("other"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, res, http.StatusOK)
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.history != nil {
		return true
	}
	s.writeJSON(w, ErrorBody{Error: ErrorDetail{
		Code:    string(errors.TypeConfig),
		Message: "run history is not enabled",
	}}, http.StatusNotImplemented)
	return false
}

func newScanResponse(res *engine.RunResult) ScanResponse {
	return ScanResponse{
		RunID:      res.RunID,
		SnapshotID: res.SnapshotID,
		FromCache:  res.FromCache,
		Params:     res.Params,
		Counters:   res.Counters,
		Summary:    analysis.Summarize(res.Opportunities, res.Counters.ItemsScanned),
		Totals:     export.Totalize(export.Rows(res.Opportunities)),
		DurationMs: res.DurationMs,
		StartedAt:  res.StartedAt,
	}
}

// normalizeRoute accepts "it-de", "IT->DE" or "it>de"
func normalizeRoute(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	for _, sep := range []string{"->", ">", "-", ":"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return strings.TrimSpace(parts[0]) + "->" + strings.TrimSpace(parts[1])
		}
	}
	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	detail := ErrorDetail{Code: string(errors.TypeInternal), Message: err.Error()}
	status := http.StatusInternalServerError

	var e *errors.Error
	if stderrors.As(err, &e) {
		detail = ErrorDetail{Code: string(e.Type), Message: e.Error(), Context: e.Context}
		status = statusFor(e.Type)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, ErrorBody{Error: detail}, status)
}

func statusFor(t errors.Type) int {
	switch t {
	case errors.TypeInput:
		return http.StatusBadRequest
	case errors.TypeStructural:
		return http.StatusUnprocessableEntity
	case errors.TypeNotFound:
		return http.StatusNotFound
	case errors.TypeSource:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr), zap.String("version", s.version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(errors.TypeInternal, "server failed", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
