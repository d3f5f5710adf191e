package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that templates parsed and the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.ledger.Ready(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		checks["backend"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	cs := s.statsCache.Stats()
	checks["cache"] = map[string]any{"entries": cs.Size, "hits": cs.Hits, "misses": cs.Misses}
	checks["rate_limiter"] = s.limiter.GetMetrics()
	checks["revision"] = s.ledger.Revision()

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := statsQuery{Granularity: core.Monthly}
	data := indexView{
		Today:      core.DateOf(s.now()).String(),
		Currency:   s.money.symbol,
		Entries:    s.buildEntriesView(core.Filter{}),
		Stats:      s.cachedStats(q),
		Categories: s.buildCategoriesView(),
	}
	s.render(w, r, "index.html", data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// logMutationError records a rejected or failed mutation on the request logger.
func logMutationError(r *http.Request, msg string, err error, op string) {
	logger := log.FromContext(r.Context())
	if core.IsValidation(err) || core.IsNotFound(err) {
		logger.DebugContext(r.Context(), msg, log.FieldOperation, op, log.FieldError, err.Error())
		return
	}
	logger.ErrorContext(r.Context(), msg, log.FieldOperation, op, log.FieldError, err.Error())
}
