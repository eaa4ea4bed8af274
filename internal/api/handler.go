package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/score"
)

// MaxBatchSize bounds a single batch evaluation request.
const MaxBatchSize = 1000

// Handler holds dependencies for API handlers.
type Handler struct {
	pipe    *pipeline.Pipeline
	engine  *score.Engine
	repo    domain.Repository
	cache   domain.Cache
	version string
}

// NewHandler creates a new API handler.
func NewHandler(pipe *pipeline.Pipeline, engine *score.Engine, repo domain.Repository, cache domain.Cache, version string) *Handler {
	return &Handler{
		pipe:    pipe,
		engine:  engine,
		repo:    repo,
		cache:   cache,
		version: version,
	}
}

// EvaluateRequest is the request body for POST /v1/evaluate: the raw
// applicant fields, passed through sanitization untouched.
type EvaluateRequest struct {
	Fields map[string]any `json:"fields"`
}

// Evaluate handles POST /v1/evaluate requests. Invalid applications
// still return 200 with a rejected result; the Errors list tells the
// caller what failed.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "fields is required",
		})
		return
	}

	res := h.pipe.Evaluate(r.Context(), req.Fields)
	writeJSON(w, http.StatusOK, res)
}

// BatchRequest is the request body for POST /v1/evaluate/batch.
type BatchRequest struct {
	Applications []map[string]any `json:"applications"`
}

// BatchResponse is the response for POST /v1/evaluate/batch.
type BatchResponse struct {
	Results   []*domain.EvaluationResult `json:"results"`
	Count     int                        `json:"count"`
	ElapsedMs int64                      `json:"elapsedMs"`
}

// EvaluateBatch handles POST /v1/evaluate/batch requests. Results come
// back in input order regardless of worker scheduling.
func (h *Handler) EvaluateBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(req.Applications) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "applications is required",
		})
		return
	}
	if len(req.Applications) > MaxBatchSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "batch exceeds maximum size",
		})
		return
	}

	results := h.pipe.EvaluateBatch(r.Context(), req.Applications)

	writeJSON(w, http.StatusOK, BatchResponse{
		Results:   results,
		Count:     len(results),
		ElapsedMs: time.Since(start).Milliseconds(),
	})
}

// Stats returns the running session statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipe.SessionStats())
}

// ListRules returns the rules currently loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.engine.Rules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetEvaluation retrieves a persisted evaluation by ID.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	evalID := chi.URLParam(r, "id")
	if evalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "evaluation id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	eval, err := h.repo.GetEvaluation(r.Context(), evalID)
	if err != nil {
		slog.Error("failed to get evaluation", "id", evalID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "evaluation not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

// ListEvaluations returns the most recent persisted evaluations.
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 50
	evals, err := h.repo.ListEvaluations(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list evaluations", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list evaluations",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": evals,
		"count":       len(evals),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic. The
// engine must carry at least one rule before serving decisions.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.engine.RulesCount() == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
			"error": "no rules loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
