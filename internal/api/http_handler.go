package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"catalog-etl-service/internal/domain"
	"catalog-etl-service/internal/pipeline"
)

// PipelineRunner is the single operation the HTTP surface needs.
type PipelineRunner interface {
	Run(ctx context.Context, stages []pipeline.Stage) (*pipeline.RunReport, error)
}

// HTTPHandler exposes the pipeline trigger endpoint in serve mode.
type HTTPHandler struct {
	runner   PipelineRunner
	validate *validator.Validate

	// runMu serializes runs: the pipeline is single-flight by design, so a
	// concurrent trigger is refused rather than queued.
	runMu sync.Mutex
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(runner PipelineRunner) *HTTPHandler {
	return &HTTPHandler{
		runner:   runner,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the pipeline endpoints on the router.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/runs", h.TriggerRun)
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
		}
	}
}

// RunRequest optionally narrows a triggered run to a subset of stages.
// Requesting gold still runs the quality gate first.
type RunRequest struct {
	Stages []string `json:"stages" validate:"omitempty,dive,oneof=bronze silver gold"`
}

// TriggerRun starts a synchronous pipeline run. Only one run may be in
// flight; a concurrent trigger gets 409.
func (h *HTTPHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var input RunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
			return
		}
		defer r.Body.Close()
	}

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if !h.runMu.TryLock() {
		respondWithError(w, http.StatusConflict, "A pipeline run is already in progress")
		return
	}
	defer h.runMu.Unlock()

	stages := make([]pipeline.Stage, 0, len(input.Stages))
	for _, s := range input.Stages {
		stages = append(stages, pipeline.Stage(s))
	}

	report, err := h.runner.Run(r.Context(), stages)
	if err != nil {
		log.Printf("ERROR: Pipeline run failed: %v", err)
		respondWithError(w, statusForRunError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// statusForRunError maps the failure taxonomy onto HTTP status codes.
func statusForRunError(err error) int {
	switch {
	case errors.Is(err, domain.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrQuality):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIntegrity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
