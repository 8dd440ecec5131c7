package handlers

import (
	"net/http"

	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// EnrichmentHandler handles enrichment job requests
type EnrichmentHandler struct {
	enrichment *services.EnrichmentService
}

// NewEnrichmentHandler creates a new enrichment handler
func NewEnrichmentHandler(enrichment *services.EnrichmentService) *EnrichmentHandler {
	return &EnrichmentHandler{enrichment: enrichment}
}

// RegisterJob handles POST /api/enrichment/jobs
func (h *EnrichmentHandler) RegisterJob(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterJobInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	job, err := h.enrichment.RegisterJob(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, job)
}

// GetJob handles GET /api/enrichment/jobs/{id}
func (h *EnrichmentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.enrichment.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, job)
}

type completeJobRequest struct {
	Proposed []entities.ProposedChange `json:"proposed"`
}

// CompleteJob handles POST /api/enrichment/jobs/{id}/complete
func (h *EnrichmentHandler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	var req completeJobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	job, err := h.enrichment.CompleteJob(r.Context(), r.PathValue("id"), req.Proposed)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, job)
}

type failJobRequest struct {
	Error string `json:"error"`
}

// FailJob handles POST /api/enrichment/jobs/{id}/fail
func (h *EnrichmentHandler) FailJob(w http.ResponseWriter, r *http.Request) {
	var req failJobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	job, err := h.enrichment.FailJob(r.Context(), r.PathValue("id"), req.Error)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, job)
}

// GetDiff handles GET /api/enrichment/jobs/{id}/diff
func (h *EnrichmentHandler) GetDiff(w http.ResponseWriter, r *http.Request) {
	view, err := h.enrichment.GetDiff(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

type applyJobRequest struct {
	SelectedFields []string       `json:"selected_fields"`
	Actor          entities.Actor `json:"actor"`
}

// ApplyJob handles POST /api/enrichment/jobs/{id}/apply
func (h *EnrichmentHandler) ApplyJob(w http.ResponseWriter, r *http.Request) {
	var req applyJobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.enrichment.ApplyJob(r.Context(), r.PathValue("id"), req.SelectedFields, req.Actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
