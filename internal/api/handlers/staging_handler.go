package handlers

import (
	"net/http"

	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
)

// StagingHandler handles staging component requests
type StagingHandler struct {
	pipeline *services.StagingPipeline
}

// NewStagingHandler creates a new staging handler
func NewStagingHandler(pipeline *services.StagingPipeline) *StagingHandler {
	return &StagingHandler{pipeline: pipeline}
}

// CreateComponent handles POST /api/staging
func (h *StagingHandler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	var in services.StagingInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	component, err := h.pipeline.Create(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, component)
}

// ListComponents handles GET /api/staging
func (h *StagingHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	components, err := h.pipeline.List(r.Context(), repositories.StagingFilter{
		Status: entities.StagingStatus(r.URL.Query().Get("status")),
		Type:   entities.ComponentType(r.URL.Query().Get("type")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"components": components,
		"count":      len(components),
	})
}

// GetComponent handles GET /api/staging/{id}
func (h *StagingHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	component, err := h.pipeline.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, component)
}

type stagingResolveRequest struct {
	Reviewer entities.Actor `json:"reviewer"`
	Note     *string        `json:"note,omitempty"`
}

// ApproveComponent handles POST /api/staging/{id}/approve
func (h *StagingHandler) ApproveComponent(w http.ResponseWriter, r *http.Request) {
	var req stagingResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	component, err := h.pipeline.Approve(r.Context(), r.PathValue("id"), req.Reviewer)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, component)
}

// RejectComponent handles POST /api/staging/{id}/reject
func (h *StagingHandler) RejectComponent(w http.ResponseWriter, r *http.Request) {
	var req stagingResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	component, err := h.pipeline.Reject(r.Context(), r.PathValue("id"), req.Reviewer, req.Note)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, component)
}

type bulkApproveRequest struct {
	IDs      []string       `json:"ids"`
	Reviewer entities.Actor `json:"reviewer"`
}

// BulkApprove handles POST /api/staging/bulk-approve
func (h *StagingHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	var req bulkApproveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.pipeline.BulkApprove(r.Context(), req.IDs, req.Reviewer)
	respondWithBatch(w, r, result, err)
}
