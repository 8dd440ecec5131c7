package handlers

import (
	"net/http"

	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
)

// ReviewHandler handles the review queue
type ReviewHandler struct {
	reviews *services.ReviewWorkflow
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *services.ReviewWorkflow) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// EnqueueChange handles POST /api/review/changes
func (h *ReviewHandler) EnqueueChange(w http.ResponseWriter, r *http.Request) {
	var in services.EnqueueInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	item, err := h.reviews.Enqueue(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}

// ListChanges handles GET /api/review/changes
func (h *ReviewHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	q := r.URL.Query()
	items, err := h.reviews.List(r.Context(), repositories.ReviewFilter{
		Status:   entities.ReviewStatus(q.Get("status")),
		RecordID: q.Get("record_id"),
		SortDesc: q.Get("sort") == "desc",
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"changes": items,
		"count":   len(items),
	})
}

// GetChange handles GET /api/review/changes/{id}
func (h *ReviewHandler) GetChange(w http.ResponseWriter, r *http.Request) {
	item, err := h.reviews.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

type resolveRequest struct {
	Reviewer entities.Actor `json:"reviewer"`
	Comment  *string        `json:"comment,omitempty"`
}

// ApproveChange handles POST /api/review/changes/{id}/approve
func (h *ReviewHandler) ApproveChange(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	item, err := h.reviews.Approve(r.Context(), r.PathValue("id"), req.Reviewer, req.Comment)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

// RejectChange handles POST /api/review/changes/{id}/reject
func (h *ReviewHandler) RejectChange(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	item, err := h.reviews.Reject(r.Context(), r.PathValue("id"), req.Reviewer, req.Comment)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

type autoApproveRequest struct {
	RecordID string `json:"record_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// AutoApprove handles POST /api/review/changes/auto-approve.
// A partial result is still returned when the batch aborts.
func (h *ReviewHandler) AutoApprove(w http.ResponseWriter, r *http.Request) {
	var req autoApproveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithAppError(w, r, err)
			return
		}
	}

	result, err := h.reviews.AutoApprove(r.Context(), repositories.ReviewFilter{
		RecordID: req.RecordID,
		Limit:    req.Limit,
	})
	respondWithBatch(w, r, result, err)
}
