package handlers

import (
	"net/http"

	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
)

// RecordHandler handles curation record requests
type RecordHandler struct {
	records   *services.RecordService
	gates     *services.GateService
	promotion *services.PromotionService
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(
	records *services.RecordService,
	gates *services.GateService,
	promotion *services.PromotionService,
) *RecordHandler {
	return &RecordHandler{
		records:   records,
		gates:     gates,
		promotion: promotion,
	}
}

// CreateRecord handles POST /api/records
func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var in services.CreateRecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	record, err := h.records.Create(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, record)
}

// ListRecords handles GET /api/records
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	records, err := h.records.List(r.Context(), repositories.RecordFilter{
		State:  entities.LifecycleState(r.URL.Query().Get("state")),
		Kind:   r.URL.Query().Get("kind"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// GetRecord handles GET /api/records/{id}
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.records.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

type transitionRequest struct {
	To              entities.LifecycleState `json:"to"`
	ExpectedVersion *int64                  `json:"expected_version,omitempty"`
}

// TransitionRecord handles POST /api/records/{id}/transition
func (h *RecordHandler) TransitionRecord(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	record, err := h.records.Transition(r.Context(), r.PathValue("id"), req.To, req.ExpectedVersion)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

type verifiedLockRequest struct {
	Locked *bool `json:"locked"`
}

// SetVerifiedLock handles PUT /api/records/{id}/verified-lock
func (h *RecordHandler) SetVerifiedLock(w http.ResponseWriter, r *http.Request) {
	var req verifiedLockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.Locked == nil {
		respondWithError(w, http.StatusBadRequest, "locked is required")
		return
	}

	record, err := h.records.SetVerifiedLock(r.Context(), r.PathValue("id"), *req.Locked)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

type attachEvidenceRequest struct {
	EvidenceID string `json:"evidence_id"`
}

// AttachEvidence handles POST /api/records/{id}/evidence
func (h *RecordHandler) AttachEvidence(w http.ResponseWriter, r *http.Request) {
	var req attachEvidenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.EvidenceID == "" {
		respondWithError(w, http.StatusBadRequest, "evidence_id is required")
		return
	}

	record, err := h.records.AttachEvidence(r.Context(), r.PathValue("id"), req.EvidenceID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

// CheckGates handles GET /api/records/{id}/gates
func (h *RecordHandler) CheckGates(w http.ResponseWriter, r *http.Request) {
	result, err := h.gates.Check(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

type actorRequest struct {
	Actor entities.Actor `json:"actor"`
}

// PromoteRecord handles POST /api/records/{id}/promote
func (h *RecordHandler) PromoteRecord(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.promotion.Promote(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
