package handlers

import (
	"net/http"
	"strconv"

	"github.com/adcatlas/curation-backend/internal/api/loaders"
	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
)

// DefaultHighConfidenceThreshold applies when the request does not set one
const DefaultHighConfidenceThreshold = 0.8

// ProvenanceHandler handles evidence and field provenance requests
type ProvenanceHandler struct {
	ledger       *services.ProvenanceLedger
	evidenceRepo repositories.EvidenceRepository
}

// NewProvenanceHandler creates a new provenance handler
func NewProvenanceHandler(ledger *services.ProvenanceLedger, evidenceRepo repositories.EvidenceRepository) *ProvenanceHandler {
	return &ProvenanceHandler{
		ledger:       ledger,
		evidenceRepo: evidenceRepo,
	}
}

// RecordEvidence handles POST /api/evidence
func (h *ProvenanceHandler) RecordEvidence(w http.ResponseWriter, r *http.Request) {
	var item entities.EvidenceItem
	if err := decodeJSON(w, r, &item); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if _, err := h.ledger.RecordEvidence(r.Context(), &item); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}

// GetEvidence handles GET /api/evidence/{id}
func (h *ProvenanceHandler) GetEvidence(w http.ResponseWriter, r *http.Request) {
	item, err := h.ledger.GetEvidence(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

// LinkField handles POST /api/provenance
func (h *ProvenanceHandler) LinkField(w http.ResponseWriter, r *http.Request) {
	var in services.LinkFieldInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	id, err := h.ledger.LinkField(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// ListProvenance handles GET /api/records/{id}/provenance.
// Rows come oldest first; ?field= narrows to one field.
func (h *ProvenanceHandler) ListProvenance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.ledger.History(r.Context(), r.PathValue("id"), r.URL.Query().Get("field"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	ids := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.EvidenceItemID != nil && !seen[*row.EvidenceItemID] {
			seen[*row.EvidenceItemID] = true
			ids = append(ids, *row.EvidenceItemID)
		}
	}

	l := loaders.For(r.Context())
	if l == nil {
		l = loaders.NewLoaders(h.evidenceRepo)
	}
	evidence, err := l.LoadEvidence(r.Context(), ids)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"record_id":  r.PathValue("id"),
		"provenance": rows,
		"evidence":   evidence,
		"count":      len(rows),
	})
}

// LatestProvenance handles GET /api/records/{id}/provenance/latest
func (h *ProvenanceHandler) LatestProvenance(w http.ResponseWriter, r *http.Request) {
	latest, err := h.ledger.LatestProvenance(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"record_id": r.PathValue("id"),
		"fields":    latest,
	})
}

// HighConfidenceFields handles GET /api/records/{id}/provenance/high-confidence
func (h *ProvenanceHandler) HighConfidenceFields(w http.ResponseWriter, r *http.Request) {
	threshold := DefaultHighConfidenceThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = parsed
	}

	fields, err := h.ledger.HighConfidenceFields(r.Context(), r.PathValue("id"), threshold)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"record_id": r.PathValue("id"),
		"threshold": threshold,
		"fields":    fields,
	})
}
