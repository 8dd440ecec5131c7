package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 1 << 20
)

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error string                    `json:"error"`
	Type  apperrors.ErrorType       `json:"type"`
	ID    string                    `json:"id,omitempty"`
	Gates *entities.GateCheckResult `json:"gates,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{
		Error: message,
		Type:  apperrors.ErrorTypeValidation,
	})
}

// statusFor maps an application error type to its HTTP status
func statusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeAlreadyResolved:
		return http.StatusConflict
	case apperrors.ErrorTypeGateFailed:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeLocked:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError writes err using its AppError type. Internal details never leave the process.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}

	body := errorResponse{Error: appErr.Message, Type: appErr.Type, ID: appErr.ID}
	if gates, ok := appErr.Details.(*entities.GateCheckResult); ok {
		body.Gates = gates
	}

	status := statusFor(appErr.Type)
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		body.Error = "internal server error"
	}
	respondWithJSON(w, status, body)
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// pagination parses limit/offset query parameters
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, apperrors.NewValidationError("limit must be a positive integer")
		}
		limit = min(limit, maxPageSize)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, apperrors.NewValidationError("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// batchResponse carries the partial report of a batch that aborted on a systemic error
type batchResponse struct {
	errorResponse
	Result *entities.BatchResult `json:"result"`
}

// respondWithBatch reports a bulk operation. Per-item failures are part of a 200
// response; an abort still returns whatever completed before it.
func respondWithBatch(w http.ResponseWriter, r *http.Request, result *entities.BatchResult, err error) {
	if err == nil {
		respondWithJSON(w, http.StatusOK, result)
		return
	}
	if result == nil {
		respondWithAppError(w, r, err)
		return
	}

	observability.LoggerFromContext(r.Context()).Error().Err(err).
		Int("approved", result.ApprovedCount).
		Int("failed", result.FailedCount).
		Msg("batch aborted")
	respondWithJSON(w, http.StatusInternalServerError, batchResponse{
		errorResponse: errorResponse{Error: "batch aborted", Type: apperrors.TypeOf(err)},
		Result:        result,
	})
}
