package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/buoytelemetry/internal/common"
)

const (
	codeValidation         = "VALIDATION_ERROR"
	codeDuplicateUser      = "DUPLICATE_USER"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeUnauthorized       = "UNAUTHORIZED"
	codeInsufficientRole   = "INSUFFICIENT_ROLE"
	codeRecordFrozen       = "RECORD_FROZEN"
	codeNotFound           = "NOT_FOUND"
	codeMalformedBatch     = "MALFORMED_BATCH"
	codeInternal           = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ID      *int64 `json:"id,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{common.ErrMalformedBatch, http.StatusBadRequest, codeMalformedBatch},
	{common.ErrValidation, http.StatusBadRequest, codeValidation},
	{common.ErrDuplicateUser, http.StatusBadRequest, codeDuplicateUser},
	{common.ErrInvalidCredentials, http.StatusUnauthorized, codeInvalidCredentials},
	{common.ErrRefreshTokenExpired, http.StatusUnauthorized, codeUnauthorized},
	{common.ErrInsufficientRole, http.StatusForbidden, codeInsufficientRole},
	{common.ErrRecordFrozen, http.StatusForbidden, codeRecordFrozen},
	{common.ErrorNotFound, http.StatusNotFound, codeNotFound},
	{common.ErrorInternal, http.StatusInternalServerError, codeInternal},
}

// writeServiceError maps a service error onto a status code and error body.
// Bulk aborts also report the offending entry. Anything unmatched is
// reported as common.ErrorInternal carrying the underlying message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, matched := http.StatusInternalServerError, codeInternal, false
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			status, code, matched = e.status, e.code, true
			break
		}
	}
	if !matched {
		err = fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	detail := errorDetail{Code: code, Message: err.Error()}

	var be *common.BatchError
	if errors.As(err, &be) {
		detail.ID = be.ID
		detail.Index = &be.Index
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	}
	writeJSON(w, status, errorBody{Error: detail})
}
