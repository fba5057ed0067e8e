package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"hdi1d/internal/errs"
	"hdi1d/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps an error kind to the response status.
func statusForError(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	switch errs.KindOf(err) {
	case errs.KindValidation, errs.KindConfiguration:
		return http.StatusBadRequest
	case errs.KindBusy:
		return http.StatusTooManyRequests
	case errs.KindLoad, errs.KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeErrorResponse(w, types.ErrorResponse{Error: msg, Code: status})
}

// writeError writes err with the status and kind derived from it.
func writeError(w http.ResponseWriter, err error, statusLine string) int {
	status := statusForError(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("generation_busy")
	}
	writeErrorResponse(w, types.ErrorResponse{
		Error:  err.Error(),
		Code:   status,
		Kind:   string(errs.KindOf(err)),
		Field:  errs.FieldOf(err),
		Status: statusLine,
	})
	return status
}

func writeErrorResponse(w http.ResponseWriter, body types.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Warn().Err(err).Msg("encode response")
	}
}
