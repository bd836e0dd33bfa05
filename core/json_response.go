package core

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/accountkit/accountkit/pkg/validator"
)

// JSONResponse is the standard JSON response envelope.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries error information for API consumers.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// JSON writes a success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(JSONResponse{Data: data})
	}
}

// NoContent writes a 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// JSONError writes an error envelope. Validation failures map to 422 with
// per-field details, HTTPError values keep their status and key, everything
// else becomes an opaque 500.
func JSONError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{Code: "internal_server_error"}

	var httpErr HTTPError
	if verrs := validator.Extract(err); verrs != nil {
		status = http.StatusUnprocessableEntity
		detail.Code = "validation_error"
		detail.Details = make(map[string][]string, len(verrs.Fields()))
		for _, field := range verrs.Fields() {
			detail.Details[field] = verrs.Get(field)
		}
	} else if errors.As(err, &httpErr) {
		status = httpErr.Code
		detail.Code = httpErr.Key
		detail.Message = http.StatusText(httpErr.Code)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Error: detail})
}
