// internal/api/response.go
package api

import (
	"encoding/json"
	"net/http"

	apperrors "era-intake/internal/common/errors"
)

const maxBodyBytes = 1 << 20

type errorEnvelope struct {
	Error *apperrors.StandardError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates any error into the standard JSON envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"method":  r.Method,
		"path":    r.URL.Path,
		"code":    string(stdErr.Code),
		"details": stdErr.Details,
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Debug("request rejected", fields)
	}

	writeJSON(w, status, errorEnvelope{Error: stdErr})
}

// decode reads an optional JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	return nil
}
