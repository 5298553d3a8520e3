package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ideias/internal/apperr"
	"ideias/internal/constants"
)

// envelope is merged into every success body next to "ok": true.
type envelope map[string]any

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, body envelope) {
	out := make(map[string]any, len(body)+1)
	for k, v := range body {
		out[k] = v
	}
	out["ok"] = true
	writeJSON(w, status, out)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		OK:      false,
		Error:   code,
		Message: message,
	})
}

func statusForCode(code string) int {
	switch code {
	case constants.ErrCodeInvalidData,
		constants.ErrCodeTokenInvalid,
		constants.ErrCodeTokenUsed,
		constants.ErrCodeTokenExpired,
		constants.ErrCodeAudienceInvalid,
		constants.ErrCodeIssuerInvalid,
		constants.ErrCodeEmailMissing:
		return http.StatusBadRequest
	case constants.ErrCodeInvalidCredentials, constants.ErrCodeNotAuthenticated:
		return http.StatusUnauthorized
	case constants.ErrCodeNotFound:
		return http.StatusNotFound
	case constants.ErrCodeEmailExists:
		return http.StatusConflict
	case constants.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case constants.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure answers with the business code carried by err. Anything that
// is not an *apperr.Error is logged and reported as internal_error.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		writeError(w, statusForCode(appErr.Code), appErr.Code, appErr.Message)
		return
	}

	slog.Error("request failed", "component", "api", "method", r.Method, "path", r.URL.Path, "error", err)
	internalError(w)
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, constants.ErrCodeInvalidData, message)
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, constants.ErrCodeNotAuthenticated, "")
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, constants.ErrCodeNotFound, "")
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, constants.ErrCodeInternal, "An internal error occurred")
}
