package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ErrValidation
	}
	return nil
}

// writeError maps service errors to status codes. Messages never say more
// than the status already does; internal details are only logged.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"
	path := r.URL.Path

	switch {
	case errors.Is(err, common.ErrValidation):
		status, msg = http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, common.ErrorAlreadyExists):
		status, msg = http.StatusBadRequest, "already exists"
		if path == "/auth/register" {
			msg = "Email already registered"
		}
	case errors.Is(err, common.ErrPasswordRequired):
		status, msg = http.StatusUnauthorized, "Password required to access this shared snippet"
	case errors.Is(err, common.ErrInvalidPassword):
		status, msg = http.StatusUnauthorized, "Invalid password"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status, msg = http.StatusUnauthorized, "Could not validate credentials"
		if path == "/auth/login" {
			msg = "Incorrect email or password"
		}
	case errors.Is(err, common.ErrNotFoundOrForbidden):
		status, msg = http.StatusNotFound, "Snippet not found or access denied"
	case errors.Is(err, common.ErrorNotFound):
		status, msg = http.StatusNotFound, "Snippet not found"
		if strings.HasPrefix(path, "/shared/") {
			msg = "Shared link not found or expired"
		}
	case errors.Is(err, cryptox.ErrEngineUnavailable):
		status, msg = http.StatusServiceUnavailable, "Encryption service unavailable"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "error", err)
	}
	if status == http.StatusUnauthorized && !strings.HasPrefix(path, "/shared/") {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	writeJSON(w, status, ErrorResponse{Error: msg})
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
	if msg == common.ErrValidation.Error() {
		return "invalid request body"
	}
	return msg
}
