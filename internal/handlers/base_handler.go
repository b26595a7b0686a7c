// Package handlers wires HTTP requests to the service layer.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/khmerweb/cms-backend/internal/models"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondServiceError maps a service error to an HTTP status via the sentinel
// taxonomy and logs server-side failures.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		h.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrConflict):
		h.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrFolderNotEmpty):
		h.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrThumbnailerUnavailable):
		h.Logger.Error(fallback, zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		h.Logger.Error(fallback, zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

// parseIDParam parses a positive integer path parameter.
func parseIDParam(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, models.ErrValidation
	}
	return id, nil
}

// parseIntQuery parses an optional integer query parameter; absent or
// malformed values fall back to zero and let the service clamp.
func parseIntQuery(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
