package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError translates service-layer errors into HTTP responses.
// Limit denials carry the upgrade flag so the client can route the user to
// either the upgrade screen or billing settings.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": vErr.Error(), "field": vErr.Field})
		return
	}
	var lErr *service.LimitError
	if errors.As(err, &lErr) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":   lErr.Error(),
			"limit":   lErr.Limit,
			"upgrade": lErr.Upgrade,
		})
		return
	}
	var xErr *service.ExportTooLargeError
	if errors.As(err, &xErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": xErr.Error(),
			"count": xErr.Count,
			"cap":   xErr.Cap,
		})
		return
	}
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	logger.Error().Err(err).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
}
