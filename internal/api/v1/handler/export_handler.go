package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ExportHandler handles CSV export endpoints.
type ExportHandler struct {
	exportService service.ExportService
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService service.ExportService, v *validator.Validate, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{exportService: exportService, validate: v, logger: logger}
}

// RegisterRoutes mounts the export endpoint.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/exports", authMw(http.HandlerFunc(h.createExport)))
}

// createExport godoc
// @Summary Export entries to CSV
// @Description Archives a CSV of the user's entries in the date range and returns a download URL. Ranges matching more entries than the hard cap are rejected before any data is read.
// @Tags exports
// @Accept json
// @Produce json
// @Param export body dto.ExportRequestDTO true "Date range"
// @Success 201 {object} dto.ExportResponseDTO
// @Failure 403 {string} string "monthly export limit reached"
// @Failure 422 {string} string "range exceeds the export cap"
// @Router /exports [post]
func (h *ExportHandler) createExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.ExportRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		http.Error(w, "Invalid from date: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		http.Error(w, "Invalid to date: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.exportService.ExportCSV(r.Context(), userID, from, to)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ExportResponseDTO{
		Key:      result.Key,
		URL:      result.URL,
		RowCount: result.RowCount,
	})
}
