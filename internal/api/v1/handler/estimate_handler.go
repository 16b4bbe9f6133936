package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// EstimateHandler handles LLM-backed entry estimation.
type EstimateHandler struct {
	estimateService service.EstimateService
	validate        *validator.Validate
	logger          zerolog.Logger
}

// NewEstimateHandler creates a new EstimateHandler.
func NewEstimateHandler(estimateService service.EstimateService, v *validator.Validate, logger zerolog.Logger) *EstimateHandler {
	return &EstimateHandler{estimateService: estimateService, validate: v, logger: logger}
}

// RegisterRoutes mounts the estimate endpoint.
func (h *EstimateHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/estimates", authMw(http.HandlerFunc(h.createEstimate)))
}

// createEstimate godoc
// @Summary Estimate billable hours from a narrative
// @Description Suggests an hours figure and billing description for a free-text work narrative. Suggestions are advisory and write nothing.
// @Tags estimates
// @Accept json
// @Produce json
// @Param estimate body dto.EstimateRequestDTO true "Work narrative"
// @Success 200 {object} dto.EstimateResponseDTO
// @Failure 400 {string} string "invalid payload"
// @Router /estimates [post]
func (h *EstimateHandler) createEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.EstimateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	est, err := h.estimateService.EstimateFromNarrative(r.Context(), req.Narrative)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EstimateResponseDTO{
		BillableHours: est.BillableHours,
		Description:   est.Description,
	})
}
