package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// BillableHandler handles time-entry endpoints.
type BillableHandler struct {
	billableService service.BillableService
	validate        *validator.Validate
	logger          zerolog.Logger
}

// NewBillableHandler creates a new BillableHandler.
func NewBillableHandler(billableService service.BillableService, v *validator.Validate, logger zerolog.Logger) *BillableHandler {
	return &BillableHandler{billableService: billableService, validate: v, logger: logger}
}

// RegisterRoutes mounts billable routes under /billables.
func (h *BillableHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/billables", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/billables/", authMw(http.HandlerFunc(h.handleItem)))
}

func (h *BillableHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listBillables(w, r)
	case http.MethodPost:
		h.createBillable(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BillableHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getBillable(w, r)
	case http.MethodPut:
		h.updateBillable(w, r)
	case http.MethodDelete:
		h.deleteBillable(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func billableResponse(b *model.Billable) dto.BillableResponseDTO {
	return dto.BillableResponseDTO{
		ID:          b.ID,
		Date:        b.Date.Format("2006-01-02"),
		Client:      b.Client,
		ClientRef:   b.ClientRef,
		Matter:      b.Matter,
		CaseNumber:  b.CaseNumber,
		Hours:       b.Hours,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// listBillables godoc
// @Summary List time entries
// @Description Returns one page of the user's entries, newest first, with the total count.
// @Tags billables
// @Produce json
// @Param page query int false "Zero-based page number"
// @Param page_size query int false "Page size (default 50)"
// @Success 200 {object} dto.BillableListResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /billables [get]
func (h *BillableHandler) listBillables(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize <= 0 {
		pageSize = service.DefaultPageSize
	}

	items, total, err := h.billableService.ListBillables(r.Context(), userID, page, pageSize)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := dto.BillableListResponseDTO{
		Items:      make([]dto.BillableResponseDTO, 0, len(items)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    (page+1)*pageSize < total,
	}
	for i := range items {
		resp.Items = append(resp.Items, billableResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// createBillable godoc
// @Summary Log a time entry
// @Description Creates an entry, consuming one unit of the monthly quota on the free tier.
// @Tags billables
// @Accept json
// @Produce json
// @Param billable body dto.BillableCreateDTO true "Entry data"
// @Success 201 {object} dto.BillableResponseDTO
// @Failure 400 {string} string "invalid payload"
// @Failure 403 {string} string "monthly entry limit reached"
// @Router /billables [post]
func (h *BillableHandler) createBillable(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.BillableCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		http.Error(w, "Invalid date: "+err.Error(), http.StatusBadRequest)
		return
	}

	b := &model.Billable{
		Date:        date,
		Client:      req.Client,
		ClientRef:   req.ClientRef,
		Matter:      req.Matter,
		CaseNumber:  req.CaseNumber,
		Hours:       req.Hours,
		Description: req.Description,
	}
	created, err := h.billableService.CreateBillable(r.Context(), userID, b)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, billableResponse(created))
}

// getBillable godoc
// @Summary Get a time entry
// @Tags billables
// @Produce json
// @Param billableId path string true "Entry ID"
// @Success 200 {object} dto.BillableResponseDTO
// @Failure 404 {string} string "not found"
// @Router /billables/{billableId} [get]
func (h *BillableHandler) getBillable(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/billables/")
	b, err := h.billableService.GetBillable(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, billableResponse(b))
}

// updateBillable godoc
// @Summary Update a time entry
// @Description Replaces an entry's fields. Edits never consume quota.
// @Tags billables
// @Accept json
// @Produce json
// @Param billableId path string true "Entry ID"
// @Param billable body dto.BillableUpdateDTO true "Entry data"
// @Success 200 {object} dto.BillableResponseDTO
// @Failure 404 {string} string "not found"
// @Router /billables/{billableId} [put]
func (h *BillableHandler) updateBillable(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/billables/")
	var req dto.BillableUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		http.Error(w, "Invalid date: "+err.Error(), http.StatusBadRequest)
		return
	}

	b := &model.Billable{
		ID:          id,
		Date:        date,
		Client:      req.Client,
		ClientRef:   req.ClientRef,
		Matter:      req.Matter,
		CaseNumber:  req.CaseNumber,
		Hours:       req.Hours,
		Description: req.Description,
	}
	updated, err := h.billableService.UpdateBillable(r.Context(), userID, b)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, billableResponse(updated))
}

// deleteBillable godoc
// @Summary Delete a time entry
// @Description Removes an entry. The monthly counter is not refunded.
// @Tags billables
// @Param billableId path string true "Entry ID"
// @Success 204 {string} string "deleted"
// @Failure 404 {string} string "not found"
// @Router /billables/{billableId} [delete]
func (h *BillableHandler) deleteBillable(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/billables/")
	if err := h.billableService.DeleteBillable(r.Context(), id, userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
