package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AdminHandler handles the support panel endpoints. Every route requires the
// admin middleware in front of it.
type AdminHandler struct {
	adminService service.AdminService
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService service.AdminService, v *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{adminService: adminService, validate: v, logger: logger}
}

// RegisterRoutes mounts admin routes under /admin.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw, adminMw func(http.Handler) http.Handler) {
	mux.Handle("/admin/accounts", authMw(adminMw(http.HandlerFunc(h.listAccounts))))
	mux.Handle("/admin/accounts/", authMw(adminMw(http.HandlerFunc(h.handleAccount))))
	mux.Handle("/admin/audit", authMw(adminMw(http.HandlerFunc(h.listAuditLog))))
}

func (h *AdminHandler) handleAccount(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/accounts/")
	parts := strings.SplitN(rest, "/", 2)
	userID := parts[0]
	if userID == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getAccount(w, r, userID)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "reset-usage":
		h.resetUsage(w, r, userID)
	case "tier":
		h.changeTier(w, r, userID)
	case "status":
		h.changeStatus(w, r, userID)
	case "trial":
		h.extendTrial(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func (h *AdminHandler) actor(r *http.Request, notes *string) (service.Actor, bool) {
	adminID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || adminID == "" {
		return service.Actor{}, false
	}
	ip := clientIP(r)
	return service.Actor{AdminID: adminID, Notes: notes, IPAddress: &ip}, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// listAccounts godoc
// @Summary List user accounts with their ledgers
// @Tags admin
// @Produce json
// @Param page query int false "Zero-based page number"
// @Param page_size query int false "Page size (default 50)"
// @Success 200 {array} service.Account
// @Failure 403 {string} string "admin access required"
// @Router /admin/accounts [get]
func (h *AdminHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize <= 0 {
		pageSize = 50
	}
	accounts, err := h.adminService.ListAccounts(r.Context(), pageSize, page*pageSize)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// getAccount godoc
// @Summary Get one account with its ledger
// @Tags admin
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} service.Account
// @Failure 404 {string} string "not found"
// @Router /admin/accounts/{userId} [get]
func (h *AdminHandler) getAccount(w http.ResponseWriter, r *http.Request, userID string) {
	account, err := h.adminService.GetAccount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// resetUsage godoc
// @Summary Zero a user's monthly counters
// @Description Resets both counters for the current month and records the overwritten values in the audit trail.
// @Tags admin
// @Accept json
// @Param userId path string true "User ID"
// @Param body body dto.AdminResetUsageDTO false "Optional notes"
// @Success 204 {string} string "reset"
// @Failure 404 {string} string "not found"
// @Router /admin/accounts/{userId}/reset-usage [post]
func (h *AdminHandler) resetUsage(w http.ResponseWriter, r *http.Request, userID string) {
	var req dto.AdminResetUsageDTO
	_ = json.NewDecoder(r.Body).Decode(&req)

	actor, ok := h.actor(r, req.Notes)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.adminService.ResetUsage(r.Context(), actor, userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// changeTier godoc
// @Summary Override a user's plan tier
// @Tags admin
// @Accept json
// @Param userId path string true "User ID"
// @Param body body dto.AdminChangeTierDTO true "New tier"
// @Success 204 {string} string "updated"
// @Failure 404 {string} string "not found"
// @Router /admin/accounts/{userId}/tier [post]
func (h *AdminHandler) changeTier(w http.ResponseWriter, r *http.Request, userID string) {
	var req dto.AdminChangeTierDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	actor, ok := h.actor(r, req.Notes)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.adminService.ChangeTier(r.Context(), actor, userID, model.Tier(req.Tier)); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// changeStatus godoc
// @Summary Override a user's subscription status
// @Tags admin
// @Accept json
// @Param userId path string true "User ID"
// @Param body body dto.AdminChangeStatusDTO true "New status"
// @Success 204 {string} string "updated"
// @Failure 404 {string} string "not found"
// @Router /admin/accounts/{userId}/status [post]
func (h *AdminHandler) changeStatus(w http.ResponseWriter, r *http.Request, userID string) {
	var req dto.AdminChangeStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	actor, ok := h.actor(r, req.Notes)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.adminService.ChangeStatus(r.Context(), actor, userID, model.Status(req.Status)); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// extendTrial godoc
// @Summary Extend a user's trial
// @Tags admin
// @Accept json
// @Param userId path string true "User ID"
// @Param body body dto.AdminExtendTrialDTO true "New trial end"
// @Success 204 {string} string "updated"
// @Failure 404 {string} string "not found"
// @Router /admin/accounts/{userId}/trial [post]
func (h *AdminHandler) extendTrial(w http.ResponseWriter, r *http.Request, userID string) {
	var req dto.AdminExtendTrialDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	actor, ok := h.actor(r, req.Notes)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.adminService.ExtendTrial(r.Context(), actor, userID, req.TrialEnd); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listAuditLog godoc
// @Summary List audit trail entries
// @Description Returns audit entries newest first, optionally filtered by admin, target user, or action.
// @Tags admin
// @Produce json
// @Param admin_id query string false "Filter by admin"
// @Param target_user_id query string false "Filter by target user"
// @Param action query string false "Filter by action"
// @Param page query int false "Zero-based page number"
// @Param page_size query int false "Page size (default 50)"
// @Success 200 {object} map[string]any
// @Failure 403 {string} string "admin access required"
// @Router /admin/audit [get]
func (h *AdminHandler) listAuditLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	var filter repository.AuditFilter
	if v := q.Get("admin_id"); v != "" {
		filter.AdminID = &v
	}
	if v := q.Get("target_user_id"); v != "" {
		filter.TargetUserID = &v
	}
	if v := q.Get("action"); v != "" {
		action := model.AuditAction(v)
		filter.Action = &action
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	if pageSize <= 0 {
		pageSize = 50
	}

	entries, total, err := h.adminService.ListAuditLog(r.Context(), filter, pageSize, page*pageSize)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":     entries,
		"total_count": total,
		"page":        page,
		"page_size":   pageSize,
	})
}
