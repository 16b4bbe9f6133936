package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// TemplateHandler handles reusable entry template endpoints.
type TemplateHandler struct {
	templateService service.TemplateService
	validate        *validator.Validate
	logger          zerolog.Logger
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService service.TemplateService, v *validator.Validate, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, validate: v, logger: logger}
}

// RegisterRoutes mounts template routes under /templates.
func (h *TemplateHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/templates", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/templates/", authMw(http.HandlerFunc(h.handleItem)))
}

func (h *TemplateHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTemplates(w, r)
	case http.MethodPost:
		h.createTemplate(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TemplateHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if strings.HasSuffix(r.URL.Path, "/duplicate") {
			h.duplicateTemplate(w, r)
			return
		}
		http.NotFound(w, r)
	case http.MethodPut:
		h.updateTemplate(w, r)
	case http.MethodDelete:
		h.deleteTemplate(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func templateResponse(t *model.Template) dto.TemplateResponseDTO {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.TemplateResponseDTO{
		ID:          t.ID,
		Name:        t.Name,
		Client:      t.Client,
		Matter:      t.Matter,
		Hours:       t.Hours,
		Description: t.Description,
		Tags:        tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// listTemplates godoc
// @Summary List templates
// @Tags templates
// @Produce json
// @Success 200 {array} dto.TemplateResponseDTO
// @Router /templates [get]
func (h *TemplateHandler) listTemplates(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	templates, err := h.templateService.ListTemplates(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := make([]dto.TemplateResponseDTO, 0, len(templates))
	for i := range templates {
		resp = append(resp, templateResponse(&templates[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// createTemplate godoc
// @Summary Create a template
// @Description Saves a reusable entry template, capped at three on the free tier.
// @Tags templates
// @Accept json
// @Produce json
// @Param template body dto.TemplateCreateDTO true "Template data"
// @Success 201 {object} dto.TemplateResponseDTO
// @Failure 403 {string} string "template limit reached"
// @Router /templates [post]
func (h *TemplateHandler) createTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.TemplateCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	t := &model.Template{
		Name:        req.Name,
		Client:      req.Client,
		Matter:      req.Matter,
		Hours:       req.Hours,
		Description: req.Description,
		Tags:        req.Tags,
	}
	created, err := h.templateService.CreateTemplate(r.Context(), userID, t)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, templateResponse(created))
}

// updateTemplate godoc
// @Summary Update a template
// @Tags templates
// @Accept json
// @Produce json
// @Param templateId path string true "Template ID"
// @Param template body dto.TemplateUpdateDTO true "Template data"
// @Success 200 {object} dto.TemplateResponseDTO
// @Failure 404 {string} string "not found"
// @Router /templates/{templateId} [put]
func (h *TemplateHandler) updateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/templates/")
	var req dto.TemplateUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	t := &model.Template{
		ID:          id,
		Name:        req.Name,
		Client:      req.Client,
		Matter:      req.Matter,
		Hours:       req.Hours,
		Description: req.Description,
		Tags:        req.Tags,
	}
	updated, err := h.templateService.UpdateTemplate(r.Context(), userID, t)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, templateResponse(updated))
}

// duplicateTemplate godoc
// @Summary Duplicate a template
// @Description Copies a template under a derived name; the copy counts against the cap.
// @Tags templates
// @Produce json
// @Param templateId path string true "Template ID"
// @Success 201 {object} dto.TemplateResponseDTO
// @Failure 403 {string} string "template limit reached"
// @Failure 404 {string} string "not found"
// @Router /templates/{templateId}/duplicate [post]
func (h *TemplateHandler) duplicateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/templates/")
	id = strings.TrimSuffix(id, "/duplicate")
	created, err := h.templateService.DuplicateTemplate(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, templateResponse(created))
}

// deleteTemplate godoc
// @Summary Delete a template
// @Tags templates
// @Param templateId path string true "Template ID"
// @Success 204 {string} string "deleted"
// @Failure 404 {string} string "not found"
// @Router /templates/{templateId} [delete]
func (h *TemplateHandler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/templates/")
	if err := h.templateService.DeleteTemplate(r.Context(), id, userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
