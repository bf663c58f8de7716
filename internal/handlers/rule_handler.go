package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/services/rules"
)

// ruleRequest is the body for creating or updating a rule
type ruleRequest struct {
	URLPattern string `json:"url_pattern" validate:"required"`
	Fields     string `json:"fields" validate:"required"`
}

// generateRuleRequest is the body for POST /api/rules/generate
type generateRuleRequest struct {
	Description string `json:"description" validate:"required"`
	URLPattern  string `json:"url_pattern"`
	Save        bool   `json:"save"`
}

// RuleHandler handles extraction rule management
type RuleHandler struct {
	ruleService *rules.Service
	logger      arbor.ILogger
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(ruleService *rules.Service, logger arbor.ILogger) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
		logger:      logger,
	}
}

// ListRulesHandler handles GET /api/rules
func (h *RuleHandler) ListRulesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	list, err := h.ruleService.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list rules")
		WriteError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}

	WriteJSON(w, http.StatusOK, list)
}

// CreateRuleHandler handles POST /api/rules
func (h *RuleHandler) CreateRuleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ruleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.ruleService.Add(r.Context(), req.URLPattern, req.Fields)
	if err != nil {
		h.writeRuleError(w, err, "")
		return
	}

	WriteJSON(w, http.StatusCreated, rule)
}

// GetRuleHandler handles GET /api/rules/{id}
func (h *RuleHandler) GetRuleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := extractIDFromPath(r.URL.Path, "/api/rules/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Rule ID is required")
		return
	}

	rule, err := h.ruleService.Get(r.Context(), id)
	if err != nil {
		h.writeRuleError(w, err, id)
		return
	}

	WriteJSON(w, http.StatusOK, rule)
}

// UpdateRuleHandler handles PUT /api/rules/{id}
func (h *RuleHandler) UpdateRuleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	id := extractIDFromPath(r.URL.Path, "/api/rules/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Rule ID is required")
		return
	}

	var req ruleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.ruleService.Update(r.Context(), id, req.URLPattern, req.Fields)
	if err != nil {
		h.writeRuleError(w, err, id)
		return
	}

	WriteJSON(w, http.StatusOK, rule)
}

// DeleteRuleHandler handles DELETE /api/rules/{id}
func (h *RuleHandler) DeleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	id := extractIDFromPath(r.URL.Path, "/api/rules/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Rule ID is required")
		return
	}

	if err := h.ruleService.Delete(r.Context(), id); err != nil {
		h.writeRuleError(w, err, id)
		return
	}

	WriteSuccess(w, "Rule deleted")
}

// GenerateRuleHandler handles POST /api/rules/generate. The generated fields
// are returned, and saved as a new rule when save is set with a url_pattern.
func (h *RuleHandler) GenerateRuleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req generateRuleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	fields, err := h.ruleService.GenerateFields(r.Context(), req.Description)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Rule generation failed")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	if !req.Save {
		WriteJSON(w, http.StatusOK, map[string]string{"fields": fields})
		return
	}

	if req.URLPattern == "" {
		WriteError(w, http.StatusBadRequest, "url_pattern is required to save a generated rule")
		return
	}

	rule, err := h.ruleService.Add(r.Context(), req.URLPattern, fields)
	if err != nil {
		h.writeRuleError(w, err, "")
		return
	}

	WriteJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) writeRuleError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Rule not found")
	case errors.Is(err, rules.ErrInvalidRule):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("id", id).Msg("Rule operation failed")
		WriteError(w, http.StatusInternalServerError, "Rule operation failed")
	}
}
