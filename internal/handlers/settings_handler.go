package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/ternarybob/contextlog/internal/services/llm"
)

type promptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type aiSettingsRequest struct {
	Provider string `json:"provider" validate:"required,oneof=openai gemini claude offline"`
	BaseURL  string `json:"base_url" validate:"omitempty,url"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
}

// SettingsHandler manages the general prompt and AI provider settings
type SettingsHandler struct {
	kvStorage  interfaces.KeyValueStorage
	summarizer *llm.Service
	providers  *llm.ProviderFactory
	logger     arbor.ILogger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(kvStorage interfaces.KeyValueStorage, summarizer *llm.Service, providers *llm.ProviderFactory, logger arbor.ILogger) *SettingsHandler {
	return &SettingsHandler{
		kvStorage:  kvStorage,
		summarizer: summarizer,
		providers:  providers,
		logger:     logger,
	}
}

// GetPromptHandler handles GET /api/settings/prompt
func (h *SettingsHandler) GetPromptHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	prompt, custom := h.summarizer.PromptTemplate(r.Context())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prompt":      prompt,
		"custom":      custom,
		"placeholder": models.PageContentPlaceholder,
	})
}

// SetPromptHandler handles PUT /api/settings/prompt
func (h *SettingsHandler) SetPromptHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req promptRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := llm.ValidatePromptTemplate(req.Prompt); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.kvStorage.Set(r.Context(), models.SettingGeneralPrompt, req.Prompt, "Custom general summary prompt"); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save general prompt")
		WriteError(w, http.StatusInternalServerError, "Failed to save prompt")
		return
	}

	h.logger.Info().Int("length", len(req.Prompt)).Msg("General prompt updated")
	WriteSuccess(w, "Prompt saved")
}

// ResetPromptHandler handles DELETE /api/settings/prompt, restoring the default
func (h *SettingsHandler) ResetPromptHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	err := h.kvStorage.Delete(r.Context(), models.SettingGeneralPrompt)
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		h.logger.Error().Err(err).Msg("Failed to reset general prompt")
		WriteError(w, http.StatusInternalServerError, "Failed to reset prompt")
		return
	}

	WriteSuccess(w, "Prompt reset to default")
}

// GetAISettingsHandler handles GET /api/settings/ai. The API key is masked.
func (h *SettingsHandler) GetAISettingsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	cfg := h.providers.ResolveConfig(r.Context())
	configured := cfg.APIKey != "" && cfg.Model != ""
	if llm.ProviderType(cfg.Provider) == llm.ProviderOpenAI {
		configured = configured && cfg.BaseURL != ""
	}
	if llm.ProviderType(cfg.Provider) == llm.ProviderOffline {
		configured = true
	}

	cfg.APIKey = maskValue(cfg.APIKey)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"config":     cfg,
		"configured": configured,
	})
}

// SetAISettingsHandler handles PUT /api/settings/ai. Empty fields leave the
// stored value unchanged.
func (h *SettingsHandler) SetAISettingsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req aiSettingsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	provider, _ := llm.ParseProviderType(req.Provider)
	values := []struct {
		key, value, description string
	}{
		{models.SettingAIProvider, string(provider), "Active AI provider"},
		{models.SettingAIBaseURL, strings.TrimRight(strings.TrimSpace(req.BaseURL), "/"), "OpenAI-compatible base URL"},
		{models.SettingAIModel, strings.TrimSpace(req.Model), "AI model name"},
		{llm.APIKeySetting(provider), strings.TrimSpace(req.APIKey), "AI provider API key"},
	}

	for _, v := range values {
		if v.value == "" {
			continue
		}
		if err := h.kvStorage.Set(r.Context(), v.key, v.value, v.description); err != nil {
			h.logger.Error().Err(err).Str("key", v.key).Msg("Failed to save AI setting")
			WriteError(w, http.StatusInternalServerError, "Failed to save AI settings")
			return
		}
	}

	h.logger.Info().Str("provider", string(provider)).Msg("AI settings updated")
	WriteSuccess(w, "AI settings saved")
}
