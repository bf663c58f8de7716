package models

// Settings keys persisted in the key/value store.
const (
	SettingSessionActive = "session_active"
	SettingGeneralPrompt = "custom_general_prompt"
	SettingAIProvider    = "ai_provider"
	SettingAIBaseURL     = "ai_base_url"
	SettingAIModel       = "ai_model"
	SettingAIAPIKey      = "ai_api_key"
)

// PageContentPlaceholder marks where page text is injected into a prompt.
const PageContentPlaceholder = "{{PAGE_CONTENT}}"

// AIConfig is the runtime AI configuration editable from the API.
type AIConfig struct {
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
}

// PageCapture is what a producer submits for one visited page.
type PageCapture struct {
	URL     string `json:"url" validate:"required,url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	HTML    string `json:"html,omitempty"`
}
