package models

import "time"

// Prompt source kinds for ModuleModel.UserPromptType.
const (
	PromptSourceCustom      = "custom"
	PromptSourcePageContent = "page_content"
	PromptSourcePageTitle   = "page_title"
	PromptSourcePageExcerpt = "page_excerpt"
)

// Output kinds for ModuleModel.Output.
const (
	OutputPlain = "plain"
	OutputHTML  = "html"
)

// Streaming override values for ModuleModel.StreamingOverride.
const (
	StreamingModelDefault = "model_default"
	StreamingEnabled      = "enabled"
	StreamingDisabled     = "disabled"
)

// ModuleModel is a reusable AI task configuration: a system prompt, a content
// source, a model reference and output/streaming/cache policy.
type ModuleModel struct {
	Base
	Title             string `json:"title"              gorm:"not null"`
	ModelRef          int64  `json:"model_ref"          gorm:"index"`
	System            string `json:"system"             gorm:"type:text"`
	User              string `json:"user"               gorm:"type:text"`
	UserPromptType    string `json:"user_prompt_type"   gorm:"default:custom"`
	Output            string `json:"output"             gorm:"default:plain"`
	MarkdownEnabled   bool   `json:"markdown_enabled"`
	Public            bool   `json:"public"             gorm:"index"`
	EditorAnalysis    bool   `json:"editor_analysis_enabled"`
	StreamingOverride string `json:"streaming_override" gorm:"default:model_default"`
	CacheTTL          int    `json:"cache_ttl"`
}

func (ModuleModel) TableName() string { return "ai_modules" }

// ModelModel is a registered upstream AI endpoint/credential configuration.
type ModelModel struct {
	Base
	Title     string `json:"title"     gorm:"not null"`
	ModelID   string `json:"model_id"`
	Endpoint  string `json:"endpoint"`
	APIKey    string `json:"-"         gorm:"column:api_key"`
	Active    bool   `json:"active"    gorm:"index"`
	Streaming bool   `json:"streaming"`
}

func (ModelModel) TableName() string { return "ai_models" }

// APIKeyModel authorizes public machine access to public modules.
type APIKeyModel struct {
	Base
	Title       string     `json:"title"`
	Key         string     `json:"key"        gorm:"uniqueIndex;not null"`
	Active      bool       `json:"active"     gorm:"index"`
	Description string     `json:"description"`
	LastUsed    *time.Time `json:"last_used"`
}

func (APIKeyModel) TableName() string { return "api_keys" }
