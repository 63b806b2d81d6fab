package models

import (
	"time"

	"github.com/lib/pq"
)

type Team struct {
	ID   string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name string `gorm:"column:name;type:text" json:"name"`

	Setting *TeamSetting `gorm:"foreignKey:TeamID" json:"setting,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Team) TableName() string { return "teams" }

// TeamSetting holds per-team credentials for the AI providers and the
// publishing integrations. The pipeline never reads these directly; the
// orchestrating layer resolves them and passes values in.
type TeamSetting struct {
	TeamID string `gorm:"column:team_id;type:uuid;primaryKey" json:"team_id"`

	OpenAIAPIKey string `gorm:"column:openai_api_key;type:text" json:"-"`

	// Preferred language hints for transcription, first match wins.
	LanguageHints pq.StringArray `gorm:"column:language_hints;type:text[]" json:"language_hints"`

	ConfluenceSiteURL      string `gorm:"column:confluence_site_url;type:text" json:"confluence_site_url"`
	ConfluenceUserEmail    string `gorm:"column:confluence_user_email;type:text" json:"confluence_user_email"`
	ConfluenceAPIToken     string `gorm:"column:confluence_api_token;type:text" json:"-"`
	ConfluenceSpaceKey     string `gorm:"column:confluence_space_key;type:text" json:"confluence_space_key"`
	ConfluenceParentPageID string `gorm:"column:confluence_parent_page_id;type:text" json:"confluence_parent_page_id"`

	SlackWebhookURL     string `gorm:"column:slack_webhook_url;type:text" json:"-"`
	SlackBotToken       string `gorm:"column:slack_bot_token;type:text" json:"-"`
	SlackDefaultChannel string `gorm:"column:slack_default_channel;type:text" json:"slack_default_channel"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (TeamSetting) TableName() string { return "team_settings" }

func (s *TeamSetting) ConfluenceConfigured() bool {
	return s != nil &&
		s.ConfluenceSiteURL != "" &&
		s.ConfluenceAPIToken != "" &&
		s.ConfluenceUserEmail != "" &&
		s.ConfluenceSpaceKey != ""
}

func (s *TeamSetting) SlackConfigured() bool {
	return s != nil && (s.SlackWebhookURL != "" || s.SlackBotToken != "")
}
