package models

import (
	"time"

	"gorm.io/datatypes"
)

// MeetingStage is the processing state of one meeting job. Stages only move
// forward; Failed is reachable from any of them.
type MeetingStage string

const (
	StagePending      MeetingStage = "pending"
	StageCompressing  MeetingStage = "compressing"
	StageTranscribing MeetingStage = "transcribing"
	StageCorrecting   MeetingStage = "correcting"
	StageSummarizing  MeetingStage = "summarizing"
	StageCompleted    MeetingStage = "completed"
	StageFailed       MeetingStage = "failed"
)

func (s MeetingStage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Segment is one attributed span of speech. Speaker labels come straight from
// the transcription provider ("Speaker 0", ...); mapping them to real names is
// handled elsewhere.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// TranscriptionResult is the output of transcribing one audio file or the
// merged output of several chunks. Segments are ordered by ascending Start.
type TranscriptionResult struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

type Meeting struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TeamID    string `gorm:"column:team_id;type:uuid;index" json:"team_id"`
	CreatedBy string `gorm:"column:created_by;type:uuid" json:"created_by"`

	Title       string    `gorm:"column:title;type:text" json:"title"`
	MeetingDate time.Time `gorm:"column:meeting_date;type:timestamptz;index" json:"meeting_date"`

	AudioPath      string     `gorm:"column:audio_path;type:text" json:"audio_path"`
	AudioLanguage  string     `gorm:"column:audio_language;type:text" json:"audio_language"`
	AudioExpiresAt *time.Time `gorm:"column:audio_expires_at;type:timestamptz;index" json:"audio_expires_at,omitempty"`

	Transcript           string         `gorm:"column:transcript;type:text" json:"transcript"`
	SpeakerData          datatypes.JSON `gorm:"column:speaker_data;type:jsonb" json:"speaker_data"`
	CorrectedTranscript  string         `gorm:"column:corrected_transcript;type:text" json:"corrected_transcript"`
	CorrectedSpeakerData datatypes.JSON `gorm:"column:corrected_speaker_data;type:jsonb" json:"corrected_speaker_data"`
	Summary              string         `gorm:"column:summary;type:text" json:"summary"`

	Stage        MeetingStage `gorm:"column:stage;type:text;index" json:"stage"`
	ErrorMessage string       `gorm:"column:error_message;type:text" json:"error_message"`

	ConfluencePageID  string `gorm:"column:confluence_page_id;type:text" json:"confluence_page_id"`
	ConfluencePageURL string `gorm:"column:confluence_page_url;type:text" json:"confluence_page_url"`
	SlackMessageTS    string `gorm:"column:slack_message_ts;type:text" json:"slack_message_ts"`
	SlackChannel      string `gorm:"column:slack_channel;type:text" json:"slack_channel"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Meeting) TableName() string { return "meetings" }

// Segments decodes the raw speaker_data column. A decode failure is treated
// as an empty transcript rather than an error: the column is written by the
// pipeline and is either valid JSON or empty.
func (m *Meeting) Segments() []Segment {
	return decodeSegments(m.SpeakerData)
}

func (m *Meeting) CorrectedSegments() []Segment {
	return decodeSegments(m.CorrectedSpeakerData)
}
