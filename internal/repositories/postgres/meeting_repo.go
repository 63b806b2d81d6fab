package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
	"github.com/Youngdong2/ai-meeting-api/internal/utils"
)

type MeetingRepo interface {
	Insert(ctx context.Context, m *models.Meeting) error
	GetByID(ctx context.Context, id string) (*models.Meeting, error)
	ListByTeam(ctx context.Context, teamID string, limit int) ([]models.Meeting, error)
	ListExpiredAudio(ctx context.Context, now time.Time, limit int) ([]models.Meeting, error)
	ClearAudio(ctx context.Context, id string) error
	SetPublication(ctx context.Context, id, pageID, pageURL string) error
	SetSlackShare(ctx context.Context, id, channel, messageTS string) error

	// Pipeline persistence (pipeline.JobStore)
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	SetStage(ctx context.Context, id string, stage models.MeetingStage) error
	SaveTranscript(ctx context.Context, id string, text string, segments []models.Segment) error
	SaveCorrection(ctx context.Context, id string, text string, segments []models.Segment) error
	SaveSummary(ctx context.Context, id string, summary string) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, message string) error
}

type meetingRepo struct {
	db *gorm.DB
}

func NewMeetingRepo(db *gorm.DB) MeetingRepo {
	return &meetingRepo{db: db}
}

func (r *meetingRepo) Insert(ctx context.Context, m *models.Meeting) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *meetingRepo) GetByID(ctx context.Context, id string) (*models.Meeting, error) {
	var row models.Meeting
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *meetingRepo) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	return r.GetByID(ctx, id)
}

func (r *meetingRepo) ListByTeam(ctx context.Context, teamID string, limit int) ([]models.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Meeting
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("meeting_date DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *meetingRepo) ListExpiredAudio(ctx context.Context, now time.Time, limit int) ([]models.Meeting, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Meeting
	err := r.db.WithContext(ctx).
		Where("audio_expires_at <= ? AND audio_path <> ''", now).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *meetingRepo) ClearAudio(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{
		"audio_path":       "",
		"audio_expires_at": nil,
	})
}

func (r *meetingRepo) SetPublication(ctx context.Context, id, pageID, pageURL string) error {
	return r.update(ctx, id, map[string]any{
		"confluence_page_id":  pageID,
		"confluence_page_url": pageURL,
	})
}

func (r *meetingRepo) SetSlackShare(ctx context.Context, id, channel, messageTS string) error {
	return r.update(ctx, id, map[string]any{
		"slack_channel":    channel,
		"slack_message_ts": messageTS,
	})
}

func (r *meetingRepo) SetStage(ctx context.Context, id string, stage models.MeetingStage) error {
	return r.update(ctx, id, map[string]any{"stage": stage})
}

func (r *meetingRepo) SaveTranscript(ctx context.Context, id string, text string, segments []models.Segment) error {
	return r.update(ctx, id, map[string]any{
		"transcript":   text,
		"speaker_data": models.EncodeSegments(segments),
	})
}

func (r *meetingRepo) SaveCorrection(ctx context.Context, id string, text string, segments []models.Segment) error {
	return r.update(ctx, id, map[string]any{
		"corrected_transcript":   text,
		"corrected_speaker_data": models.EncodeSegments(segments),
	})
}

func (r *meetingRepo) SaveSummary(ctx context.Context, id string, summary string) error {
	return r.update(ctx, id, map[string]any{"summary": summary})
}

func (r *meetingRepo) Complete(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{
		"stage":         models.StageCompleted,
		"error_message": "",
	})
}

func (r *meetingRepo) Fail(ctx context.Context, id string, message string) error {
	return r.update(ctx, id, map[string]any{
		"stage":         models.StageFailed,
		"error_message": message,
	})
}

func (r *meetingRepo) update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
