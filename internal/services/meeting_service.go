package services

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Youngdong2/ai-meeting-api/internal/cache"
	"github.com/Youngdong2/ai-meeting-api/internal/models"
	mongorepo "github.com/Youngdong2/ai-meeting-api/internal/repositories/mongo"
	"github.com/Youngdong2/ai-meeting-api/internal/repositories/postgres"
	"github.com/Youngdong2/ai-meeting-api/internal/storage"
	"github.com/Youngdong2/ai-meeting-api/internal/utils"
)

// audioRetention is how long uploaded audio is kept before the sweep
// removes it. Independent of the pipeline event TTL.
const audioRetention = 90 * 24 * time.Hour

const stageCacheTTL = 3 * time.Second

// JobQueue enqueues background work for a meeting. Implemented by the
// redis-stream worker pool.
type JobQueue interface {
	Submit(ctx context.Context, meetingID string) error
	SubmitRegenerateSummary(ctx context.Context, meetingID string) error
	SubmitPublishConfluence(ctx context.Context, meetingID string) error
	SubmitShareSlack(ctx context.Context, meetingID, channel string) error
}

type CreateMeetingInput struct {
	TeamID      string
	CreatedBy   string
	Title       string
	MeetingDate time.Time

	AudioName        string
	AudioContentType string
	AudioLanguage    string
	Audio            io.Reader
}

type StageStatus struct {
	MeetingID    string              `json:"meeting_id"`
	Stage        models.MeetingStage `json:"stage"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

type MeetingService interface {
	Create(ctx context.Context, in CreateMeetingInput) (*models.Meeting, error)
	Get(ctx context.Context, id string) (*models.Meeting, error)
	List(ctx context.Context, teamID string, limit int) ([]models.Meeting, error)
	GetStage(ctx context.Context, id string) (*StageStatus, error)
	Events(ctx context.Context, id string, limit int64) ([]models.PipelineEvent, error)
	RegenerateSummary(ctx context.Context, id string) error
	PublishConfluence(ctx context.Context, id string) error
	ShareSlack(ctx context.Context, id, channel string) error
}

type meetingService struct {
	meetings postgres.MeetingRepo
	events   mongorepo.EventRepository
	store    storage.Store
	queue    JobQueue
	cache    cache.Cache
}

func NewMeetingService(meetings postgres.MeetingRepo, events mongorepo.EventRepository, store storage.Store, queue JobQueue, c cache.Cache) MeetingService {
	return &meetingService{meetings: meetings, events: events, store: store, queue: queue, cache: c}
}

// Create stores the uploaded audio, inserts the meeting record in Pending,
// and enqueues the processing job. The job runs asynchronously; callers poll
// GetStage or subscribe to the progress channel.
func (s *meetingService) Create(ctx context.Context, in CreateMeetingInput) (*models.Meeting, error) {
	const op = "MeetingService.Create"

	if in.TeamID == "" || in.Title == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "team_id and title are required", nil)
	}
	if in.Audio == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio file is required", nil)
	}

	// The object is keyed by the meeting ID, not the upload filename, so two
	// uploads named meeting.mp3 never share a path.
	id := uuid.NewString()
	storedPath, err := s.store.Save(ctx, storedAudioName(id, in.AudioName), in.AudioContentType, in.Audio)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store audio", err)
	}

	now := time.Now().UTC()
	expires := now.Add(audioRetention)
	meetingDate := in.MeetingDate
	if meetingDate.IsZero() {
		meetingDate = now
	}

	m := &models.Meeting{
		ID:             id,
		TeamID:         in.TeamID,
		CreatedBy:      in.CreatedBy,
		Title:          in.Title,
		MeetingDate:    meetingDate,
		AudioPath:      storedPath,
		AudioLanguage:  in.AudioLanguage,
		AudioExpiresAt: &expires,
		Stage:          models.StagePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.meetings.Insert(ctx, m); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create meeting", err)
	}

	if err := s.queue.Submit(ctx, m.ID); err != nil {
		// The record exists; the job can be resubmitted. Surface the error
		// so the caller knows processing has not started.
		return m, utils.E(utils.CodeUnavailable, op, "failed to enqueue processing job", err)
	}
	return m, nil
}

// storedAudioName keeps the upload's extension for the media tools but keys
// the object by the meeting ID.
func storedAudioName(meetingID, uploadName string) string {
	return meetingID + filepath.Ext(filepath.Base(uploadName))
}

func (s *meetingService) Get(ctx context.Context, id string) (*models.Meeting, error) {
	const op = "MeetingService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "meeting id is required", nil)
	}
	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "meeting not found", err)
	}
	return m, nil
}

func (s *meetingService) List(ctx context.Context, teamID string, limit int) ([]models.Meeting, error) {
	const op = "MeetingService.List"

	if teamID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "team_id is required", nil)
	}
	out, err := s.meetings.ListByTeam(ctx, teamID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list meetings", err)
	}
	return out, nil
}

// GetStage is the polling endpoint behind the progress UI, so reads go
// through a short-lived cache.
func (s *meetingService) GetStage(ctx context.Context, id string) (*StageStatus, error) {
	const op = "MeetingService.GetStage"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "meeting id is required", nil)
	}

	key := "meeting:" + id + ":stage"
	if s.cache != nil {
		var cached StageStatus
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "meeting not found", err)
	}
	status := &StageStatus{MeetingID: m.ID, Stage: m.Stage, ErrorMessage: m.ErrorMessage}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, status, stageCacheTTL)
	}
	return status, nil
}

func (s *meetingService) Events(ctx context.Context, id string, limit int64) ([]models.PipelineEvent, error) {
	const op = "MeetingService.Events"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "meeting id is required", nil)
	}
	out, err := s.events.ListByMeeting(ctx, id, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list pipeline events", err)
	}
	return out, nil
}

// RegenerateSummary re-runs only the summarization stage over the stored
// transcript. The meeting must have finished processing at least once.
func (s *meetingService) RegenerateSummary(ctx context.Context, id string) error {
	const op = "MeetingService.RegenerateSummary"

	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !m.Stage.Terminal() {
		return utils.E(utils.CodeConflict, op, "meeting is still being processed", nil)
	}
	if err := s.queue.SubmitRegenerateSummary(ctx, m.ID); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to enqueue summary job", err)
	}
	return nil
}

func (s *meetingService) PublishConfluence(ctx context.Context, id string) error {
	const op = "MeetingService.PublishConfluence"

	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.Stage != models.StageCompleted {
		return utils.E(utils.CodeConflict, op, "meeting has not completed processing", nil)
	}
	if err := s.queue.SubmitPublishConfluence(ctx, m.ID); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to enqueue publish job", err)
	}
	return nil
}

func (s *meetingService) ShareSlack(ctx context.Context, id, channel string) error {
	const op = "MeetingService.ShareSlack"

	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.Stage != models.StageCompleted {
		return utils.E(utils.CodeConflict, op, "meeting has not completed processing", nil)
	}
	if err := s.queue.SubmitShareSlack(ctx, m.ID, channel); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to enqueue slack job", err)
	}
	return nil
}
