package workers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
	mongorepo "github.com/Youngdong2/ai-meeting-api/internal/repositories/mongo"
)

// StatusNotifier fans stage transitions out to live subscribers (redis
// pub/sub, consumed by the websocket handler) and records them as durable
// pipeline events in mongo. Delivery is best-effort; the pipeline never
// blocks on a listener.
type StatusNotifier struct {
	Redis  *redis.Client
	Events mongorepo.EventRepository
	Logger *logrus.Logger
}

type stageUpdate struct {
	MeetingID string `json:"meeting_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message,omitempty"`
	Attempt   int    `json:"attempt"`
	At        string `json:"at"`
}

func (n *StatusNotifier) StageChanged(ctx context.Context, meetingID string, attempt int, stage models.MeetingStage, message string) {
	now := time.Now().UTC()

	if n.Events != nil {
		ev := &models.PipelineEvent{
			MeetingID:  meetingID,
			Attempt:    attempt,
			Stage:      stage,
			Message:    message,
			RecordedAt: now,
		}
		if err := n.Events.Record(ctx, ev); err != nil && n.Logger != nil {
			n.Logger.WithError(err).WithField("meeting_id", meetingID).Warn("failed to record pipeline event")
		}
	}

	if n.Redis == nil {
		return
	}
	payload, err := json.Marshal(stageUpdate{
		MeetingID: meetingID,
		Stage:     string(stage),
		Message:   message,
		Attempt:   attempt,
		At:        now.Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := n.Redis.Publish(ctx, StatusChannel(meetingID), payload).Err(); err != nil && n.Logger != nil {
		n.Logger.WithError(err).WithField("meeting_id", meetingID).Warn("failed to publish stage update")
	}
}

// StatusChannel is the pub/sub channel carrying stage updates for a meeting.
func StatusChannel(meetingID string) string {
	return "meeting:" + meetingID + ":status"
}
