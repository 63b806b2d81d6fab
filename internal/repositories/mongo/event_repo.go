package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

type EventRepository interface {
	Record(ctx context.Context, ev *models.PipelineEvent) error
	ListByMeeting(ctx context.Context, meetingID string, limit int64) ([]models.PipelineEvent, error)
}

type eventRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewEventRepo(db *mongo.Database, ttl time.Duration) EventRepository {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &eventRepo{col: db.Collection("pipeline_events"), ttl: ttl}
}

func (r *eventRepo) Record(ctx context.Context, ev *models.PipelineEvent) error {
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}
	if ev.ExpiresAt.IsZero() {
		ev.ExpiresAt = ev.RecordedAt.Add(r.ttl)
	}
	_, err := r.col.InsertOne(ctx, ev)
	return err
}

func (r *eventRepo) ListByMeeting(ctx context.Context, meetingID string, limit int64) ([]models.PipelineEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, bson.M{"meeting_id": meetingID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PipelineEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
