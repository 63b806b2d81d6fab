package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PipelineEvent is one stage transition of one processing run, kept in Mongo
// as an inspection trail. Documents expire via TTL index on expires_at.
type PipelineEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MeetingID string             `bson:"meeting_id" json:"meeting_id"`
	Attempt   int                `bson:"attempt" json:"attempt"`

	Stage   MeetingStage `bson:"stage" json:"stage"`
	Message string       `bson:"message,omitempty" json:"message,omitempty"`

	RecordedAt time.Time `bson:"recorded_at" json:"recorded_at"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
}
