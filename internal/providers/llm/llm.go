package llm

import (
	"context"
	"errors"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

// ErrSegmentMismatch reports corrected output that cannot be lined up with
// the input segments. Callers discard the correction and keep the original.
var ErrSegmentMismatch = errors.New("corrected segment count does not match input")

// Provider covers the text post-processing capabilities of the pipeline.
// CorrectSegments must preserve speaker/start/end; only text may change.
type Provider interface {
	CorrectText(ctx context.Context, text string) (string, error)
	CorrectSegments(ctx context.Context, segments []models.Segment) ([]models.Segment, error)
	Summarize(ctx context.Context, text string) (string, error)
	Close() error
}
