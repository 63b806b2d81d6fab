package stt

import (
	"context"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

// Provider turns one audio file into a diarized transcript. Implementations
// have their own maximum input duration; callers pre-chunk above it.
type Provider interface {
	TranscribeAudio(ctx context.Context, path string, language string) (*models.TranscriptionResult, error)
	Close() error
}
