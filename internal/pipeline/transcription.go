package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Youngdong2/ai-meeting-api/internal/media"
	"github.com/Youngdong2/ai-meeting-api/internal/models"
	"github.com/Youngdong2/ai-meeting-api/internal/providers/stt"
)

// DefaultMaxChunkSeconds keeps chunks comfortably under the provider's
// ~25 minute per-call input cap.
const DefaultMaxChunkSeconds = 20 * 60

// Transcriber decides whether an audio file needs splitting, transcribes it
// chunk by chunk, and reassembles the results on the recording's timeline.
type Transcriber struct {
	Prober          *media.Prober
	Splitter        *media.Splitter
	MaxChunkSeconds int
	Log             *logrus.Logger
}

func NewTranscriber(log *logrus.Logger) *Transcriber {
	return &Transcriber{
		Prober:          media.NewProber(log),
		Splitter:        media.NewSplitter(log),
		MaxChunkSeconds: DefaultMaxChunkSeconds,
		Log:             log,
	}
}

// Transcribe runs the chunked transcription policy. A zero probed duration
// means "unknown" and routes into the single-call path. Chunk files are
// always removed before returning, success or not.
func (t *Transcriber) Transcribe(ctx context.Context, provider stt.Provider, path, language string) (*models.TranscriptionResult, error) {
	maxChunk := t.MaxChunkSeconds
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunkSeconds
	}

	duration := t.Prober.Probe(ctx, path)
	if duration <= float64(maxChunk) {
		t.Log.WithField("path", path).Info("audio is short enough, transcribing as single file")
		return provider.TranscribeAudio(ctx, path, language)
	}

	t.Log.WithFields(logrus.Fields{
		"path":    path,
		"minutes": duration / 60,
	}).Info("audio exceeds chunk threshold, splitting")

	split := t.Splitter.Split(ctx, path, maxChunk)
	defer split.Cleanup()

	if split.Single() {
		return provider.TranscribeAudio(ctx, path, language)
	}

	merged := &models.TranscriptionResult{}
	timeOffset := 0.0

	for i, chunkPath := range split.Paths {
		t.Log.WithFields(logrus.Fields{
			"chunk": i + 1,
			"total": len(split.Paths),
		}).Info("transcribing chunk")

		result, err := provider.TranscribeAudio(ctx, chunkPath, language)
		if err != nil {
			return nil, err
		}

		if merged.Text != "" && result.Text != "" {
			merged.Text += " "
		}
		merged.Text += result.Text

		for _, seg := range result.Segments {
			merged.Segments = append(merged.Segments, models.Segment{
				Speaker: seg.Speaker,
				Start:   seg.Start + timeOffset,
				End:     seg.End + timeOffset,
				Text:    seg.Text,
			})
		}

		// The chunk's own measured duration, not the split parameter: the
		// final chunk is almost always shorter.
		timeOffset += t.Prober.Probe(ctx, chunkPath)
	}

	t.Log.WithFields(logrus.Fields{
		"chunks":   len(split.Paths),
		"chars":    len(merged.Text),
		"segments": len(merged.Segments),
	}).Info("merged chunk transcriptions")

	return merged, nil
}
