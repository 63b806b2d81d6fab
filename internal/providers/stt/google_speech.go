package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

// GoogleSpeech is the alternate provider for deployments without an OpenAI
// key. Diarization comes from word-level speaker tags, folded into contiguous
// per-speaker segments to match the Segment shape.
type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_MP3,
		SampleRateHz: 16000,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) TranscribeAudio(ctx context.Context, path string, language string) (*models.TranscriptionResult, error) {
	if language == "" {
		language = "ko-KR"
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	var segments []models.Segment
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(alt.Transcript)
		segments = appendWordSegments(segments, alt.Words)
	}

	return &models.TranscriptionResult{Text: text.String(), Segments: segments}, nil
}

// appendWordSegments folds word tags into per-speaker spans: a new segment
// starts whenever the speaker changes, otherwise the current span extends.
func appendWordSegments(segments []models.Segment, words []*speechpb.WordInfo) []models.Segment {
	for _, w := range words {
		speaker := fmt.Sprintf("Speaker %d", w.SpeakerTag)
		start := w.StartTime.AsDuration().Seconds()
		end := w.EndTime.AsDuration().Seconds()

		if n := len(segments); n > 0 && segments[n-1].Speaker == speaker {
			segments[n-1].End = end
			segments[n-1].Text += " " + w.Word
			continue
		}
		segments = append(segments, models.Segment{
			Speaker: speaker,
			Start:   start,
			End:     end,
			Text:    w.Word,
		})
	}
	return segments
}
