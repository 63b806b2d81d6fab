package llm

import (
	"context"
	"encoding/json"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

// VertexGemini is the alternate corrector/summarizer for deployments on
// Google Cloud credentials instead of a team OpenAI key.
type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

// generate streams one completion and collects it into a string; the pipeline
// consumes whole responses, not token streams.
func (v *VertexGemini) generate(ctx context.Context, prompt string) (string, error) {
	var sb strings.Builder

	it := v.model.GenerateContentStream(ctx, vertexgenai.Text(prompt))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					sb.WriteString(string(t))
				}
			}
		}
	}
}

func (v *VertexGemini) CorrectText(ctx context.Context, text string) (string, error) {
	corrected, err := v.generate(ctx, correctTextPrompt+text)
	if err != nil {
		return "", err
	}
	if corrected == "" {
		return text, nil
	}
	return corrected, nil
}

func (v *VertexGemini) CorrectSegments(ctx context.Context, segments []models.Segment) ([]models.Segment, error) {
	if len(segments) == 0 {
		return segments, nil
	}

	input, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return nil, err
	}

	raw, err := v.generate(ctx, correctSegmentsPrompt+string(input))
	if err != nil {
		return nil, err
	}
	return parseCorrectedSegments(raw, segments)
}

func (v *VertexGemini) Summarize(ctx context.Context, text string) (string, error) {
	return v.generate(ctx, summaryPrompt+text)
}
