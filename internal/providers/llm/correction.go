package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

// parseCorrectedSegments validates a model reply against the input segments.
// Markdown code fences are tolerated; a count mismatch or unparseable body is
// an error the caller degrades on. Speaker labels and time bounds are restored
// from the originals regardless of what the model returned.
func parseCorrectedSegments(raw string, originals []models.Segment) ([]models.Segment, error) {
	body := stripCodeFence(raw)

	var corrected []models.Segment
	if err := json.Unmarshal([]byte(body), &corrected); err != nil {
		return nil, fmt.Errorf("parse corrected segments: %w", err)
	}
	if len(corrected) != len(originals) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSegmentMismatch, len(corrected), len(originals))
	}

	for i := range corrected {
		corrected[i].Speaker = originals[i].Speaker
		corrected[i].Start = originals[i].Start
		corrected[i].End = originals[i].End
	}
	return corrected, nil
}

// stripCodeFence drops a surrounding ```json ... ``` block when present.
func stripCodeFence(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}

	lines := strings.Split(body, "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
