package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI transcribes via audio/transcriptions with the diarizing model, so
// segments come back already attributed to "Speaker N" labels.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	hc      *http.Client
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		model:   "gpt-4o-transcribe-diarize",
		baseURL: defaultOpenAIBaseURL,
		hc:      &http.Client{Timeout: 30 * time.Minute},
	}
}

// NewOpenAIForTests points the client at a stub server.
func NewOpenAIForTests(apiKey, baseURL string) *OpenAI {
	c := NewOpenAI(apiKey)
	c.baseURL = baseURL
	return c
}

func (o *OpenAI) Close() error { return nil }

type openAISegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

type openAITranscription struct {
	Text     string          `json:"text"`
	Segments []openAISegment `json:"segments"`
}

func (o *OpenAI) TranscribeAudio(ctx context.Context, path string, language string) (*models.TranscriptionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	if language == "" {
		language = "ko"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"model":             o.model,
		"language":          language,
		"response_format":   "diarized_json",
		"chunking_strategy": "auto",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("openai transcription http %d: %s", resp.StatusCode, string(b))
	}

	var tr openAITranscription
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}

	out := &models.TranscriptionResult{Text: tr.Text, Segments: make([]models.Segment, 0, len(tr.Segments))}
	for _, seg := range tr.Segments {
		out.Segments = append(out.Segments, models.Segment{
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
		})
	}
	return out, nil
}
