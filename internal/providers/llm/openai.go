package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

const (
	correctorSystemPrompt = "당신은 한국어 텍스트 교정 전문가입니다."

	correctTextPrompt = `다음은 회의 음성을 텍스트로 변환한 내용입니다.
아래 기준으로 교정해주세요:

1. 맞춤법과 띄어쓰기 교정
2. STT 오인식으로 보이는 단어를 문맥에 맞게 수정
3. 불완전한 문장을 자연스럽게 보완
4. 화자 구분은 그대로 유지

원본의 의미와 화자 발언 순서를 변경하지 마세요.
교정된 텍스트만 출력하세요.

---
`

	correctSegmentsSystemPrompt = "당신은 한국어 텍스트 교정 전문가입니다. JSON 형식의 데이터를 받아 text 필드만 교정하여 동일한 JSON 형식으로 반환합니다."

	correctSegmentsPrompt = `다음은 회의 음성을 텍스트로 변환한 화자별 발언 데이터입니다.
각 발언의 text 필드만 아래 기준으로 교정하고, 동일한 JSON 형식으로 반환해주세요:

1. 맞춤법과 띄어쓰기 교정
2. STT 오인식으로 보이는 단어를 문맥에 맞게 수정
3. 불완전한 문장을 자연스럽게 보완
4. speaker, start, end 값은 절대 변경하지 마세요

원본의 의미와 화자 발언 순서를 변경하지 마세요.
반드시 유효한 JSON 배열만 출력하세요. 다른 설명은 포함하지 마세요.

---
입력:
`

	summarySystemPrompt = "당신은 회의록 요약 전문가입니다. 구조화된 마크다운 형식으로 요약을 작성합니다."

	summaryPrompt = `다음 회의 내용을 분석하여 아래 형식으로 요약해주세요:

## 회의 요약

### 참석자
- (화자 기반으로 추출)

### 주요 논의 사항
1. [주제]: 내용 요약
...

### 결정 사항
- [결정 내용]
...

### 액션 아이템
- [ ] [할 일] - 담당: [화자]
...

---
회의 내용:
`
)

// OpenAI implements correction and summarization over chat completions.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	hc      *http.Client
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		model:   "gpt-4o-mini",
		baseURL: defaultOpenAIBaseURL,
		hc:      &http.Client{Timeout: 5 * time.Minute},
	}
}

// NewOpenAIForTests points the client at a stub server.
func NewOpenAIForTests(apiKey, baseURL string) *OpenAI {
	c := NewOpenAI(apiKey)
	c.baseURL = baseURL
	return c
}

func (o *OpenAI) Close() error { return nil }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("openai chat http %d: %s", resp.StatusCode, string(b))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai chat returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (o *OpenAI) CorrectText(ctx context.Context, text string) (string, error) {
	corrected, err := o.complete(ctx, correctorSystemPrompt, correctTextPrompt+text, 0.3)
	if err != nil {
		return "", err
	}
	if corrected == "" {
		return text, nil
	}
	return corrected, nil
}

func (o *OpenAI) CorrectSegments(ctx context.Context, segments []models.Segment) ([]models.Segment, error) {
	if len(segments) == 0 {
		return segments, nil
	}

	input, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return nil, err
	}

	raw, err := o.complete(ctx, correctSegmentsSystemPrompt, correctSegmentsPrompt+string(input), 0.3)
	if err != nil {
		return nil, err
	}
	return parseCorrectedSegments(raw, segments)
}

func (o *OpenAI) Summarize(ctx context.Context, text string) (string, error) {
	return o.complete(ctx, summarySystemPrompt, summaryPrompt+text, 0.5)
}
