package slack

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

const slackAPIURL = "https://slack.com/api"

// Client posts messages either through an incoming webhook or the bot API,
// whichever the team configured. Bot token wins when both are set.
type Client struct {
	webhookURL string
	botToken   string
	apiURL     string
	hc         *http.Client
}

func NewClient(webhookURL, botToken string) *Client {
	return &Client{
		webhookURL: webhookURL,
		botToken:   botToken,
		apiURL:     slackAPIURL,
		hc:         &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientForTests points the client at stub endpoints.
func NewClientForTests(webhookURL, botToken, apiURL string) *Client {
	c := NewClient(webhookURL, botToken)
	c.apiURL = apiURL
	return c
}

func (c *Client) UsesBot() bool { return c.botToken != "" }

// ShareResult reports where the message landed. TS is only set for bot sends.
type ShareResult struct {
	Channel string
	TS      string
}

// SendWebhook posts the message to the configured incoming webhook.
func (c *Client) SendWebhook(ctx context.Context, message map[string]any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("slack webhook http %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// SendBotMessage posts via chat.postMessage and returns the message location.
func (c *Client) SendBotMessage(ctx context.Context, channel string, message map[string]any) (*ShareResult, error) {
	body := map[string]any{"channel": channel}
	for k, v := range message {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		OK      bool   `json:"ok"`
		Error   string `json:"error"`
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("slack api error: %s", out.Error)
	}
	return &ShareResult{Channel: out.Channel, TS: out.TS}, nil
}

// FormatMeetingMessage builds the Block Kit summary message.
func FormatMeetingMessage(m *models.Meeting, author, appURL string) map[string]any {
	summary := m.Summary
	if summary == "" {
		summary = "요약 없음"
	}
	if len([]rune(summary)) > 2500 {
		summary = string([]rune(summary)[:2500]) + "\n\n... (이하 생략)"
	}
	if author == "" {
		author = "Unknown"
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type":  "plain_text",
				"text":  "📋 " + m.Title,
				"emoji": true,
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": "*회의 일시:*\n" + m.MeetingDate.Format("2006-01-02 15:04")},
				{"type": "mrkdwn", "text": "*작성자:*\n" + author},
			},
		},
		{"type": "divider"},
		{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": summary},
		},
	}

	if appURL != "" {
		blocks = append(blocks,
			map[string]any{"type": "divider"},
			map[string]any{
				"type": "actions",
				"elements": []map[string]any{
					{
						"type":      "button",
						"text":      map[string]any{"type": "plain_text", "text": "📄 전문 보기", "emoji": true},
						"url":       fmt.Sprintf("%s/meetings/%s", appURL, m.ID),
						"action_id": "view_full_meeting",
					},
				},
			},
		)
	}

	return map[string]any{"blocks": blocks}
}
