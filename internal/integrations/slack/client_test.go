package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
)

func TestFormatMeetingMessage(t *testing.T) {
	m := &models.Meeting{
		ID:          "m1",
		Title:       "주간 회의",
		MeetingDate: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		Summary:     "결정 사항 정리",
	}

	msg := FormatMeetingMessage(m, "플랫폼팀", "https://app.example.com")
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)

	for _, want := range []string{
		"주간 회의",
		"결정 사항 정리",
		"플랫폼팀",
		"2026-01-15 10:00",
		"https://app.example.com/meetings/m1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("message missing %q:\n%s", want, body)
		}
	}
}

func TestFormatMeetingMessageTruncatesLongSummary(t *testing.T) {
	m := &models.Meeting{
		Title:       "긴 회의",
		MeetingDate: time.Now(),
		Summary:     strings.Repeat("가", 3000),
	}

	raw, _ := json.Marshal(FormatMeetingMessage(m, "", ""))
	body := string(raw)
	if !strings.Contains(body, "... (이하 생략)") {
		t.Fatalf("long summary not truncated")
	}
	if strings.Contains(body, strings.Repeat("가", 2501)) {
		t.Fatalf("summary exceeds the truncation limit")
	}
	// no app URL, so no button block
	if strings.Contains(body, "view_full_meeting") {
		t.Fatalf("unexpected action button without app URL")
	}
}

func TestSendBotMessage(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	c := NewClientForTests("", "xoxb-test", srv.URL)
	res, err := c.SendBotMessage(context.Background(), "#meetings", map[string]any{"blocks": []any{}})
	if err != nil {
		t.Fatalf("SendBotMessage() error = %v", err)
	}
	if gotAuth != "Bearer xoxb-test" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody["channel"] != "#meetings" {
		t.Fatalf("channel = %v", gotBody["channel"])
	}
	if res.Channel != "C123" || res.TS != "1700000000.000100" {
		t.Fatalf("result = %+v", res)
	}
}

func TestSendBotMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	c := NewClientForTests("", "xoxb-test", srv.URL)
	_, err := c.SendBotMessage(context.Background(), "#nope", map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("error = %v, want the slack error code", err)
	}
}

func TestSendWebhook(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if c.UsesBot() {
		t.Fatalf("webhook-only client reports bot usage")
	}
	if err := c.SendWebhook(context.Background(), map[string]any{"text": "x"}); err != nil {
		t.Fatalf("SendWebhook() error = %v", err)
	}
	if !hit {
		t.Fatalf("webhook endpoint not called")
	}
}
