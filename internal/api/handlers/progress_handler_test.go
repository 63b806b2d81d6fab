package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
	"github.com/Youngdong2/ai-meeting-api/internal/services"
)

type stubMeetings struct {
	m *models.Meeting
}

func (s stubMeetings) Create(ctx context.Context, in services.CreateMeetingInput) (*models.Meeting, error) {
	return nil, nil
}
func (s stubMeetings) Get(ctx context.Context, id string) (*models.Meeting, error) { return s.m, nil }
func (s stubMeetings) List(ctx context.Context, teamID string, limit int) ([]models.Meeting, error) {
	return nil, nil
}
func (s stubMeetings) GetStage(ctx context.Context, id string) (*services.StageStatus, error) {
	return nil, nil
}
func (s stubMeetings) Events(ctx context.Context, id string, limit int64) ([]models.PipelineEvent, error) {
	return nil, nil
}
func (s stubMeetings) RegenerateSummary(ctx context.Context, id string) error { return nil }
func (s stubMeetings) PublishConfluence(ctx context.Context, id string) error { return nil }
func (s stubMeetings) ShareSlack(ctx context.Context, id, channel string) error { return nil }

func TestMeetingProgressStopsOnClientDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// no redis server behind this client: the status channel never delivers,
	// so only the disconnect can end the handler
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	h := NewProgressHandler(stubMeetings{m: &models.Meeting{
		ID:     "m1",
		TeamID: "t1",
		Stage:  models.StageTranscribing,
	}}, rdb)

	done := make(chan struct{})
	r := gin.New()
	r.GET("/ws/meetings/:meeting_id/progress", func(c *gin.Context) {
		c.Set("user_id", "u1")
		c.Set("team_id", "t1")
		h.MeetingProgress(c)
		close(done)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/meetings/m1/progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var snap struct {
		MeetingID string `json:"meeting_id"`
		Stage     string `json:"stage"`
	}
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("snapshot read: %v", err)
	}
	if snap.MeetingID != "m1" || snap.Stage != string(models.StageTranscribing) {
		t.Fatalf("snapshot = %+v", snap)
	}

	conn.Close()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handler kept running after the client disconnected")
	}
}
