package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/Youngdong2/ai-meeting-api/internal/services"
	"github.com/Youngdong2/ai-meeting-api/internal/utils"
	"github.com/Youngdong2/ai-meeting-api/internal/workers"
)

// ProgressHandler streams stage updates for a meeting over a websocket.
// Workers publish JSON to the meeting's status channel; this handler
// forwards the payloads as-is.
type ProgressHandler struct {
	meetings services.MeetingService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewProgressHandler(meetings services.MeetingService, rdb *redis.Client) *ProgressHandler {
	return &ProgressHandler{
		meetings: meetings,
		redis:    rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *ProgressHandler) MeetingProgress(c *gin.Context) {
	const op = "ProgressHandler.MeetingProgress"

	teamID, ok := requireTeamID(c)
	if !ok {
		return
	}

	meetingID := c.Param("meeting_id")
	if meetingID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing meeting_id", nil))
		return
	}

	m, err := h.meetings.Get(c.Request.Context(), meetingID)
	if err != nil {
		writeError(c, err)
		return
	}
	if m.TeamID != teamID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// current state first, so late subscribers are never blank
	snapshot, _ := json.Marshal(gin.H{
		"meeting_id": m.ID,
		"stage":      m.Stage,
		"message":    m.ErrorMessage,
	})
	if err := wc.writeText(snapshot); err != nil {
		return
	}

	pubsub := h.redis.Subscribe(ctx, workers.StatusChannel(meetingID))
	defer pubsub.Close()

	// reader: only to detect client close and keep pongs flowing
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	// Channel-based delivery so a client disconnect tears the handler down
	// immediately instead of waiting for the next stage update.
	updates := pubsub.Channel()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if werr := wc.writeText([]byte(msg.Payload)); werr != nil {
				return
			}
		}
	}
}
