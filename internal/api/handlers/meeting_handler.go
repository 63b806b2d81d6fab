package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Youngdong2/ai-meeting-api/internal/services"
	"github.com/Youngdong2/ai-meeting-api/internal/utils"
)

type MeetingHandler struct {
	svc services.MeetingService
}

func NewMeetingHandler(svc services.MeetingService) *MeetingHandler {
	return &MeetingHandler{svc: svc}
}

type CreateMeetingResponse struct {
	MeetingID string `json:"meeting_id"`
	Stage     string `json:"stage"`
	CreatedAt string `json:"created_at"`
}

// Create accepts a multipart upload (title, meeting_date, language, audio)
// and starts asynchronous processing.
func (h *MeetingHandler) Create(c *gin.Context) {
	const op = "MeetingHandler.Create"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	teamID, ok := requireTeamID(c)
	if !ok {
		return
	}

	title := c.PostForm("title")
	if title == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "title is required", nil))
		return
	}

	var meetingDate time.Time
	if raw := c.PostForm("meeting_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "meeting_date must be RFC3339", err))
			return
		}
		meetingDate = parsed
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio file is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read audio upload", err))
		return
	}
	defer f.Close()

	m, err := h.svc.Create(c.Request.Context(), services.CreateMeetingInput{
		TeamID:           teamID,
		CreatedBy:        userID,
		Title:            title,
		MeetingDate:      meetingDate,
		AudioName:        fh.Filename,
		AudioContentType: fh.Header.Get("Content-Type"),
		AudioLanguage:    c.PostForm("language"),
		Audio:            f,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, CreateMeetingResponse{
		MeetingID: m.ID,
		Stage:     string(m.Stage),
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	})
}

func (h *MeetingHandler) Get(c *gin.Context) {
	teamID, ok := requireTeamID(c)
	if !ok {
		return
	}

	m, err := h.svc.Get(c.Request.Context(), c.Param("meeting_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if m.TeamID != teamID {
		writeError(c, utils.E(utils.CodeForbidden, "MeetingHandler.Get", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, m)
}

func (h *MeetingHandler) List(c *gin.Context) {
	teamID, ok := requireTeamID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	meetings, err := h.svc.List(c.Request.Context(), teamID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

func (h *MeetingHandler) GetStage(c *gin.Context) {
	if _, ok := requireTeamID(c); !ok {
		return
	}

	status, err := h.svc.GetStage(c.Request.Context(), c.Param("meeting_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *MeetingHandler) Events(c *gin.Context) {
	teamID, ok := requireTeamID(c)
	if !ok {
		return
	}

	meetingID := c.Param("meeting_id")
	m, err := h.svc.Get(c.Request.Context(), meetingID)
	if err != nil {
		writeError(c, err)
		return
	}
	if m.TeamID != teamID {
		writeError(c, utils.E(utils.CodeForbidden, "MeetingHandler.Events", "forbidden", nil))
		return
	}

	var limit int64
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.ParseInt(raw, 10, 64)
	}

	events, err := h.svc.Events(c.Request.Context(), meetingID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *MeetingHandler) RegenerateSummary(c *gin.Context) {
	m, ok := h.authorize(c, "MeetingHandler.RegenerateSummary")
	if !ok {
		return
	}

	if err := h.svc.RegenerateSummary(c.Request.Context(), m); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"meeting_id": m, "status": "queued"})
}

func (h *MeetingHandler) PublishConfluence(c *gin.Context) {
	m, ok := h.authorize(c, "MeetingHandler.PublishConfluence")
	if !ok {
		return
	}

	if err := h.svc.PublishConfluence(c.Request.Context(), m); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"meeting_id": m, "status": "queued"})
}

type ShareSlackRequest struct {
	Channel string `json:"channel"`
}

func (h *MeetingHandler) ShareSlack(c *gin.Context) {
	m, ok := h.authorize(c, "MeetingHandler.ShareSlack")
	if !ok {
		return
	}

	var req ShareSlackRequest
	_ = c.ShouldBindJSON(&req) // channel is optional

	if err := h.svc.ShareSlack(c.Request.Context(), m, req.Channel); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"meeting_id": m, "status": "queued"})
}

// authorize loads the meeting and checks team ownership, returning its id.
func (h *MeetingHandler) authorize(c *gin.Context, op string) (string, bool) {
	teamID, ok := requireTeamID(c)
	if !ok {
		return "", false
	}

	meetingID := c.Param("meeting_id")
	m, err := h.svc.Get(c.Request.Context(), meetingID)
	if err != nil {
		writeError(c, err)
		return "", false
	}
	if m.TeamID != teamID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return "", false
	}
	return m.ID, true
}
