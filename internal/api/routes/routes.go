package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Youngdong2/ai-meeting-api/internal/api/handlers"
	"github.com/Youngdong2/ai-meeting-api/internal/api/middleware"
)

type Deps struct {
	Meeting  *handlers.MeetingHandler
	Progress *handlers.ProgressHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/meetings", d.Meeting.Create)
	auth.GET("/meetings", d.Meeting.List)
	auth.GET("/meetings/:meeting_id", d.Meeting.Get)
	auth.GET("/meetings/:meeting_id/stage", d.Meeting.GetStage)
	auth.GET("/meetings/:meeting_id/events", d.Meeting.Events)
	auth.POST("/meetings/:meeting_id/summary/regenerate", d.Meeting.RegenerateSummary)
	auth.POST("/meetings/:meeting_id/publish/confluence", d.Meeting.PublishConfluence)
	auth.POST("/meetings/:meeting_id/share/slack", d.Meeting.ShareSlack)

	// WebSocket
	auth.GET("/ws/meetings/:meeting_id/progress", d.Progress.MeetingProgress)
}
