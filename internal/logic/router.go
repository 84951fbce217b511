package logic

import (
	"github.com/gin-gonic/gin"

	"github.com/ElaineQian09/eggtart-backend/internal/pipeline"
)

// SetupRouter wires all routes. The pipeline is constructed once per
// process and injected here.
func SetupRouter(p *pipeline.Pipeline) *gin.Engine {
	r := gin.Default()
	api := &API{Pipe: p}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "Egg Backend"})
	})
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/v1/auth/anonymous", AnonymousLoginHandler)
	r.POST("/v1/devices", RegisterDeviceHandler)
	r.POST("/v1/memory", SaveMemoryHandler)

	r.POST("/v1/events", api.CreateEventHandler)
	r.PATCH("/v1/events/:event_id", api.UpdateEventHandler)
	r.GET("/v1/events/:event_id", api.GetEventHandler)
	r.GET("/v1/events/:event_id/status", api.GetEventStatusHandler)
	r.GET("/v1/debug/events/:event_id/ai-state", api.DebugEventAIStateHandler)
	r.GET("/v1/debug/events/:event_id/linked-idea", DebugEventLinkedIdeaHandler)

	r.GET("/v1/eggbook/sync-status", SyncStatusHandler)
	r.GET("/v1/eggbook/ideas", ListIdeasHandler)
	r.POST("/v1/eggbook/ideas", CreateIdeaHandler)
	r.GET("/v1/eggbook/ideas/:idea_id", GetIdeaHandler)
	r.DELETE("/v1/eggbook/ideas/:idea_id", DeleteIdeaHandler)

	r.GET("/v1/eggbook/todos", ListTodosHandler)
	r.POST("/v1/eggbook/todos", CreateTodoHandler)
	r.PATCH("/v1/eggbook/todos/:todo_id", UpdateTodoHandler)
	r.DELETE("/v1/eggbook/todos/:todo_id", DeleteTodoHandler)
	r.POST("/v1/eggbook/todos/:todo_id/accept", AcceptTodoHandler)
	r.POST("/v1/eggbook/todos/:todo_id/schedule", ScheduleTodoHandler)

	r.GET("/v1/eggbook/notifications", ListNotificationsHandler)
	r.POST("/v1/eggbook/notifications", CreateNotificationHandler)
	r.PATCH("/v1/eggbook/notifications/:notification_id", UpdateNotificationHandler)
	r.DELETE("/v1/eggbook/notifications/:notification_id", DeleteNotificationHandler)

	r.GET("/v1/eggbook/comments", ListCommentsHandler)
	r.GET("/v1/eggbook/comments/status", api.CommentStatusHandler)
	r.POST("/v1/eggbook/comments/generate", api.GenerateCommentsHandler)
	r.POST("/v1/eggbook/comments", CreateCommentHandler)

	r.POST("/v1/uploads/recording", CreateRecordingUploadHandler)
	r.PUT("/v1/uploads/recording/:upload_id", UploadRecordingFileHandler)
	r.GET("/v1/uploads/files/:upload_id", GetUploadedFileHandler)

	r.GET("/v1/realtime/live", RealtimeLiveHandler)

	return r
}
