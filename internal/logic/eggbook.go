package logic

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
)

func ideaToDict(idea *db.Idea) gin.H {
	return gin.H{
		"id":                 idea.ID,
		"sourceEventId":      idea.SourceEventID,
		"title":              idea.Title,
		"content":            idea.Content,
		"screenRecordingUrl": idea.ScreenRecordingURL,
		"recordingUrl":       idea.RecordingURL,
		"audioUrl":           idea.AudioURL,
		"createdAt":          idea.CreatedAt.Format(time.RFC3339),
		"updatedAt":          idea.UpdatedAt.Format(time.RFC3339),
	}
}

func todoToDict(todo *db.Todo) gin.H {
	return gin.H{
		"id":         todo.ID,
		"title":      todo.Title,
		"isAccepted": todo.IsAccepted,
		"isPinned":   todo.IsPinned,
		"createdAt":  todo.CreatedAt.Format(time.RFC3339),
		"updatedAt":  todo.UpdatedAt.Format(time.RFC3339),
	}
}

func notificationToDict(n *db.Notification) gin.H {
	return gin.H{
		"id":        n.ID,
		"title":     n.Title,
		"todoId":    n.TodoID,
		"notifyAt":  n.NotifyAt.Format(time.RFC3339),
		"createdAt": n.CreatedAt.Format(time.RFC3339),
		"updatedAt": n.UpdatedAt.Format(time.RFC3339),
	}
}

func commentToDict(comment *db.Comment) gin.H {
	content := comment.Content
	if comment.IsCommunity && comment.EggComment != "" {
		content = comment.EggComment
	}
	return gin.H{
		"id":          comment.ID,
		"content":     content,
		"eggName":     comment.EggName,
		"eggComment":  comment.EggComment,
		"date":        comment.Date,
		"isCommunity": comment.IsCommunity,
		"createdAt":   comment.CreatedAt.Format(time.RFC3339),
	}
}

// SyncStatusHandler reports whether extraction output is still pending:
// placeholder ideas (empty title or content) mean processing.
func SyncStatusHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	g := db.GetDB()
	var pendingIdeas int64
	if err := g.Model(&db.Idea{}).
		Where("user_id = ? AND (title = '' OR content = '')", userID).
		Count(&pendingIdeas).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	var totalIdeas int64
	if err := g.Model(&db.Idea{}).Where("user_id = ?", userID).Count(&totalIdeas).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	processing := pendingIdeas > 0
	c.JSON(200, gin.H{
		"status":     "ok",
		"lastSyncAt": nil,
		"processing": processing,
		"hasUpdates": !processing && totalIdeas > 0,
	})
}

func ListIdeasHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var ideas []db.Idea
	if err := db.GetDB().Where("user_id = ?", userID).Order("created_at desc").Find(&ideas).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	items := make([]gin.H, 0, len(ideas))
	for i := range ideas {
		items = append(items, ideaToDict(&ideas[i]))
	}
	c.JSON(200, gin.H{"items": items})
}

func CreateIdeaHandler(c *gin.Context) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(400, gin.H{"error": "content required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	idea := db.Idea{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := db.GetDB().Create(&idea).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"item": ideaToDict(&idea)})
}

func findIdea(g *gorm.DB, ideaID, userID string) (*db.Idea, error) {
	var ideas []db.Idea
	err := g.Where("id = ? AND user_id = ?", ideaID, userID).Limit(1).Find(&ideas).Error
	if err != nil || len(ideas) == 0 {
		return nil, err
	}
	return &ideas[0], nil
}

func GetIdeaHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	idea, err := findIdea(db.GetDB(), c.Param("idea_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if idea == nil {
		c.JSON(404, gin.H{"error": "Idea not found"})
		return
	}
	c.JSON(200, gin.H{"item": ideaToDict(idea)})
}

func DeleteIdeaHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	idea, err := findIdea(db.GetDB(), c.Param("idea_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if idea == nil {
		c.JSON(404, gin.H{"error": "Idea not found"})
		return
	}
	if err := db.GetDB().Delete(idea).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"message": "Idea deleted"})
}

func ListTodosHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var todos []db.Todo
	if err := db.GetDB().Where("user_id = ?", userID).Order("created_at desc").Find(&todos).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	items := make([]gin.H, 0, len(todos))
	for i := range todos {
		items = append(items, todoToDict(&todos[i]))
	}
	c.JSON(200, gin.H{"items": items})
}

func CreateTodoHandler(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(400, gin.H{"error": "title required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	todo := db.Todo{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  req.Title,
	}
	if err := db.GetDB().Create(&todo).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"item": todoToDict(&todo)})
}

func findTodo(g *gorm.DB, todoID, userID string) (*db.Todo, error) {
	var todos []db.Todo
	err := g.Where("id = ? AND user_id = ?", todoID, userID).Limit(1).Find(&todos).Error
	if err != nil || len(todos) == 0 {
		return nil, err
	}
	return &todos[0], nil
}

func UpdateTodoHandler(c *gin.Context) {
	var req struct {
		Title      *string `json:"title"`
		IsAccepted *bool   `json:"isAccepted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid body"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	todo, err := findTodo(db.GetDB(), c.Param("todo_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if todo == nil {
		c.JSON(404, gin.H{"error": "Todo not found"})
		return
	}
	if req.Title != nil {
		todo.Title = *req.Title
	}
	if req.IsAccepted != nil {
		todo.IsAccepted = *req.IsAccepted
	}
	if err := db.GetDB().Save(todo).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"item": todoToDict(todo)})
}

func DeleteTodoHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	todo, err := findTodo(db.GetDB(), c.Param("todo_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if todo == nil {
		c.JSON(404, gin.H{"error": "Todo not found"})
		return
	}
	if err := db.GetDB().Delete(todo).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"message": "Todo deleted"})
}

func AcceptTodoHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	todo, err := findTodo(db.GetDB(), c.Param("todo_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if todo == nil {
		c.JSON(404, gin.H{"error": "Todo not found"})
		return
	}
	todo.IsAccepted = true
	todo.IsPinned = true
	if err := db.GetDB().Save(todo).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"item": todoToDict(todo)})
}

func ScheduleTodoHandler(c *gin.Context) {
	var req struct {
		NotifyAt time.Time `json:"notify_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.NotifyAt.IsZero() {
		c.JSON(400, gin.H{"error": "notify_at required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	todo, err := findTodo(db.GetDB(), c.Param("todo_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if todo == nil {
		c.JSON(404, gin.H{"error": "Todo not found"})
		return
	}
	notification := db.Notification{
		ID:       uuid.NewString(),
		UserID:   userID,
		TodoID:   todo.ID,
		Title:    todo.Title,
		NotifyAt: req.NotifyAt,
	}
	if err := db.GetDB().Create(&notification).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"item": notificationToDict(&notification)})
}

func ListNotificationsHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var items []db.Notification
	if err := db.GetDB().Where("user_id = ?", userID).Order("notify_at asc").Find(&items).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	out := make([]gin.H, 0, len(items))
	for i := range items {
		out = append(out, notificationToDict(&items[i]))
	}
	c.JSON(200, gin.H{"items": out})
}

func CreateNotificationHandler(c *gin.Context) {
	var req struct {
		Title    string    `json:"title"`
		NotifyAt time.Time `json:"notify_at"`
		TodoID   string    `json:"todo_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" || req.NotifyAt.IsZero() {
		c.JSON(400, gin.H{"error": "title and notify_at required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	notification := db.Notification{
		ID:       uuid.NewString(),
		UserID:   userID,
		TodoID:   req.TodoID,
		Title:    req.Title,
		NotifyAt: req.NotifyAt,
	}
	if err := db.GetDB().Create(&notification).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"item": notificationToDict(&notification)})
}

func findNotification(g *gorm.DB, id, userID string) (*db.Notification, error) {
	var items []db.Notification
	err := g.Where("id = ? AND user_id = ?", id, userID).Limit(1).Find(&items).Error
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func UpdateNotificationHandler(c *gin.Context) {
	var req struct {
		NotifyAt time.Time `json:"notify_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.NotifyAt.IsZero() {
		c.JSON(400, gin.H{"error": "notify_at required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	notification, err := findNotification(db.GetDB(), c.Param("notification_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if notification == nil {
		c.JSON(404, gin.H{"error": "Notification not found"})
		return
	}
	notification.NotifyAt = req.NotifyAt
	if err := db.GetDB().Save(notification).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"item": notificationToDict(notification)})
}

func DeleteNotificationHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	notification, err := findNotification(db.GetDB(), c.Param("notification_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if notification == nil {
		c.JSON(404, gin.H{"error": "Notification not found"})
		return
	}
	if err := db.GetDB().Delete(notification).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"message": "Notification deleted"})
}
