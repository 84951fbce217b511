package logic

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/gemini"
)

const (
	dateLayout      = "2006-01-02"
	commentKeepDays = 7
)

// ListCommentsHandler returns up to a week of comments starting at ?date,
// split into the personal and community channels. Comments outside the
// rolling window are purged on read.
func ListCommentsHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	g := db.GetDB()

	cutoff := time.Now().UTC().AddDate(0, 0, -(commentKeepDays - 1)).Format(dateLayout)
	if err := g.Where("user_id = ? AND date < ?", userID, cutoff).Delete(&db.Comment{}).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}

	startDate, err := time.ParseInLocation(dateLayout, c.Query("date"), time.UTC)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid date format"})
		return
	}
	start := startDate.Format(dateLayout)
	if start < cutoff {
		start = cutoff
		startDate, _ = time.ParseInLocation(dateLayout, cutoff, time.UTC)
	}
	end := startDate.AddDate(0, 0, commentKeepDays).Format(dateLayout)

	var comments []db.Comment
	if err := g.Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
		Order("created_at desc").Find(&comments).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	myEgg := make([]gin.H, 0)
	community := make([]gin.H, 0)
	for i := range comments {
		if comments[i].IsCommunity {
			community = append(community, commentToDict(&comments[i]))
		} else {
			myEgg = append(myEgg, commentToDict(&comments[i]))
		}
	}
	c.JSON(200, gin.H{"myEgg": myEgg, "community": community})
}

// CommentStatusHandler runs the side-effecting status query for one day.
func (a *API) CommentStatusHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if _, err := time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		c.JSON(400, gin.H{"error": "Invalid date format"})
		return
	}
	state, err := a.Pipe.GetCommentState(db.GetDB(), userID, date)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, state)
}

// GenerateCommentsHandler is the manual trigger for daily comment
// generation. Recoverable generation failures surface as 503 so the client
// can retry; the state row already records the failure.
func (a *API) GenerateCommentsHandler(c *gin.Context) {
	var req struct {
		Date string `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(400, gin.H{"error": "invalid body"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format(dateLayout)
	} else if _, err := time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		c.JSON(400, gin.H{"error": "Invalid date format"})
		return
	}

	state, err := a.Pipe.TriggerDailyComments(db.GetDB(), userID, date, true)
	if err != nil {
		if gemini.IsRecoverable(err) {
			c.JSON(503, gin.H{"error": "generation temporarily unavailable", "state": state})
			return
		}
		c.JSON(500, gin.H{"error": "generation failed", "state": state})
		return
	}
	c.JSON(200, state)
}

// CreateCommentHandler stores a manually written comment.
func CreateCommentHandler(c *gin.Context) {
	var req struct {
		Content     string `json:"content"`
		EggName     string `json:"egg_name"`
		EggComment  string `json:"egg_comment"`
		Date        string `json:"date"`
		IsCommunity bool   `json:"isCommunity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid body"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	content := req.Content
	if req.IsCommunity && req.EggComment != "" {
		content = req.EggComment
	}
	if content == "" {
		c.JSON(400, gin.H{"error": "content is required"})
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format(dateLayout)
	} else if _, err := time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		c.JSON(400, gin.H{"error": "Invalid date format"})
		return
	}
	comment := db.Comment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Content:     content,
		Date:        date,
		IsCommunity: req.IsCommunity,
	}
	if req.IsCommunity {
		comment.EggName = req.EggName
		comment.EggComment = req.EggComment
	}
	if err := db.GetDB().Create(&comment).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"item": commentToDict(&comment)})
}
