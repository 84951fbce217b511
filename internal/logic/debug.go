package logic

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/pipeline"
)

// DebugEventAIStateHandler explains why a given event has (not) been
// extracted yet. Gated behind EVENT_DEBUG_ENABLED.
func (a *API) DebugEventAIStateHandler(c *gin.Context) {
	if !common.EventDebugEnabled {
		c.JSON(404, gin.H{"error": "Not Found"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	g := db.GetDB()
	event, err := findUserEvent(g, c.Param("event_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if event == nil {
		c.JSON(404, gin.H{"error": "Event not found"})
		return
	}

	kind := pipeline.ClassifyInput(event)
	rule1 := pipeline.Rule1Eligible(event)
	rule2 := pipeline.Rule2Eligible(event)
	flags := gin.H{
		"inputKind":               kind.String(),
		"hasAudioUrl":             event.AudioURL != "",
		"hasScreenRecordingUrl":   pipeline.ScreenRecordingURL(event) != "",
		"hasTranscript":           event.Transcript != "",
		"rule1SingleEligible":     rule1,
		"rule2BatchEligible":      rule2,
		"eligibleForAiExtraction": rule1 || rule2,
	}

	runtime := a.Pipe.RuntimeState(userID)
	pendingCount, oldestAt, err := pipeline.PendingInputStats(g, userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	waitExceeded := batchWaitExceeded(oldestAt)

	probableReason := ""
	switch {
	case !a.Pipe.Enabled():
		probableReason = "AI disabled (missing GEMINI_API_KEY)"
	case runtime.Processing:
		probableReason = "User AI queue is currently processing"
	case runtime.CooldownRemaining > 0:
		probableReason = "User AI queue cooldown active"
	case pendingCount > 0 && pendingCount < common.BatchTriggerCount && !waitExceeded:
		probableReason = "Waiting for input batch trigger threshold"
	case !rule1 && !rule2:
		probableReason = "Event not eligible for extraction rules"
	case event.Status == db.EventStatusTranscribing:
		probableReason = "AI/STT likely pending or transient failure retry path"
	case event.Status == db.EventStatusFailed:
		probableReason = "Last AI/STT attempt failed"
	case event.Status == db.EventStatusProcessed:
		probableReason = "Processed successfully"
	}

	var oldest interface{}
	if oldestAt != nil {
		oldest = oldestAt.Format(time.RFC3339)
	}
	c.JSON(200, gin.H{
		"eventId":   event.ID,
		"userId":    userID,
		"status":    event.Status,
		"eventAt":   event.EventAt.Format(time.RFC3339),
		"updatedAt": event.UpdatedAt.Format(time.RFC3339),
		"signals":   flags,
		"audioBatch": gin.H{
			"pendingInputCount":    pendingCount,
			"triggerCount":         common.BatchTriggerCount,
			"maxWaitHours":         common.BatchMaxWaitHours,
			"oldestPendingEventAt": oldest,
			"waitExceeded":         waitExceeded,
		},
		"runtime": gin.H{
			"aiEnabled":            a.Pipe.Enabled(),
			"userProcessing":       runtime.Processing,
			"cooldownRemainingSec": runtime.CooldownRemaining.Seconds(),
		},
		"probableReason": probableReason,
	})
}

// DebugEventLinkedIdeaHandler shows the placeholder/extracted idea linked to
// a screen-recording event.
func DebugEventLinkedIdeaHandler(c *gin.Context) {
	if !common.EventDebugEnabled {
		c.JSON(404, gin.H{"error": "Not Found"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	g := db.GetDB()
	event, err := findUserEvent(g, c.Param("event_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if event == nil {
		c.JSON(404, gin.H{"error": "Event not found"})
		return
	}

	var ideas []db.Idea
	if err := g.Where("user_id = ? AND source_event_id = ?", userID, event.ID).Limit(1).Find(&ideas).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if len(ideas) == 0 {
		c.JSON(200, gin.H{"eventId": event.ID, "idea": nil})
		return
	}
	idea := ideas[0]
	c.JSON(200, gin.H{
		"eventId": event.ID,
		"idea": gin.H{
			"id":                 idea.ID,
			"isPlaceholder":      idea.Title == "" && idea.Content == "",
			"title":              idea.Title,
			"content":            idea.Content,
			"screenRecordingUrl": idea.ScreenRecordingURL,
			"recordingUrl":       idea.RecordingURL,
			"audioUrl":           idea.AudioURL,
			"createdAt":          idea.CreatedAt.Format(time.RFC3339),
			"updatedAt":          idea.UpdatedAt.Format(time.RFC3339),
		},
	})
}
