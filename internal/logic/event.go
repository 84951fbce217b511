package logic

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/gemini"
	"github.com/ElaineQian09/eggtart-backend/internal/pipeline"
)

// API carries the process-wide pipeline into the handlers.
type API struct {
	Pipe *pipeline.Pipeline
}

func eventToDict(e *db.Event) gin.H {
	screen := pipeline.ScreenRecordingURL(e)
	return gin.H{
		"eventId":  e.ID,
		"deviceId": e.DeviceID,
		// Backward-compatible field for existing clients.
		"recordingUrl":       screen,
		"audioUrl":           e.AudioURL,
		"screenRecordingUrl": screen,
		"transcript":         e.Transcript,
		"durationSec":        int(e.DurationSec),
		"eventAt":            e.EventAt.Format(time.RFC3339),
		"status":             e.Status,
		"createdAt":          e.CreatedAt.Format(time.RFC3339),
		"updatedAt":          e.UpdatedAt.Format(time.RFC3339),
	}
}

func findUserEvent(g *gorm.DB, eventID, userID string) (*db.Event, error) {
	var events []db.Event
	err := g.Where("id = ? AND user_id = ?", eventID, userID).Limit(1).Find(&events).Error
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

// CreateEventHandler stores a new event in pending state. AI/STT runs on
// PATCH finalization, not here.
func (a *API) CreateEventHandler(c *gin.Context) {
	var req struct {
		DeviceID           string     `json:"device_id"`
		AudioURL           string     `json:"audio_url"`
		ScreenRecordingURL string     `json:"screen_recording_url"`
		RecordingURL       string     `json:"recording_url"`
		Transcript         string     `json:"transcript"`
		DurationSec        float64    `json:"duration_sec"`
		EventAt            *time.Time `json:"event_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceID == "" {
		c.JSON(400, gin.H{"error": "device_id required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var devices []db.Device
	if err := db.GetDB().Where("id = ? AND user_id = ?", req.DeviceID, userID).Limit(1).Find(&devices).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if len(devices) == 0 {
		c.JSON(404, gin.H{"error": "Device not found"})
		return
	}

	eventAt := time.Now().UTC()
	if req.EventAt != nil {
		eventAt = *req.EventAt
	}
	screen := req.ScreenRecordingURL
	if screen == "" {
		screen = req.RecordingURL
	}
	event := db.Event{
		ID:                 uuid.NewString(),
		UserID:             userID,
		DeviceID:           req.DeviceID,
		AudioURL:           req.AudioURL,
		ScreenRecordingURL: screen,
		RecordingURL:       screen,
		Transcript:         req.Transcript,
		DurationSec:        req.DurationSec,
		EventAt:            eventAt,
		Status:             db.EventStatusPending,
	}
	if err := db.GetDB().Create(&event).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, eventToDict(&event))
}

// UpdateEventHandler merges client updates into the event, decides whether
// this write finalizes the event, runs STT (single or batched) and then the
// extraction pipeline. Pointer fields distinguish absent from empty.
func (a *API) UpdateEventHandler(c *gin.Context) {
	var req struct {
		AudioURL           *string    `json:"audio_url"`
		ScreenRecordingURL *string    `json:"screen_recording_url"`
		RecordingURL       *string    `json:"recording_url"`
		Transcript         *string    `json:"transcript"`
		DurationSec        *float64   `json:"duration_sec"`
		EventAt            *time.Time `json:"event_at"`
		Status             *string    `json:"status"`
		// Optional explicit trigger switch from the client.
		Finalize *bool `json:"finalize"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid body"})
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

	if req.AudioURL != nil {
		event.AudioURL = *req.AudioURL
	}
	if req.ScreenRecordingURL != nil {
		event.ScreenRecordingURL = *req.ScreenRecordingURL
		event.RecordingURL = *req.ScreenRecordingURL
	}
	if req.RecordingURL != nil {
		event.RecordingURL = *req.RecordingURL
		event.ScreenRecordingURL = *req.RecordingURL
	}
	if req.Transcript != nil {
		event.Transcript = *req.Transcript
	}
	if req.DurationSec != nil {
		event.DurationSec = *req.DurationSec
	}
	if req.EventAt != nil {
		event.EventAt = *req.EventAt
	}
	if req.Status != nil {
		if !pipeline.ValidStatus(*req.Status) {
			c.JSON(400, gin.H{"error": "Invalid status"})
			return
		}
		event.Status = *req.Status
	} else {
		event.Status = pipeline.InferStatus(pipeline.ClassifyInput(event))
	}
	if err := g.Save(event).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}

	if err := upsertPlaceholderIdea(g, event); err != nil {
		log.Printf("placeholder idea upsert failed for event %s: %v", event.ID, err)
	}

	// Trigger gate: by default, transcript-only patches do not start the
	// pipeline. This avoids duplicate runs when the client PATCHes twice for
	// one voice event (first transcript/duration, then the media URL).
	finalize := req.Finalize != nil && *req.Finalize
	shouldTrigger := finalize || pipeline.HasMediaURL(event) || common.TranscriptOnlyTrigger
	if !shouldTrigger {
		c.JSON(200, eventToDict(event))
		return
	}

	pendingCount, oldestAt, err := pipeline.PendingInputStats(g, userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	waitExceeded := batchWaitExceeded(oldestAt)
	hasScreen := pipeline.ScreenRecordingURL(event) != ""

	// Voice events wait for the batch threshold unless the oldest pending
	// event has waited too long already.
	if pipeline.HasAnyInput(event) && !hasScreen && pendingCount < common.BatchTriggerCount && !waitExceeded {
		event.Status = db.EventStatusTranscribing
		if err := g.Save(event).Error; err != nil {
			c.JSON(500, gin.H{"error": "db error"})
			return
		}
		c.JSON(200, eventToDict(event))
		return
	}

	var sttErr error
	if hasScreen {
		// Screen recording events are processed immediately.
		sttErr = a.Pipe.FillTranscript(g, event)
	} else if (pendingCount >= common.BatchTriggerCount || waitExceeded) && a.Pipe.Enabled() {
		a.Pipe.RunPendingSTT(g, userID)
	} else {
		sttErr = a.Pipe.FillTranscript(g, event)
	}
	if sttErr != nil {
		log.Printf("stt failed for event %s: %v", event.ID, sttErr)
		event.Status = db.EventStatusFailed
		g.Save(event)
		c.JSON(200, eventToDict(event))
		return
	}

	if !a.Pipe.Enabled() {
		event.Status = db.EventStatusPending
		g.Save(event)
		c.JSON(200, eventToDict(event))
		return
	}

	if err := a.Pipe.RunForUser(g, userID); err != nil {
		if gemini.IsRecoverable(err) {
			log.Printf("ai transient error for event %s, keeping status for retry", event.ID)
			event.Status = db.EventStatusTranscribing
		} else {
			log.Printf("ai processing failed for event %s: %v", event.ID, err)
			event.Status = db.EventStatusFailed
		}
		g.Save(event)
	} else if refreshed, err := findUserEvent(g, event.ID, userID); err == nil && refreshed != nil {
		event = refreshed
	}
	c.JSON(200, eventToDict(event))
}

// upsertPlaceholderIdea creates or refreshes the idea row linked to a
// screen-recording event so the client can show it before extraction fills
// in title/content.
func upsertPlaceholderIdea(g *gorm.DB, event *db.Event) error {
	screen := pipeline.ScreenRecordingURL(event)
	if screen == "" {
		return nil
	}
	var ideas []db.Idea
	err := g.Where("user_id = ? AND source_event_id = ?", event.UserID, event.ID).Limit(1).Find(&ideas).Error
	if err != nil {
		return err
	}
	if len(ideas) == 0 {
		return g.Create(&db.Idea{
			ID:                 uuid.NewString(),
			UserID:             event.UserID,
			SourceEventID:      event.ID,
			ScreenRecordingURL: screen,
			RecordingURL:       event.RecordingURL,
			AudioURL:           event.AudioURL,
		}).Error
	}
	idea := ideas[0]
	idea.ScreenRecordingURL = screen
	idea.RecordingURL = event.RecordingURL
	idea.AudioURL = event.AudioURL
	return g.Save(&idea).Error
}

func batchWaitExceeded(oldestAt *time.Time) bool {
	if oldestAt == nil {
		return false
	}
	threshold := time.Now().UTC().Add(-time.Duration(common.BatchMaxWaitHours * float64(time.Hour)))
	return !oldestAt.After(threshold)
}

func (a *API) GetEventHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	event, err := findUserEvent(db.GetDB(), c.Param("event_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if event == nil {
		c.JSON(404, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(200, eventToDict(event))
}

func (a *API) GetEventStatusHandler(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	event, err := findUserEvent(db.GetDB(), c.Param("event_id"), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if event == nil {
		c.JSON(404, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(200, gin.H{"status": event.Status})
}
