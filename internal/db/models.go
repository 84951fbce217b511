package db

import (
	"time"
)

// Event status values. "processed" is only set after the extraction pipeline
// has persisted output for the event.
const (
	EventStatusPending      = "pending"
	EventStatusTranscribing = "transcribing"
	EventStatusProcessed    = "processed"
	EventStatusFailed       = "failed"
)

// Comment generation status values for one (user, date) row.
const (
	CommentStatusIdle       = "idle"
	CommentStatusGenerating = "generating"
	CommentStatusReady      = "ready"
	CommentStatusFailed     = "failed"
)

type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type Device struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	UserID      string    `gorm:"size:36;index" json:"user_id"`
	DeviceModel string    `gorm:"size:64" json:"device_model"`
	OS          string    `gorm:"size:32" json:"os"`
	Language    string    `gorm:"size:16" json:"language"`
	Timezone    string    `gorm:"size:64" json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
}

type Memory struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;index" json:"user_id"`
	Type       string    `gorm:"size:32" json:"type"`
	Content    string    `gorm:"type:text" json:"content"`
	Importance float64   `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event is one ingested activity record (voice recording, screen recording
// or transcript). URL and transcript fields use "" for absent.
type Event struct {
	ID                 string `gorm:"primaryKey;size:36" json:"id"`
	UserID             string `gorm:"size:36;index" json:"user_id"`
	DeviceID           string `gorm:"size:64" json:"device_id"`
	AudioURL           string `gorm:"size:512" json:"audio_url"`
	ScreenRecordingURL string `gorm:"size:512" json:"screen_recording_url"`
	// Deprecated alias of ScreenRecordingURL, kept for old clients.
	RecordingURL string    `gorm:"size:512" json:"recording_url"`
	Transcript   string    `gorm:"type:text" json:"transcript"`
	DurationSec  float64   `json:"duration_sec"`
	EventAt      time.Time `gorm:"index" json:"event_at"`
	Status       string    `gorm:"size:16;index" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Idea is an extracted (or user-created) idea. SourceEventID is a weak
// reference; the event may be deleted without cascading.
type Idea struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	UserID             string    `gorm:"size:36;index" json:"user_id"`
	SourceEventID      string    `gorm:"size:36;index" json:"source_event_id"`
	Title              string    `gorm:"size:256" json:"title"`
	Content            string    `gorm:"type:text" json:"content"`
	ScreenRecordingURL string    `gorm:"size:512" json:"screen_recording_url"`
	RecordingURL       string    `gorm:"size:512" json:"recording_url"`
	AudioURL           string    `gorm:"size:512" json:"audio_url"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Todo struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;index" json:"user_id"`
	Title      string    `gorm:"size:256" json:"title"`
	IsAccepted bool      `json:"is_accepted"`
	IsPinned   bool      `json:"is_pinned"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Notification doubles as the alert store: extracted alerts are persisted
// here with NotifyAt set to the extraction time.
type Notification struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index" json:"user_id"`
	TodoID    string    `gorm:"size:36" json:"todo_id"`
	Title     string    `gorm:"size:256" json:"title"`
	NotifyAt  time.Time `json:"notify_at"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is a generated daily narrative item. Date is yyyy-mm-dd.
// Community comments carry the speaking persona in EggName/EggComment.
type Comment struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;index" json:"user_id"`
	Content     string    `gorm:"type:text" json:"content"`
	EggName     string    `gorm:"size:64" json:"egg_name"`
	EggComment  string    `gorm:"type:text" json:"egg_comment"`
	Date        string    `gorm:"size:10;index" json:"date"`
	IsCommunity bool      `json:"is_community"`
	CreatedAt   time.Time `json:"created_at"`
}

// CommentGeneration tracks daily comment generation per (user, date).
// Date is yyyy-mm-dd. Rows older than the rolling window are purged.
type CommentGeneration struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	UserID            string    `gorm:"size:36;index" json:"user_id"`
	Date              string    `gorm:"size:10;index" json:"date"`
	Status            string    `gorm:"size:16" json:"status"`
	HasInput          bool      `json:"has_input"`
	ActiveDurationSec float64   `json:"active_duration_sec"`
	TriggerMode       string    `gorm:"size:8" json:"trigger_mode"`
	ErrorMessage      string    `gorm:"size:512" json:"error_message"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
