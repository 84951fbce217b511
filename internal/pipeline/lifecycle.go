package pipeline

import (
	"strings"

	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
)

// InputKind tags what content an event actually carries. It is computed
// once from the raw optional fields and passed down instead of re-deriving
// at each layer.
type InputKind int

const (
	InputNone InputKind = iota
	InputAudio
	InputScreen
	InputTranscriptOnly
)

func (k InputKind) String() string {
	switch k {
	case InputAudio:
		return "audio"
	case InputScreen:
		return "screen"
	case InputTranscriptOnly:
		return "transcript-only"
	default:
		return "none"
	}
}

// ScreenRecordingURL coalesces the current field with the deprecated alias.
func ScreenRecordingURL(e *db.Event) string {
	if u := strings.TrimSpace(e.ScreenRecordingURL); u != "" {
		return u
	}
	return strings.TrimSpace(e.RecordingURL)
}

// ClassifyInput computes the input kind for an event. Screen content wins
// over audio, audio over a bare transcript.
func ClassifyInput(e *db.Event) InputKind {
	switch {
	case ScreenRecordingURL(e) != "":
		return InputScreen
	case strings.TrimSpace(e.AudioURL) != "":
		return InputAudio
	case strings.TrimSpace(e.Transcript) != "":
		return InputTranscriptOnly
	default:
		return InputNone
	}
}

// HasMediaURL reports whether the event carries any recording URL.
func HasMediaURL(e *db.Event) bool {
	return strings.TrimSpace(e.AudioURL) != "" || ScreenRecordingURL(e) != ""
}

// HasAnyInput reports whether the event carries anything processable at all.
func HasAnyInput(e *db.Event) bool {
	return HasMediaURL(e) || strings.TrimSpace(e.Transcript) != ""
}

// InferStatus derives the lifecycle status for a client update that did not
// set one explicitly. "processed" is never inferred; only a successful
// extraction run sets it.
func InferStatus(kind InputKind) string {
	if kind == InputNone {
		return db.EventStatusPending
	}
	return db.EventStatusTranscribing
}

// ValidStatus reports whether s is a client-settable lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case db.EventStatusPending, db.EventStatusTranscribing, db.EventStatusProcessed, db.EventStatusFailed:
		return true
	}
	return false
}

// Rule1Eligible: the event has screen/video content and is not already
// processed. Such events carry enough context to extract alone.
func Rule1Eligible(e *db.Event) bool {
	return ClassifyInput(e) == InputScreen && e.Status != db.EventStatusProcessed
}

// Rule2Eligible: no recording URLs, a transcript is present, and the event
// is in a non-terminal state. These are extracted in batches for
// cross-event context.
func Rule2Eligible(e *db.Event) bool {
	if ScreenRecordingURL(e) != "" || strings.TrimSpace(e.RecordingURL) != "" {
		return false
	}
	if strings.TrimSpace(e.Transcript) == "" {
		return false
	}
	switch e.Status {
	case db.EventStatusPending, db.EventStatusTranscribing, db.EventStatusFailed:
		return true
	}
	return false
}

const batchLimit = 20

var openStatuses = []string{db.EventStatusPending, db.EventStatusTranscribing, db.EventStatusFailed}

// oldestOpenEvent returns the user's oldest non-terminal event, or nil.
func oldestOpenEvent(g *gorm.DB, userID string) (*db.Event, error) {
	var events []db.Event
	err := g.Where("user_id = ? AND status IN ?", userID, openStatuses).
		Order("event_at asc").Limit(1).Find(&events).Error
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

// batchCandidates returns up to batchLimit Rule-2 events, oldest first.
func batchCandidates(g *gorm.DB, userID string) ([]db.Event, error) {
	var events []db.Event
	err := g.Where(
		"user_id = ? AND screen_recording_url = '' AND recording_url = '' AND transcript <> '' AND status IN ?",
		userID, openStatuses,
	).Order("event_at asc").Limit(batchLimit).Find(&events).Error
	return events, err
}

// pendingInputEvents returns non-terminal events that have any input, oldest
// first. Used by the STT batching gate and the stale-batch sweep.
func pendingInputEvents(g *gorm.DB, userID string) ([]db.Event, error) {
	var events []db.Event
	err := g.Where(
		"user_id = ? AND status IN ? AND (audio_url <> '' OR screen_recording_url <> '' OR recording_url <> '' OR transcript <> '')",
		userID, openStatuses,
	).Order("event_at asc").Find(&events).Error
	return events, err
}
