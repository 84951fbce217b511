package pipeline

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/gemini"
)

const (
	dateLayout      = "2006-01-02"
	commentKeepDays = 7
)

// generatingStaleAfter bounds how long a row may sit in "generating". The
// status is a transient lock committed before the external call; a process
// dying mid-call would otherwise leave the day locked until the purge.
const generatingStaleAfter = 10 * time.Minute

// releaseStaleGeneration flips a generating row that outlived the lock
// window to failed so the day can be retried.
func releaseStaleGeneration(g *gorm.DB, state *db.CommentGeneration) error {
	if state.Status != db.CommentStatusGenerating {
		return nil
	}
	if time.Now().UTC().Sub(state.UpdatedAt) < generatingStaleAfter {
		return nil
	}
	state.Status = db.CommentStatusFailed
	state.ErrorMessage = "Generation interrupted"
	return g.Save(state).Error
}

// CommentState is the client-facing snapshot of one (user, date) row.
type CommentState struct {
	Date              string `json:"date"`
	Status            string `json:"status"`
	HasInput          bool   `json:"hasInput"`
	ActiveDurationSec int    `json:"activeDurationSec"`
	CanManualTrigger  bool   `json:"canManualTrigger"`
}

func today() string {
	return time.Now().UTC().Format(dateLayout)
}

func dayBounds(date string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(24 * time.Hour), nil
}

// purgeOldCommentData drops comments and generation rows outside the
// rolling retention window.
func purgeOldCommentData(g *gorm.DB, userID string) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -(commentKeepDays - 1)).Format(dateLayout)
	if err := g.Where("user_id = ? AND date < ?", userID, cutoff).Delete(&db.Comment{}).Error; err != nil {
		return err
	}
	return g.Where("user_id = ? AND date < ?", userID, cutoff).Delete(&db.CommentGeneration{}).Error
}

// getOrCreateState lazily creates the (user, date) row in idle state.
func getOrCreateState(g *gorm.DB, userID, date string) (*db.CommentGeneration, error) {
	var states []db.CommentGeneration
	err := g.Where("user_id = ? AND date = ?", userID, date).Limit(1).Find(&states).Error
	if err != nil {
		return nil, err
	}
	if len(states) > 0 {
		return &states[0], nil
	}
	state := db.CommentGeneration{
		ID:     uuid.NewString(),
		UserID: userID,
		Date:   date,
		Status: db.CommentStatusIdle,
	}
	if err := g.Create(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// dailyInputStats scans the day's events for any recording URL and sums
// their duration.
func dailyInputStats(g *gorm.DB, userID, date string) (bool, float64, error) {
	start, end, err := dayBounds(date)
	if err != nil {
		return false, 0, err
	}
	var events []db.Event
	if err := g.Where("user_id = ? AND event_at >= ? AND event_at < ?", userID, start, end).Find(&events).Error; err != nil {
		return false, 0, err
	}
	hasInput := false
	var active float64
	for i := range events {
		if HasMediaURL(&events[i]) {
			hasInput = true
		}
		active += events[i].DurationSec
	}
	return hasInput, active, nil
}

func snapshot(state *db.CommentGeneration) CommentState {
	return CommentState{
		Date:              state.Date,
		Status:            state.Status,
		HasInput:          state.HasInput,
		ActiveDurationSec: int(state.ActiveDurationSec),
		CanManualTrigger:  state.HasInput,
	}
}

// GetCommentState is the side-effecting status query: it purges rows past
// the retention window, recomputes the day's input, and downgrades
// idle/ready rows back to idle when the input has since disappeared.
func (p *Pipeline) GetCommentState(g *gorm.DB, userID, date string) (CommentState, error) {
	if err := purgeOldCommentData(g, userID); err != nil {
		return CommentState{}, err
	}
	state, err := getOrCreateState(g, userID, date)
	if err != nil {
		return CommentState{}, err
	}
	if err := releaseStaleGeneration(g, state); err != nil {
		return CommentState{}, err
	}
	hasInput, active, err := dailyInputStats(g, userID, date)
	if err != nil {
		return CommentState{}, err
	}
	state.HasInput = hasInput
	state.ActiveDurationSec = active
	if (state.Status == db.CommentStatusIdle || state.Status == db.CommentStatusReady) && !hasInput {
		state.Status = db.CommentStatusIdle
	}
	if err := g.Save(state).Error; err != nil {
		return CommentState{}, err
	}
	return snapshot(state), nil
}

type commentsPayload struct {
	MyEggComment        string `json:"my_egg_comment"`
	EggCommunityComment []struct {
		EggName    string `json:"egg_name"`
		EggComment string `json:"egg_comment"`
	} `json:"egg_community_comment"`
}

// TriggerDailyComments drives the comment generation state machine for one
// (user, date). Refusals leave the row idle with a human-readable reason:
// no input for the day, active duration below the automatic threshold
// (manual triggers bypass it), or no extracted signals to summarize. On
// proceeding the row is committed to "generating" before the external call;
// success persists the deduplicated comments, sets "ready" and emits the
// one-shot notification; failure sets "failed" with a truncated message and
// returns the error.
func (p *Pipeline) TriggerDailyComments(g *gorm.DB, userID, date string, manual bool) (CommentState, error) {
	if err := purgeOldCommentData(g, userID); err != nil {
		return CommentState{}, err
	}
	state, err := getOrCreateState(g, userID, date)
	if err != nil {
		return CommentState{}, err
	}
	if err := releaseStaleGeneration(g, state); err != nil {
		return CommentState{}, err
	}
	if state.Status == db.CommentStatusGenerating {
		// A generation is already in flight for this day.
		return snapshot(state), nil
	}

	hasInput, active, err := dailyInputStats(g, userID, date)
	if err != nil {
		return CommentState{}, err
	}
	state.HasInput = hasInput
	state.ActiveDurationSec = active
	if manual {
		state.TriggerMode = "manual"
	} else {
		state.TriggerMode = "auto"
	}

	if !hasInput {
		state.Status = db.CommentStatusIdle
		state.ErrorMessage = "No voice/screen input for the day"
		if err := g.Save(state).Error; err != nil {
			return CommentState{}, err
		}
		return p.GetCommentState(g, userID, date)
	}
	if !manual && active < common.AutoTriggerThresholdSec {
		state.Status = db.CommentStatusIdle
		state.ErrorMessage = "Active duration below auto threshold (3600s)"
		if err := g.Save(state).Error; err != nil {
			return CommentState{}, err
		}
		return p.GetCommentState(g, userID, date)
	}

	start, end, err := dayBounds(date)
	if err != nil {
		return CommentState{}, err
	}
	var ideas []db.Idea
	var todos []db.Todo
	var alerts []db.Notification
	if err := g.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).Find(&ideas).Error; err != nil {
		return CommentState{}, err
	}
	if err := g.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).Find(&todos).Error; err != nil {
		return CommentState{}, err
	}
	if err := g.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).Find(&alerts).Error; err != nil {
		return CommentState{}, err
	}
	if len(ideas) == 0 && len(todos) == 0 && len(alerts) == 0 {
		state.Status = db.CommentStatusIdle
		state.ErrorMessage = "No idea/todo/alert signals for the day"
		if err := g.Save(state).Error; err != nil {
			return CommentState{}, err
		}
		return p.GetCommentState(g, userID, date)
	}

	// Commit the transient lock state before the blocking call. Everything
	// that can fail between here and the call result writes a terminal status.
	state.Status = db.CommentStatusGenerating
	state.ErrorMessage = ""
	if err := g.Save(state).Error; err != nil {
		return CommentState{}, err
	}

	raw, genErr := p.ai.CompleteJSON(buildCommentsPrompt(ideas, todos, alerts))
	var payload commentsPayload
	if genErr == nil {
		if err := json.Unmarshal(raw, &payload); err != nil {
			genErr = &gemini.MalformedResponseError{Reason: "comments payload has wrong shape"}
		}
	}
	if genErr == nil {
		genErr = p.persistComments(g, userID, date, &payload)
	}
	if genErr != nil {
		state.Status = db.CommentStatusFailed
		state.ErrorMessage = common.Truncate(genErr.Error(), 500)
		if err := g.Save(state).Error; err != nil {
			return CommentState{}, err
		}
		return snapshot(state), genErr
	}

	state.Status = db.CommentStatusReady
	state.ErrorMessage = ""
	if err := g.Save(state).Error; err != nil {
		return CommentState{}, err
	}
	if err := notifyCommentsReady(g, userID, date); err != nil {
		return CommentState{}, err
	}
	return p.GetCommentState(g, userID, date)
}

func (p *Pipeline) persistComments(g *gorm.DB, userID, date string, payload *commentsPayload) error {
	if err := upsertComment(g, userID, payload.MyEggComment, date, false, "", ""); err != nil {
		return err
	}
	for _, item := range payload.EggCommunityComment {
		eggName := common.SafeText(item.EggName)
		eggComment := common.SafeText(item.EggComment)
		text := eggComment
		if eggName != "" {
			text = eggName + ": " + eggComment
		}
		text = strings.TrimSpace(text)
		if err := upsertComment(g, userID, text, date, true, eggName, eggComment); err != nil {
			return err
		}
	}
	return nil
}
