package pipeline

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/gemini"
)

// Pipeline orchestrates extraction and daily comment generation. One
// instance is constructed per process and injected into the HTTP layer;
// database sessions are passed per call.
type Pipeline struct {
	ai    *gemini.Client
	guard *UserGuard
}

func New(ai *gemini.Client, guard *UserGuard) *Pipeline {
	return &Pipeline{ai: ai, guard: guard}
}

func (p *Pipeline) Enabled() bool {
	return p.ai.Enabled()
}

// RuntimeState exposes the guard snapshot for the debug endpoint.
func (p *Pipeline) RuntimeState(userID string) GuardState {
	return p.guard.State(userID)
}

// RunForUser runs one extraction pass for the user: the oldest open event is
// the trigger; a Rule-1 event is extracted alone, then any Rule-2 batch is
// extracted together. Admission is guarded per user; a rejected run is
// silently skipped. Extraction failures leave events in "transcribing"
// (recoverable) or "failed" (fatal) and are returned to the caller.
func (p *Pipeline) RunForUser(g *gorm.DB, userID string) error {
	if !p.ai.Enabled() {
		return nil
	}
	if !p.guard.Acquire(userID) {
		log.Printf("skip ai run: user slot busy or cooling down, user_id=%s", userID)
		return nil
	}
	defer p.guard.Release(userID)

	trigger, err := oldestOpenEvent(g, userID)
	if err != nil {
		return err
	}
	if trigger == nil {
		return nil
	}

	if Rule1Eligible(trigger) {
		if err := p.extractAndPersist(g, userID, trigger.ID, []db.Event{*trigger}, true); err != nil {
			return err
		}
	}

	batch, err := batchCandidates(g, userID)
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := p.extractAndPersist(g, userID, "", batch, false); err != nil {
			return err
		}
	}

	_, err = p.TriggerDailyComments(g, userID, today(), false)
	return err
}

// extractAndPersist marks the events transcribing (committed before the
// blocking network call), runs one extraction call, persists the items and
// marks the events processed. Partial results are never rolled back.
func (p *Pipeline) extractAndPersist(g *gorm.DB, userID, sourceEventID string, events []db.Event, singleMode bool) error {
	ids := eventIDs(events)
	if err := setEventsStatus(g, ids, db.EventStatusTranscribing); err != nil {
		return err
	}

	raw, err := p.ai.CompleteJSON(buildItemsPrompt(events, singleMode))
	if err != nil {
		return p.failEvents(g, ids, err)
	}
	var payload struct {
		Items []ExtractedItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return p.failEvents(g, ids, &gemini.MalformedResponseError{Reason: "items payload has wrong shape"})
	}
	if _, err := persistItems(g, userID, sourceEventID, payload.Items); err != nil {
		return err
	}
	return setEventsStatus(g, ids, db.EventStatusProcessed)
}

// failEvents decides the post-failure status. Recoverable failures keep the
// events in "transcribing" so a later run can retry them; everything else is
// terminal for this input and flips them to "failed". The cause is always
// returned so the invoking layer sees the failure.
func (p *Pipeline) failEvents(g *gorm.DB, ids []string, cause error) error {
	if gemini.IsRecoverable(cause) {
		log.Printf("extraction transient failure, keeping %d event(s) for retry: %v", len(ids), cause)
		return cause
	}
	log.Printf("extraction failed for %d event(s): %v", len(ids), cause)
	if err := setEventsStatus(g, ids, db.EventStatusFailed); err != nil {
		log.Printf("failed to mark events failed: %v", err)
	}
	return cause
}

func eventIDs(events []db.Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func setEventsStatus(g *gorm.DB, ids []string, status string) error {
	if len(ids) == 0 {
		return nil
	}
	return g.Model(&db.Event{}).Where("id IN ?", ids).Update("status", status).Error
}

// STTSourceURLs returns candidate media URLs in preference order: audio
// first, then screen recording, then the deprecated field. Duplicates are
// dropped.
func STTSourceURLs(e *db.Event) []string {
	candidates := []string{
		strings.TrimSpace(e.AudioURL),
		strings.TrimSpace(e.ScreenRecordingURL),
		strings.TrimSpace(e.RecordingURL),
	}
	var urls []string
	for _, u := range candidates {
		if u == "" {
			continue
		}
		seen := false
		for _, v := range urls {
			if v == u {
				seen = true
				break
			}
		}
		if !seen {
			urls = append(urls, u)
		}
	}
	return urls
}

// FillTranscript transcribes the event's media when no transcript is
// present, trying source URLs in preference order and accepting the first
// non-empty result. The transcribing status is committed before the call.
// A failed attempt is logged and the next source is tried; the event is
// left in "transcribing" when all sources fail.
func (p *Pipeline) FillTranscript(g *gorm.DB, e *db.Event) error {
	if strings.TrimSpace(e.Transcript) != "" {
		return nil
	}
	urls := STTSourceURLs(e)
	if len(urls) == 0 || !p.ai.Enabled() {
		return nil
	}

	e.Status = db.EventStatusTranscribing
	if err := g.Save(e).Error; err != nil {
		return err
	}

	for _, url := range urls {
		transcript, err := p.ai.TranscribeFromURL(url)
		if err != nil {
			log.Printf("stt failed for event %s using source %s: %v", e.ID, url, err)
			continue
		}
		if transcript != "" {
			e.Transcript = transcript
			return g.Save(e).Error
		}
	}
	return nil
}

// RunPendingSTT transcribes every open event with input but no transcript,
// one event at a time with per-event commits. Events whose every source
// fails flip to "failed". Returns how many transcripts were filled.
func (p *Pipeline) RunPendingSTT(g *gorm.DB, userID string) int {
	events, err := pendingInputEvents(g, userID)
	if err != nil {
		log.Printf("pending stt query failed for user %s: %v", userID, err)
		return 0
	}

	filled := 0
	for i := range events {
		candidate := &events[i]
		if strings.TrimSpace(candidate.Transcript) != "" {
			continue
		}
		urls := STTSourceURLs(candidate)
		if len(urls) == 0 {
			continue
		}

		candidate.Status = db.EventStatusTranscribing
		if err := g.Save(candidate).Error; err != nil {
			continue
		}

		var transcript string
		for _, url := range urls {
			t, err := p.ai.TranscribeFromURL(url)
			if err != nil {
				log.Printf("batch stt failed for event %s using source %s: %v", candidate.ID, url, err)
				continue
			}
			if t != "" {
				transcript = t
				break
			}
		}

		if transcript != "" {
			candidate.Transcript = transcript
			filled++
		} else {
			candidate.Status = db.EventStatusFailed
		}
		if err := g.Save(candidate).Error; err != nil {
			log.Printf("batch stt save failed for event %s: %v", candidate.ID, err)
		}
	}
	return filled
}

// PendingInputStats reports how many open events have input and when the
// oldest arrived. Used by the batching gate and the stale-batch sweep.
func PendingInputStats(g *gorm.DB, userID string) (int, *time.Time, error) {
	events, err := pendingInputEvents(g, userID)
	if err != nil {
		return 0, nil, err
	}
	if len(events) == 0 {
		return 0, nil, nil
	}
	oldest := events[0].EventAt
	return len(events), &oldest, nil
}
