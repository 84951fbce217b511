package logic

import (
	"log"
	"time"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/pipeline"
)

const sweepInterval = 30 * time.Minute

// SweepStaleBatches finds users whose oldest unprocessed input has waited
// past the batch max-wait window and runs STT plus extraction for them.
// Without this, a stale batch would sit until the user's next PATCH.
func SweepStaleBatches(p *pipeline.Pipeline) {
	if db.GetDB() == nil {
		log.Println("database not initialized, skipping stale batch sweep")
		return
	}
	if !p.Enabled() {
		return
	}
	g := db.GetDB()

	var userIDs []string
	err := g.Model(&db.Event{}).Distinct("user_id").
		Where("status IN ? AND (audio_url <> '' OR screen_recording_url <> '' OR recording_url <> '' OR transcript <> '')",
			[]string{db.EventStatusPending, db.EventStatusTranscribing, db.EventStatusFailed}).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		log.Printf("stale batch sweep query failed: %v", err)
		return
	}

	threshold := time.Now().UTC().Add(-time.Duration(common.BatchMaxWaitHours * float64(time.Hour)))
	swept := 0
	for _, userID := range userIDs {
		_, oldestAt, err := pipeline.PendingInputStats(g, userID)
		if err != nil || oldestAt == nil {
			continue
		}
		if oldestAt.After(threshold) {
			continue
		}
		swept++
		filled := p.RunPendingSTT(g, userID)
		if err := p.RunForUser(g, userID); err != nil {
			log.Printf("sweep pipeline run failed for user %s: %v", userID, err)
			continue
		}
		log.Printf("swept stale batch for user %s, transcripts filled: %d", userID, filled)
	}
	if swept > 0 {
		log.Printf("stale batch sweep done, users processed: %d", swept)
	}
}

// StartScheduler runs the stale-batch sweep on a fixed interval.
func StartScheduler(p *pipeline.Pipeline) {
	log.Println("starting stale batch scheduler...")
	go func() {
		for {
			time.Sleep(sweepInterval)
			SweepStaleBatches(p)
		}
	}()
}
