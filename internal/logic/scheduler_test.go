package logic

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/gemini"
	"github.com/ElaineQian09/eggtart-backend/internal/pipeline"
)

func sweepTestDB(t *testing.T) *gorm.DB {
	g, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.Migrate(g))
	db.SetDB(g)
	return g
}

func itemsResponse(items string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": items}}}},
		},
	})
	return string(body)
}

func TestSweepSkipsWhenDisabled(t *testing.T) {
	g := sweepTestDB(t)
	stale := db.Event{
		ID:         "e1",
		UserID:     "u1",
		Transcript: "old words",
		EventAt:    time.Now().UTC().Add(-24 * time.Hour),
		Status:     db.EventStatusPending,
	}
	assert.NoError(t, g.Create(&stale).Error)

	p := pipeline.New(gemini.New(gemini.Config{Model: "gemini-3-flash"}), pipeline.NewUserGuard(0))
	SweepStaleBatches(p)

	var event db.Event
	assert.NoError(t, g.First(&event, "id = ?", "e1").Error)
	assert.Equal(t, db.EventStatusPending, event.Status)
}

func TestSweepProcessesStaleBatch(t *testing.T) {
	g := sweepTestDB(t)
	stale := db.Event{
		ID:         "e1",
		UserID:     "u1",
		Transcript: "old words",
		EventAt:    time.Now().UTC().Add(-24 * time.Hour),
		Status:     db.EventStatusPending,
	}
	fresh := db.Event{
		ID:         "e2",
		UserID:     "u2",
		Transcript: "new words",
		EventAt:    time.Now().UTC(),
		Status:     db.EventStatusPending,
	}
	assert.NoError(t, g.Create(&stale).Error)
	assert.NoError(t, g.Create(&fresh).Error)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, itemsResponse(`{"items": []}`))
	}))
	defer server.Close()

	client := gemini.New(gemini.Config{
		APIKey:      "test-key",
		Model:       "gemini-3-flash",
		BaseURL:     server.URL,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	})
	p := pipeline.New(client, pipeline.NewUserGuard(0))
	SweepStaleBatches(p)

	var swept db.Event
	assert.NoError(t, g.First(&swept, "id = ?", "e1").Error)
	assert.Equal(t, db.EventStatusProcessed, swept.Status)

	// The fresh user's batch has not exceeded the wait window.
	var untouched db.Event
	assert.NoError(t, g.First(&untouched, "id = ?", "e2").Error)
	assert.Equal(t, db.EventStatusPending, untouched.Status)
}
