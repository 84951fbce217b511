package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/gemini"
)

func testPipeline(baseURL string) *Pipeline {
	client := gemini.New(gemini.Config{
		APIKey:      "test-key",
		Model:       "gemini-3-flash",
		BaseURL:     baseURL,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	})
	return New(client, NewUserGuard(0))
}

// geminiBody wraps text the way the generation endpoint does.
func geminiBody(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(body)
}

func itemsServer(t *testing.T, items string, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		fmt.Fprint(w, geminiBody(items))
	}))
}

func eventStatus(t *testing.T, g *gorm.DB, id string) string {
	var event db.Event
	assert.NoError(t, g.First(&event, "id = ?", id).Error)
	return event.Status
}

func TestRunForUserSingleExtraction(t *testing.T) {
	g := testDB(t)
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	event := db.Event{
		ID:                 "e1",
		UserID:             "u1",
		ScreenRecordingURL: "http://media/e1.mp4",
		EventAt:            yesterday,
		Status:             db.EventStatusPending,
	}
	assert.NoError(t, g.Create(&event).Error)

	var calls int32
	server := itemsServer(t, `{"items": [{"scrolling_idea_title": "Build a garden", "scrolling_idea_detail": "Start with herbs", "todo_item": "Buy seeds", "alert": ""}]}`, &calls)
	defer server.Close()

	p := testPipeline(server.URL)
	assert.NoError(t, p.RunForUser(g, "u1"))
	assert.Equal(t, db.EventStatusProcessed, eventStatus(t, g, "e1"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var ideas []db.Idea
	assert.NoError(t, g.Find(&ideas).Error)
	assert.Len(t, ideas, 1)
	assert.Equal(t, "Build a garden", ideas[0].Title)
	assert.Equal(t, "Start with herbs", ideas[0].Content)
	assert.Equal(t, "e1", ideas[0].SourceEventID)

	var todos []db.Todo
	assert.NoError(t, g.Find(&todos).Error)
	assert.Len(t, todos, 1)
	assert.Equal(t, "Buy seeds", todos[0].Title)
}

func TestRunForUserBatchExtraction(t *testing.T) {
	g := testDB(t)
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	for i := 0; i < 3; i++ {
		event := db.Event{
			ID:         fmt.Sprintf("e%d", i),
			UserID:     "u1",
			Transcript: "talked about plans",
			EventAt:    yesterday.Add(time.Duration(i) * time.Minute),
			Status:     db.EventStatusPending,
		}
		assert.NoError(t, g.Create(&event).Error)
	}

	var calls int32
	server := itemsServer(t, `{"items": [{"scrolling_idea_title": "", "scrolling_idea_detail": "", "todo_item": "Write the plan down", "alert": ""}]}`, &calls)
	defer server.Close()

	p := testPipeline(server.URL)
	assert.NoError(t, p.RunForUser(g, "u1"))
	for i := 0; i < 3; i++ {
		assert.Equal(t, db.EventStatusProcessed, eventStatus(t, g, fmt.Sprintf("e%d", i)))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Batch items have no single source event.
	var todos []db.Todo
	assert.NoError(t, g.Find(&todos).Error)
	assert.Len(t, todos, 1)
}

func TestRunForUserFatalFailureMarksFailed(t *testing.T) {
	g := testDB(t)
	event := db.Event{
		ID:         "e1",
		UserID:     "u1",
		Transcript: "something",
		EventAt:    time.Now().UTC().Add(-24 * time.Hour),
		Status:     db.EventStatusPending,
	}
	assert.NoError(t, g.Create(&event).Error)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
	}))
	defer server.Close()

	p := testPipeline(server.URL)
	err := p.RunForUser(g, "u1")
	assert.Error(t, err)
	assert.False(t, gemini.IsRecoverable(err))
	assert.Equal(t, db.EventStatusFailed, eventStatus(t, g, "e1"))
}

func TestRunForUserTransientFailureKeepsTranscribing(t *testing.T) {
	g := testDB(t)
	event := db.Event{
		ID:         "e1",
		UserID:     "u1",
		Transcript: "something",
		EventAt:    time.Now().UTC().Add(-24 * time.Hour),
		Status:     db.EventStatusPending,
	}
	assert.NoError(t, g.Create(&event).Error)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer server.Close()

	p := testPipeline(server.URL)
	err := p.RunForUser(g, "u1")
	assert.Error(t, err)
	assert.True(t, gemini.IsRecoverable(err))
	assert.Equal(t, db.EventStatusTranscribing, eventStatus(t, g, "e1"))
}

func TestRunForUserSkipsWhenGuardBusy(t *testing.T) {
	g := testDB(t)
	event := db.Event{
		ID:         "e1",
		UserID:     "u1",
		Transcript: "something",
		EventAt:    time.Now().UTC().Add(-24 * time.Hour),
		Status:     db.EventStatusPending,
	}
	assert.NoError(t, g.Create(&event).Error)

	var calls int32
	server := itemsServer(t, `{"items": []}`, &calls)
	defer server.Close()

	p := testPipeline(server.URL)
	p.guard.Acquire("u1")
	assert.NoError(t, p.RunForUser(g, "u1"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, db.EventStatusPending, eventStatus(t, g, "e1"))
}

func TestRunForUserDisabledIsNoop(t *testing.T) {
	g := testDB(t)
	event := db.Event{
		ID:         "e1",
		UserID:     "u1",
		Transcript: "something",
		EventAt:    time.Now().UTC(),
		Status:     db.EventStatusPending,
	}
	assert.NoError(t, g.Create(&event).Error)

	p := New(gemini.New(gemini.Config{Model: "gemini-3-flash"}), NewUserGuard(0))
	assert.NoError(t, p.RunForUser(g, "u1"))
	assert.Equal(t, db.EventStatusPending, eventStatus(t, g, "e1"))
}

func TestPersistItemsTaxonomy(t *testing.T) {
	g := testDB(t)
	items := []ExtractedItem{
		{IdeaTitle: "Title only"},
		{IdeaDetail: "Detail only"},
		{TodoItem: "Do the thing"},
		{Alert: "Deadline tomorrow"},
		{},
		{IdeaTitle: "  ", TodoItem: "   "},
	}
	created, err := persistItems(g, "u1", "e1", items)
	assert.NoError(t, err)
	assert.Equal(t, 4, created)

	var ideas []db.Idea
	assert.NoError(t, g.Order("title desc").Find(&ideas).Error)
	assert.Len(t, ideas, 2)
	// Content falls back to the title when the detail is empty.
	assert.Equal(t, "Title only", ideas[0].Content)
	assert.Equal(t, "Detail only", ideas[1].Content)

	var alerts []db.Notification
	assert.NoError(t, g.Find(&alerts).Error)
	assert.Len(t, alerts, 1)
	assert.Equal(t, "Deadline tomorrow", alerts[0].Title)
	assert.False(t, alerts[0].NotifyAt.IsZero())
}

func TestUpsertCommentIdempotent(t *testing.T) {
	g := testDB(t)
	for i := 0; i < 3; i++ {
		assert.NoError(t, upsertComment(g, "u1", "Nice day", "2026-03-01", false, "", ""))
	}
	var count int64
	assert.NoError(t, g.Model(&db.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Same text on the community channel is a distinct comment.
	assert.NoError(t, upsertComment(g, "u1", "Nice day", "2026-03-01", true, "Focus Egg", "Nice day"))
	assert.NoError(t, g.Model(&db.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestUpsertCommentSkipsEmptyAndNormalizesPersonal(t *testing.T) {
	g := testDB(t)
	assert.NoError(t, upsertComment(g, "u1", "   ", "2026-03-01", false, "", ""))
	var count int64
	assert.NoError(t, g.Model(&db.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	assert.NoError(t, upsertComment(g, "u1", "Solid effort", "2026-03-01", false, "Focus Egg", "ignored"))
	var comment db.Comment
	assert.NoError(t, g.First(&comment).Error)
	assert.Equal(t, "", comment.EggName)
	assert.Equal(t, "", comment.EggComment)
}

func TestNotifyCommentsReadyDedup(t *testing.T) {
	g := testDB(t)
	assert.NoError(t, notifyCommentsReady(g, "u1", "2026-03-01"))
	assert.NoError(t, notifyCommentsReady(g, "u1", "2026-03-01"))
	assert.NoError(t, notifyCommentsReady(g, "u1", "2026-03-02"))

	var count int64
	assert.NoError(t, g.Model(&db.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSTTSourceURLs(t *testing.T) {
	urls := STTSourceURLs(&db.Event{AudioURL: "a", ScreenRecordingURL: "s", RecordingURL: "r"})
	assert.Equal(t, []string{"a", "s", "r"}, urls)

	urls = STTSourceURLs(&db.Event{ScreenRecordingURL: "s", RecordingURL: "s"})
	assert.Equal(t, []string{"s"}, urls)

	assert.Empty(t, STTSourceURLs(&db.Event{}))
}

func TestFillTranscript(t *testing.T) {
	g := testDB(t)
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("fake audio"))
	}))
	defer media.Close()
	gen := itemsServer(t, "remember to water the plants", nil)
	defer gen.Close()

	event := db.Event{ID: "e1", UserID: "u1", AudioURL: media.URL + "/a.mp3", Status: db.EventStatusPending}
	assert.NoError(t, g.Create(&event).Error)

	p := testPipeline(gen.URL)
	assert.NoError(t, p.FillTranscript(g, &event))

	var saved db.Event
	assert.NoError(t, g.First(&saved, "id = ?", "e1").Error)
	assert.Equal(t, "remember to water the plants", saved.Transcript)
	assert.Equal(t, db.EventStatusTranscribing, saved.Status)
}

func TestFillTranscriptSkipsWhenPresent(t *testing.T) {
	g := testDB(t)
	var calls int32
	gen := itemsServer(t, "unused", &calls)
	defer gen.Close()

	event := db.Event{ID: "e1", UserID: "u1", AudioURL: "http://media/a.mp3", Transcript: "already here", Status: db.EventStatusPending}
	assert.NoError(t, g.Create(&event).Error)

	p := testPipeline(gen.URL)
	assert.NoError(t, p.FillTranscript(g, &event))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRunPendingSTTFailureMarksFailed(t *testing.T) {
	g := testDB(t)
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer media.Close()

	event := db.Event{ID: "e1", UserID: "u1", AudioURL: media.URL + "/a.mp3", EventAt: time.Now().UTC(), Status: db.EventStatusPending}
	assert.NoError(t, g.Create(&event).Error)

	p := testPipeline("http://invalid")
	assert.Equal(t, 0, p.RunPendingSTT(g, "u1"))
	assert.Equal(t, db.EventStatusFailed, eventStatus(t, g, "e1"))
}

func TestRunPendingSTTFillsTranscripts(t *testing.T) {
	g := testDB(t)
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake audio"))
	}))
	defer media.Close()
	gen := itemsServer(t, "the transcript", nil)
	defer gen.Close()

	events := []db.Event{
		{ID: "e1", UserID: "u1", AudioURL: media.URL + "/a.mp3", EventAt: time.Now().UTC(), Status: db.EventStatusPending},
		{ID: "e2", UserID: "u1", Transcript: "already transcribed", EventAt: time.Now().UTC(), Status: db.EventStatusPending},
	}
	for i := range events {
		assert.NoError(t, g.Create(&events[i]).Error)
	}

	p := testPipeline(gen.URL)
	assert.Equal(t, 1, p.RunPendingSTT(g, "u1"))

	var saved db.Event
	assert.NoError(t, g.First(&saved, "id = ?", "e1").Error)
	assert.Equal(t, "the transcript", saved.Transcript)
	assert.Equal(t, db.EventStatusTranscribing, saved.Status)
}

func TestPendingInputStats(t *testing.T) {
	g := testDB(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []db.Event{
		{ID: "e1", UserID: "u1", Transcript: "t", EventAt: base.Add(time.Hour), Status: db.EventStatusPending},
		{ID: "e2", UserID: "u1", AudioURL: "a", EventAt: base, Status: db.EventStatusTranscribing},
		{ID: "e3", UserID: "u1", EventAt: base.Add(-time.Hour), Status: db.EventStatusPending},
		{ID: "e4", UserID: "u1", Transcript: "t", EventAt: base.Add(-2 * time.Hour), Status: db.EventStatusProcessed},
	}
	for i := range events {
		assert.NoError(t, g.Create(&events[i]).Error)
	}

	count, oldest, err := PendingInputStats(g, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NotNil(t, oldest)
	assert.True(t, oldest.Equal(base))

	count, oldest, err = PendingInputStats(g, "u9")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Nil(t, oldest)
}
