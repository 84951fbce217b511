package pipeline

import (
	"encoding/json"
	"time"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
)

type serializedEvent struct {
	EventID            string  `json:"event_id"`
	EventAt            string  `json:"event_at"`
	AudioURL           string  `json:"audio_url"`
	ScreenRecordingURL string  `json:"screen_recording_url"`
	RecordingURL       string  `json:"recording_url"`
	Transcript         string  `json:"transcript"`
	DurationSec        float64 `json:"duration_sec"`
}

func serializeEvents(events []db.Event) []serializedEvent {
	out := make([]serializedEvent, 0, len(events))
	for _, e := range events {
		out = append(out, serializedEvent{
			EventID:            e.ID,
			EventAt:            e.EventAt.Format(time.RFC3339),
			AudioURL:           e.AudioURL,
			ScreenRecordingURL: ScreenRecordingURL(&e),
			RecordingURL:       e.RecordingURL,
			Transcript:         e.Transcript,
			DurationSec:        e.DurationSec,
		})
	}
	return out
}

const itemsSchema = "Output JSON schema:\n" +
	"{\n" +
	"  \"items\": [\n" +
	"    {\n" +
	"      \"scrolling_idea_title\": \"string\",\n" +
	"      \"scrolling_idea_detail\": \"string\",\n" +
	"      \"todo_item\": \"string\",\n" +
	"      \"alert\": \"string\"\n" +
	"    }\n" +
	"  ]\n" +
	"}\n"

// buildItemsPrompt renders the extraction prompt. Single mode treats one
// screen-recording event as self-contained; batch mode instructs the model
// to merge and deduplicate across the event set.
func buildItemsPrompt(events []db.Event, singleMode bool) string {
	serialized, _ := json.Marshal(serializeEvents(events))
	if singleMode {
		return "You are an assistant that extracts actionable productivity signals from ONE user event.\n" +
			"Task:\n" +
			"1) Read the event content.\n" +
			"2) Decide what should become idea/todo/alert outputs.\n" +
			"3) Return strict JSON only, no markdown.\n" +
			itemsSchema +
			"Field meanings and rules:\n" +
			"- scrolling_idea_title: short headline for a potentially valuable idea from this event.\n" +
			"- scrolling_idea_detail: concise explanation of that idea; include context and intent.\n" +
			"- todo_item: one concrete, executable next action; keep imperative and specific.\n" +
			"- alert: important risk/reminder/deadline to surface prominently.\n" +
			"- If a field has no meaningful content, use empty string.\n" +
			"- You may output multiple items if the event contains multiple independent thoughts.\n" +
			"- Preserve original language tone when possible.\n" +
			"Input event JSON:\n" + string(serialized)
	}
	return "You are an assistant that extracts actionable productivity signals from MULTIPLE user events.\n" +
		"Task:\n" +
		"1) Read all events as one context window.\n" +
		"2) Merge duplicates and cluster related points.\n" +
		"3) Return strict JSON only, no markdown.\n" +
		itemsSchema +
		"Field meanings and rules:\n" +
		"- scrolling_idea_title: short headline for a synthesized idea across events.\n" +
		"- scrolling_idea_detail: compact detail that combines relevant evidence from the event set.\n" +
		"- todo_item: concrete next action derived from the strongest actionable signal.\n" +
		"- alert: urgent caution, conflict, or time-sensitive reminder detected in the batch.\n" +
		"- If a field has no meaningful content, use empty string.\n" +
		"- Prefer fewer, higher-quality items instead of repeating similar items.\n" +
		"- Do not invent facts that are not grounded in the input events.\n" +
		"Input events JSON:\n" + string(serialized)
}

type commentsInput struct {
	Ideas []struct {
		Title     string `json:"title"`
		Detail    string `json:"detail"`
		CreatedAt string `json:"created_at"`
	} `json:"ideas"`
	Todos []struct {
		Title      string `json:"title"`
		IsAccepted bool   `json:"isAccepted"`
		UpdatedAt  string `json:"updated_at"`
	} `json:"todos"`
	Alerts []struct {
		Alert    string `json:"alert"`
		NotifyAt string `json:"notify_at"`
	} `json:"alerts"`
}

// buildCommentsPrompt renders the daily narrative prompt from the day's
// extracted signals.
func buildCommentsPrompt(ideas []db.Idea, todos []db.Todo, alerts []db.Notification) string {
	var in commentsInput
	in.Ideas = make([]struct {
		Title     string `json:"title"`
		Detail    string `json:"detail"`
		CreatedAt string `json:"created_at"`
	}, 0, len(ideas))
	for _, i := range ideas {
		in.Ideas = append(in.Ideas, struct {
			Title     string `json:"title"`
			Detail    string `json:"detail"`
			CreatedAt string `json:"created_at"`
		}{i.Title, i.Content, i.CreatedAt.Format(time.RFC3339)})
	}
	in.Todos = make([]struct {
		Title      string `json:"title"`
		IsAccepted bool   `json:"isAccepted"`
		UpdatedAt  string `json:"updated_at"`
	}, 0, len(todos))
	for _, t := range todos {
		in.Todos = append(in.Todos, struct {
			Title      string `json:"title"`
			IsAccepted bool   `json:"isAccepted"`
			UpdatedAt  string `json:"updated_at"`
		}{t.Title, t.IsAccepted, t.UpdatedAt.Format(time.RFC3339)})
	}
	in.Alerts = make([]struct {
		Alert    string `json:"alert"`
		NotifyAt string `json:"notify_at"`
	}, 0, len(alerts))
	for _, a := range alerts {
		in.Alerts = append(in.Alerts, struct {
			Alert    string `json:"alert"`
			NotifyAt string `json:"notify_at"`
		}{a.Title, a.NotifyAt.Format(time.RFC3339)})
	}
	payload, _ := json.Marshal(in)

	return "You summarize a user's day for two channels based on generated ideas/todos/alerts.\n" +
		"Task:\n" +
		"1) Write one personal reflection comment.\n" +
		"2) Write community-style comments with egg personas.\n" +
		"3) Return strict JSON only, no markdown.\n" +
		"Schema:\n" +
		"{\n" +
		"  \"my_egg_comment\": \"string\",\n" +
		"  \"egg_community_comment\": [\n" +
		"    {\n" +
		"      \"egg_name\": \"string\",\n" +
		"      \"egg_comment\": \"string\"\n" +
		"    }\n" +
		"  ]\n" +
		"}\n" +
		"Field meanings and rules:\n" +
		"- my_egg_comment: one direct summary for the user, supportive and specific, based on today's signals.\n" +
		"- egg_community_comment: list of community voices.\n" +
		"- egg_name: name of the persona speaking (e.g., Focus Egg, Health Egg).\n" +
		"- egg_comment: what that persona says; must be relevant, concise, and actionable.\n" +
		"- Keep each comment short (1-2 sentences).\n" +
		"- Do not include harmful, medical, legal, or financial claims.\n" +
		"- If there is little signal, still provide gentle, neutral comments without fabricating details.\n" +
		"Input JSON:\n" + string(payload)
}
