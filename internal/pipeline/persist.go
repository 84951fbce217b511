package pipeline

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
	"github.com/ElaineQian09/eggtart-backend/internal/db"
)

// ExtractedItem is one object from the extraction response. Every field is
// optional; empty fields produce no rows.
type ExtractedItem struct {
	IdeaTitle  string `json:"scrolling_idea_title"`
	IdeaDetail string `json:"scrolling_idea_detail"`
	TodoItem   string `json:"todo_item"`
	Alert      string `json:"alert"`
}

// persistItems writes idea/todo/alert rows for the extracted items and
// returns the number of rows created. An idea is never created with both
// title and content empty. sourceEventID is "" for batch extraction, where
// items have no single source.
func persistItems(g *gorm.DB, userID, sourceEventID string, items []ExtractedItem) (int, error) {
	created := 0
	now := time.Now().UTC()
	for _, item := range items {
		ideaTitle := common.SafeText(item.IdeaTitle)
		ideaDetail := common.SafeText(item.IdeaDetail)
		todoItem := common.SafeText(item.TodoItem)
		alert := common.SafeText(item.Alert)

		if ideaTitle != "" || ideaDetail != "" {
			content := ideaDetail
			if content == "" {
				content = ideaTitle
			}
			idea := db.Idea{
				ID:            uuid.NewString(),
				UserID:        userID,
				SourceEventID: sourceEventID,
				Title:         ideaTitle,
				Content:       content,
			}
			if err := g.Create(&idea).Error; err != nil {
				return created, err
			}
			created++
		}
		if todoItem != "" {
			todo := db.Todo{
				ID:     uuid.NewString(),
				UserID: userID,
				Title:  todoItem,
			}
			if err := g.Create(&todo).Error; err != nil {
				return created, err
			}
			created++
		}
		if alert != "" {
			n := db.Notification{
				ID:       uuid.NewString(),
				UserID:   userID,
				Title:    alert,
				NotifyAt: now,
			}
			if err := g.Create(&n).Error; err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// upsertComment inserts a comment unless a logically identical one already
// exists. The dedup key is (user, date, isCommunity, content, eggName,
// eggComment); repeated invocations are idempotent.
func upsertComment(g *gorm.DB, userID, content, date string, isCommunity bool, eggName, eggComment string) error {
	text := common.SafeText(content)
	if text == "" {
		return nil
	}
	nameText := common.SafeText(eggName)
	commentText := common.SafeText(eggComment)
	if !isCommunity {
		nameText = ""
		commentText = ""
	}
	var count int64
	err := g.Model(&db.Comment{}).Where(
		"user_id = ? AND date = ? AND is_community = ? AND content = ? AND egg_name = ? AND egg_comment = ?",
		userID, date, isCommunity, text, nameText, commentText,
	).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return g.Create(&db.Comment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Content:     text,
		EggName:     nameText,
		EggComment:  commentText,
		Date:        date,
		IsCommunity: isCommunity,
	}).Error
}

// notifyCommentsReady emits the one-shot "comments ready" notification,
// deduplicated by title text.
func notifyCommentsReady(g *gorm.DB, userID, date string) error {
	title := "Comments ready for " + date
	var count int64
	err := g.Model(&db.Notification{}).
		Where("user_id = ? AND title = ?", userID, title).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return g.Create(&db.Notification{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    title,
		NotifyAt: time.Now().UTC(),
	}).Error
}
