package board

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zulandar/taskboard/internal/audit"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// AddComment appends a comment to a task.
func AddComment(db *gorm.DB, rec audit.Recorder, taskID, body, actor string) (*models.Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("board: comment body is required: %w", ErrValidation)
	}

	task, err := Get(db, taskID)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:       uuid.NewString(),
		TaskID:   task.ID,
		AuthorID: actor,
		Body:     body,
	}
	if err := db.Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("board: comment on %s: %w", taskID, translateDBErr(err))
	}

	audit.Emit(rec, audit.Entry{
		ActorID:    actor,
		Action:     audit.ActionCommentAdded,
		TargetType: "task",
		TargetID:   task.ID,
		Details:    fmt.Sprintf("Commented on task %q", task.Title),
	})
	return &comment, nil
}

// ListComments returns a task's comments, oldest first.
func ListComments(db *gorm.DB, taskID string) ([]models.Comment, error) {
	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("board: check task %s: %w", taskID, translateDBErr(err))
	}
	if count == 0 {
		return nil, fmt.Errorf("board: task %s: %w", taskID, ErrNotFound)
	}

	var comments []models.Comment
	if err := db.Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("board: list comments of %s: %w", taskID, translateDBErr(err))
	}
	return comments, nil
}
