// Package audit records immutable activity entries for board mutations.
package audit

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// Action names written to the activity trail.
const (
	ActionTaskCreated      = "task_created"
	ActionTaskMoved        = "task_moved"
	ActionTaskCompleted    = "task_completed"
	ActionTaskAssigned     = "task_assigned"
	ActionTaskUpdated      = "task_updated"
	ActionTaskDeleted      = "task_deleted"
	ActionCommentAdded     = "comment_added"
	ActionAttachmentAdded  = "attachment_added"
	ActionSubtaskCompleted = "subtask_completed"
	ActionProjectCreated   = "project_created"
	ActionProjectDeleted   = "project_deleted"
)

// Entry is one activity event before persistence.
type Entry struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Details    string
	Metadata   map[string]string
}

// Recorder persists audit entries. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(e Entry) error
}

// Emit records an entry best-effort: a nil recorder or a failed write is
// logged and swallowed, never surfaced to the mutation that triggered it.
func Emit(rec Recorder, e Entry) {
	if rec == nil {
		return
	}
	if err := rec.Record(e); err != nil {
		log.Printf("audit: record %s on %s/%s: %v", e.Action, e.TargetType, e.TargetID, err)
	}
}

// ActionFor picks the single summary action for a task mutation. Status
// changes win over assignee changes; one event per operation, not one per
// changed field.
func ActionFor(statusChanged, terminal, assigneesChanged bool) string {
	switch {
	case statusChanged && terminal:
		return ActionTaskCompleted
	case statusChanged:
		return ActionTaskMoved
	case assigneesChanged:
		return ActionTaskAssigned
	default:
		return ActionTaskUpdated
	}
}

// DBRecorder writes activity rows through GORM.
type DBRecorder struct {
	db *gorm.DB
}

// NewDBRecorder creates a DBRecorder.
func NewDBRecorder(db *gorm.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

// Record inserts one activity row.
func (r *DBRecorder) Record(e Entry) error {
	metadata := "{}"
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("audit: marshal metadata: %w", err)
		}
		metadata = string(data)
	}

	activity := models.Activity{
		ID:         uuid.NewString(),
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Details:    e.Details,
		Metadata:   metadata,
	}
	if err := r.db.Create(&activity).Error; err != nil {
		return fmt.Errorf("audit: write activity: %w", err)
	}
	return nil
}
