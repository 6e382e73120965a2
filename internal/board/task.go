package board

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/taskboard/internal/audit"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// Priorities recognized on tasks.
var validPriorities = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

// SubtaskInput is one checklist entry supplied on create or update.
type SubtaskInput struct {
	Title     string
	Completed bool
}

// CreateOpts holds parameters for creating a task.
type CreateOpts struct {
	ProjectID   string
	Title       string
	Description string
	Priority    string // low, medium, high, critical; defaults to medium
	Deadline    *time.Time
	Assignees   []string
	Subtasks    []SubtaskInput
	Actor       string
}

// GenerateTaskID creates a unique task ID in task-xxxxx format (5-char hex).
func GenerateTaskID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("board: generate task ID: %w", err)
	}
	return "task-" + hex.EncodeToString(b)[:5], nil
}

// Create inserts a task at the tail of its project's todo column. New tasks
// always land in todo; moving them elsewhere is Move's job.
func Create(db *gorm.DB, rec audit.Recorder, opts CreateOpts) (*models.Task, error) {
	if opts.Title == "" {
		return nil, fmt.Errorf("board: title is required: %w", ErrValidation)
	}
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("board: project id is required: %w", ErrValidation)
	}
	if opts.Priority == "" {
		opts.Priority = "medium"
	}
	if !validPriorities[opts.Priority] {
		return nil, fmt.Errorf("board: priority %q is not recognized: %w", opts.Priority, ErrValidation)
	}

	var task models.Task
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", opts.ProjectID).Count(&count).Error; err != nil {
			return fmt.Errorf("board: check project %s: %w", opts.ProjectID, translateDBErr(err))
		}
		if count == 0 {
			return fmt.Errorf("board: project %s: %w", opts.ProjectID, ErrNotFound)
		}

		if err := lockColumns(tx, opts.ProjectID, StatusTodo); err != nil {
			return err
		}
		order, err := nextOrder(tx, opts.ProjectID, StatusTodo)
		if err != nil {
			return err
		}

		id, err := generateUniqueTaskID(tx)
		if err != nil {
			return err
		}

		task = models.Task{
			ID:          id,
			ProjectID:   opts.ProjectID,
			Title:       opts.Title,
			Description: opts.Description,
			Status:      string(StatusTodo),
			SortOrder:   order,
			Priority:    opts.Priority,
			Deadline:    opts.Deadline,
			CreatedBy:   opts.Actor,
		}
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("board: create task: %w", translateDBErr(err))
		}

		if err := replaceAssignees(tx, task.ID, opts.Assignees); err != nil {
			return err
		}
		return replaceSubtasks(tx, task.ID, opts.Subtasks)
	})
	if err != nil {
		return nil, err
	}

	audit.Emit(rec, audit.Entry{
		ActorID:    opts.Actor,
		Action:     audit.ActionTaskCreated,
		TargetType: "task",
		TargetID:   task.ID,
		Details:    fmt.Sprintf("Created task %q", task.Title),
		Metadata:   map[string]string{"projectId": opts.ProjectID},
	})
	if len(opts.Assignees) > 0 {
		audit.Emit(rec, audit.Entry{
			ActorID:    opts.Actor,
			Action:     audit.ActionTaskAssigned,
			TargetType: "task",
			TargetID:   task.ID,
			Details:    fmt.Sprintf("Assigned task %q", task.Title),
			Metadata:   map[string]string{"assignees": strings.Join(opts.Assignees, ",")},
		})
	}
	return &task, nil
}

// Get retrieves a task by ID, preloading assignees, subtasks and attachments.
func Get(db *gorm.DB, id string) (*models.Task, error) {
	var task models.Task
	err := db.Preload("Assignees").
		Preload("Subtasks", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Attachments").
		Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("board: task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("board: get task %s: %w", id, translateDBErr(err))
	}
	return &task, nil
}

// ListFilters holds optional filters for listing tasks across columns.
type ListFilters struct {
	ProjectID string
	Status    string
	Priority  string
	Assignee  string
	Search    string
}

// List returns tasks matching the filters in board order: status, then
// position within the column.
func List(db *gorm.DB, filters ListFilters) ([]models.Task, error) {
	q := db.Model(&models.Task{})

	if filters.ProjectID != "" {
		q = q.Where("project_id = ?", filters.ProjectID)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Priority != "" {
		q = q.Where("priority = ?", filters.Priority)
	}
	if filters.Assignee != "" {
		q = q.Where("id IN (?)", db.Model(&models.TaskAssignee{}).
			Select("task_id").Where("user_id = ?", filters.Assignee))
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	var tasks []models.Task
	if err := q.Preload("Assignees").
		Order("status ASC, sort_order ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("board: list tasks: %w", translateDBErr(err))
	}
	return tasks, nil
}

// UpdateOpts holds optional field edits; nil means leave unchanged. A status
// change routes through the same shift primitive as Move, appending the task
// to the destination column's tail.
type UpdateOpts struct {
	Title         *string
	Description   *string
	Priority      *string
	Deadline      *time.Time
	ClearDeadline bool
	Status        *Status
	Assignees     *[]string
	Subtasks      *[]SubtaskInput
	Actor         string
}

// Update applies field edits to a task and emits exactly one summary audit
// event for the whole operation: a status change wins over a reassignment,
// which wins over a plain edit.
func Update(db *gorm.DB, rec audit.Recorder, id string, opts UpdateOpts) (*models.Task, error) {
	if opts.Priority != nil && !validPriorities[*opts.Priority] {
		return nil, fmt.Errorf("board: priority %q is not recognized: %w", *opts.Priority, ErrValidation)
	}
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, fmt.Errorf("board: status %q is not a column: %w", *opts.Status, ErrValidation)
	}

	var (
		task             models.Task
		from             Status
		statusChanged    bool
		assigneesChanged bool
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		loaded, err := lockTask(tx, id)
		if err != nil {
			return err
		}
		task = *loaded
		from = Status(task.Status)

		updates := map[string]interface{}{}
		if opts.Title != nil {
			if *opts.Title == "" {
				return fmt.Errorf("board: title cannot be empty: %w", ErrValidation)
			}
			updates["title"] = *opts.Title
			task.Title = *opts.Title
		}
		if opts.Description != nil {
			updates["description"] = *opts.Description
			task.Description = *opts.Description
		}
		if opts.Priority != nil {
			updates["priority"] = *opts.Priority
			task.Priority = *opts.Priority
		}
		if opts.ClearDeadline {
			updates["deadline"] = nil
			task.Deadline = nil
		} else if opts.Deadline != nil {
			updates["deadline"] = *opts.Deadline
			task.Deadline = opts.Deadline
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("board: update task %s: %w", id, translateDBErr(err))
			}
		}

		if opts.Status != nil && *opts.Status != from {
			statusChanged = true
			if err := lockColumns(tx, task.ProjectID, from, *opts.Status); err != nil {
				return err
			}
			tail, err := nextOrder(tx, task.ProjectID, *opts.Status)
			if err != nil {
				return err
			}
			if err := applyMove(tx, &task, task.ProjectID, *opts.Status, tail); err != nil {
				return err
			}
		}

		if opts.Assignees != nil {
			current, err := assigneeSet(tx, id)
			if err != nil {
				return err
			}
			if !sameSet(current, *opts.Assignees) {
				assigneesChanged = true
				if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
					return fmt.Errorf("board: clear assignees of %s: %w", id, translateDBErr(err))
				}
				if err := replaceAssignees(tx, id, *opts.Assignees); err != nil {
					return err
				}
			}
		}

		if opts.Subtasks != nil {
			if err := tx.Where("task_id = ?", id).Delete(&models.Subtask{}).Error; err != nil {
				return fmt.Errorf("board: clear subtasks of %s: %w", id, translateDBErr(err))
			}
			if err := replaceSubtasks(tx, id, *opts.Subtasks); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := audit.Entry{
		ActorID:    opts.Actor,
		TargetType: "task",
		TargetID:   task.ID,
	}
	switch {
	case statusChanged:
		to := Status(task.Status)
		entry.Action = audit.ActionFor(true, to.Terminal(), assigneesChanged)
		entry.Details = fmt.Sprintf("Moved %q from %s to %s", task.Title, from, to)
		entry.Metadata = map[string]string{"from": string(from), "to": string(to)}
	case assigneesChanged:
		entry.Action = audit.ActionTaskAssigned
		entry.Details = fmt.Sprintf("Reassigned task %q", task.Title)
		entry.Metadata = map[string]string{"assignees": strings.Join(*opts.Assignees, ",")}
	default:
		entry.Action = audit.ActionTaskUpdated
		entry.Details = fmt.Sprintf("Updated task %q", task.Title)
	}
	audit.Emit(rec, entry)

	return &task, nil
}

// Delete removes a task and its child rows. The vacated order slot is left
// as a gap; sorting only depends on relative order, and the renumber pass
// densifies on demand. Activity rows for the task are retained.
func Delete(db *gorm.DB, rec audit.Recorder, id, actor string) error {
	var title string
	err := db.Transaction(func(tx *gorm.DB) error {
		task, err := lockTask(tx, id)
		if err != nil {
			return err
		}
		title = task.Title
		return deleteTaskRows(tx, id)
	})
	if err != nil {
		return err
	}

	audit.Emit(rec, audit.Entry{
		ActorID:    actor,
		Action:     audit.ActionTaskDeleted,
		TargetType: "task",
		TargetID:   id,
		Details:    fmt.Sprintf("Deleted task %q", title),
	})
	return nil
}

// DeleteProject removes a project and cascades to all its tasks. There is no
// column state worth preserving on a dead project; activity rows stay.
func DeleteProject(db *gorm.DB, rec audit.Recorder, projectID, actor string) error {
	var name string
	var taskCount int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Where("id = ?", projectID).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("board: project %s: %w", projectID, ErrNotFound)
			}
			return fmt.Errorf("board: load project %s: %w", projectID, translateDBErr(err))
		}
		name = project.Name

		var ids []string
		if err := tx.Model(&models.Task{}).Where("project_id = ?", projectID).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("board: list project tasks %s: %w", projectID, translateDBErr(err))
		}
		taskCount = int64(len(ids))
		for _, taskID := range ids {
			if err := deleteTaskRows(tx, taskID); err != nil {
				return err
			}
		}

		if err := tx.Delete(&models.Project{}, "id = ?", projectID).Error; err != nil {
			return fmt.Errorf("board: delete project %s: %w", projectID, translateDBErr(err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Emit(rec, audit.Entry{
		ActorID:    actor,
		Action:     audit.ActionProjectDeleted,
		TargetType: "project",
		TargetID:   projectID,
		Details:    fmt.Sprintf("Deleted project %q", name),
		Metadata:   map[string]string{"tasks": fmt.Sprintf("%d", taskCount)},
	})
	return nil
}

// AttachmentInput holds metadata for a file attached to a task. The file
// itself lives in external storage.
type AttachmentInput struct {
	FileName string
	MimeType string
	Size     int64
	URL      string
	Actor    string
}

// AddAttachment appends attachment metadata to a task.
func AddAttachment(db *gorm.DB, rec audit.Recorder, taskID string, in AttachmentInput) (*models.Attachment, error) {
	if in.FileName == "" {
		return nil, fmt.Errorf("board: attachment file name is required: %w", ErrValidation)
	}

	task, err := Get(db, taskID)
	if err != nil {
		return nil, err
	}

	attachment := models.Attachment{
		ID:         uuid.NewString(),
		TaskID:     task.ID,
		FileName:   in.FileName,
		MimeType:   in.MimeType,
		Size:       in.Size,
		URL:        in.URL,
		UploadedBy: in.Actor,
	}
	if err := db.Create(&attachment).Error; err != nil {
		return nil, fmt.Errorf("board: attach to %s: %w", taskID, translateDBErr(err))
	}

	audit.Emit(rec, audit.Entry{
		ActorID:    in.Actor,
		Action:     audit.ActionAttachmentAdded,
		TargetType: "task",
		TargetID:   task.ID,
		Details:    fmt.Sprintf("Attached %q to task %q", in.FileName, task.Title),
	})
	return &attachment, nil
}

// ToggleSubtask flips one checklist entry's completed flag. Completing an
// entry is audited as subtask_completed; unchecking is a plain update.
func ToggleSubtask(db *gorm.DB, rec audit.Recorder, taskID string, subtaskID uint, actor string) (*models.Subtask, error) {
	var (
		subtask models.Subtask
		title   string
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		task, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		title = task.Title

		if err := tx.Where("id = ? AND task_id = ?", subtaskID, taskID).
			First(&subtask).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("board: subtask %d of %s: %w", subtaskID, taskID, ErrNotFound)
			}
			return fmt.Errorf("board: load subtask %d: %w", subtaskID, translateDBErr(err))
		}

		subtask.Completed = !subtask.Completed
		if err := tx.Model(&models.Subtask{}).Where("id = ?", subtask.ID).
			UpdateColumn("completed", subtask.Completed).Error; err != nil {
			return fmt.Errorf("board: toggle subtask %d: %w", subtaskID, translateDBErr(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := audit.ActionTaskUpdated
	details := fmt.Sprintf("Unchecked %q on task %q", subtask.Title, title)
	if subtask.Completed {
		action = audit.ActionSubtaskCompleted
		details = fmt.Sprintf("Completed %q on task %q", subtask.Title, title)
	}
	audit.Emit(rec, audit.Entry{
		ActorID:    actor,
		Action:     action,
		TargetType: "task",
		TargetID:   taskID,
		Details:    details,
	})
	return &subtask, nil
}

// deleteTaskRows removes a task and its dependent rows inside a transaction.
func deleteTaskRows(tx *gorm.DB, taskID string) error {
	for _, m := range []interface{}{&models.TaskAssignee{}, &models.Subtask{}, &models.Attachment{}, &models.Comment{}} {
		if err := tx.Where("task_id = ?", taskID).Delete(m).Error; err != nil {
			return fmt.Errorf("board: delete children of %s: %w", taskID, translateDBErr(err))
		}
	}
	if err := tx.Delete(&models.Task{}, "id = ?", taskID).Error; err != nil {
		return fmt.Errorf("board: delete task %s: %w", taskID, translateDBErr(err))
	}
	return nil
}

// replaceAssignees inserts assignee rows for a task. Blank and repeated IDs
// are skipped; (task, user) is the primary key.
func replaceAssignees(tx *gorm.DB, taskID string, userIDs []string) error {
	seen := make(map[string]bool, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		row := models.TaskAssignee{TaskID: taskID, UserID: userID}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("board: assign %s to %s: %w", userID, taskID, translateDBErr(err))
		}
	}
	return nil
}

// replaceSubtasks inserts subtask rows for a task, positions in input order.
func replaceSubtasks(tx *gorm.DB, taskID string, subtasks []SubtaskInput) error {
	for i, s := range subtasks {
		if s.Title == "" {
			return fmt.Errorf("board: subtask title is required: %w", ErrValidation)
		}
		row := models.Subtask{TaskID: taskID, Title: s.Title, Completed: s.Completed, Position: i}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("board: add subtask to %s: %w", taskID, translateDBErr(err))
		}
	}
	return nil
}

// assigneeSet returns the current assignee user IDs of a task.
func assigneeSet(tx *gorm.DB, taskID string) ([]string, error) {
	var ids []string
	if err := tx.Model(&models.TaskAssignee{}).Where("task_id = ?", taskID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("board: assignees of %s: %w", taskID, translateDBErr(err))
	}
	return ids, nil
}

// sameSet reports whether two ID lists contain the same members the same
// number of times, order ignored. Counting matters: a membership-only check
// would call [x, y] and [x, x] equal and skip the reassignment audit.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}

// generateUniqueTaskID generates a task ID and retries once on collision.
func generateUniqueTaskID(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		id, err := GenerateTaskID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("board: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("board: failed to generate unique task ID after retries")
}
