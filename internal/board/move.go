package board

import (
	"fmt"

	"github.com/zulandar/taskboard/internal/audit"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// MoveOpts holds parameters for moving a task to a new column position.
type MoveOpts struct {
	TaskID    string
	Status    Status // destination column
	Order     int    // destination position within the column
	ProjectID string // optional: shift columns of this project instead of the task's own
	Actor     string // acting user, for audit attribution
}

// Move relocates a task to (Status, Order), shifting displaced siblings so
// the destination gains exactly one slot and a cross-column source closes its
// gap. The shifts and the final assignment commit as one transaction; on any
// failure the board is left exactly as it was.
//
// Order values past the current column tail are accepted as-is and simply
// place the task last. Only relative order is meaningful, so the sparse tail
// is harmless; a renumber pass densifies it on demand.
//
// A successful cross-column move emits one audit event (task_completed when
// the destination is terminal, task_moved otherwise). Reordering within a
// column emits nothing, since a pure position change is not a status
// transition.
func Move(db *gorm.DB, rec audit.Recorder, opts MoveOpts) (*models.Task, error) {
	if opts.TaskID == "" {
		return nil, fmt.Errorf("board: task id is required: %w", ErrValidation)
	}
	if opts.Order < 0 {
		return nil, fmt.Errorf("board: destination order %d is negative: %w", opts.Order, ErrValidation)
	}
	if !opts.Status.Valid() {
		return nil, fmt.Errorf("board: status %q is not a column: %w", opts.Status, ErrValidation)
	}

	var (
		task models.Task
		from Status
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		loaded, err := lockTask(tx, opts.TaskID)
		if err != nil {
			return err
		}
		task = *loaded
		from = Status(task.Status)

		projectID := task.ProjectID
		if opts.ProjectID != "" && opts.ProjectID != task.ProjectID {
			var count int64
			if err := tx.Model(&models.Project{}).Where("id = ?", opts.ProjectID).Count(&count).Error; err != nil {
				return fmt.Errorf("board: check project %s: %w", opts.ProjectID, translateDBErr(err))
			}
			if count == 0 {
				return fmt.Errorf("board: project %s: %w", opts.ProjectID, ErrNotFound)
			}
			projectID = opts.ProjectID
		}

		if err := lockColumns(tx, projectID, from, opts.Status); err != nil {
			return err
		}
		return applyMove(tx, &task, projectID, opts.Status, opts.Order)
	})
	if err != nil {
		return nil, err
	}

	if from != opts.Status {
		audit.Emit(rec, moveEntry(&task, from, opts.Status, opts.Actor))
	}
	return &task, nil
}

// applyMove runs the shift passes and the final assignment. The caller holds
// the transaction and the column locks.
//
// Cross-column, the destination shift opens one slot and the source shift
// closes the vacated gap; both exclude the moving task and the source amount
// is computed against the original order captured before any mutation.
//
// Same-column, the open and close passes cancel for every task outside the
// span between the two positions, so only the net shift is applied: moving
// down pulls the tasks in (srcOrder, order] up by one, moving up pushes the
// tasks in [order, srcOrder) down by one, and moving to the task's own
// position touches nothing.
func applyMove(tx *gorm.DB, task *models.Task, projectID string, dst Status, order int) error {
	src := Status(task.Status)
	srcOrder := task.SortOrder

	if src == dst && projectID == task.ProjectID {
		switch {
		case order == srcOrder:
			return nil
		case order > srcOrder:
			if err := ShiftSpan(tx, projectID, dst, srcOrder+1, order, -1, task.ID); err != nil {
				return err
			}
		default:
			if err := ShiftSpan(tx, projectID, dst, order, srcOrder-1, 1, task.ID); err != nil {
				return err
			}
		}
	} else {
		// Open exactly one slot in the destination column.
		if err := ShiftRange(tx, projectID, dst, order, 1, task.ID); err != nil {
			return err
		}
		// Close the gap the task leaves behind.
		if src != dst {
			if err := ShiftRange(tx, projectID, src, srcOrder+1, -1, task.ID); err != nil {
				return err
			}
		}
	}

	if err := SetPosition(tx, task.ID, dst, order); err != nil {
		return err
	}
	task.Status = string(dst)
	task.SortOrder = order
	return nil
}

// moveEntry builds the audit entry for a committed cross-column move.
func moveEntry(task *models.Task, from, to Status, actor string) audit.Entry {
	action := audit.ActionTaskMoved
	if to.Terminal() {
		action = audit.ActionTaskCompleted
	}
	return audit.Entry{
		ActorID:    actor,
		Action:     action,
		TargetType: "task",
		TargetID:   task.ID,
		Details:    fmt.Sprintf("Moved %q from %s to %s", task.Title, from, to),
		Metadata:   map[string]string{"from": string(from), "to": string(to)},
	}
}
