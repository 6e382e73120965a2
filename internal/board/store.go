package board

import (
	"errors"
	"fmt"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShiftRange adds delta to the sort order of every task in the
// (projectID, status) column whose order is >= fromOrder, excluding one task.
// It issues a single UPDATE so there is no partial-application window, and it
// is the only primitive allowed to renumber siblings; both drag moves and
// direct status edits go through here.
func ShiftRange(tx *gorm.DB, projectID string, status Status, fromOrder, delta int, excludeID string) error {
	result := tx.Model(&models.Task{}).
		Where("project_id = ? AND status = ? AND sort_order >= ? AND id <> ?",
			projectID, string(status), fromOrder, excludeID).
		UpdateColumn("sort_order", gorm.Expr("sort_order + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("board: shift %s/%s from %d by %+d: %w",
			projectID, status, fromOrder, delta, translateDBErr(result.Error))
	}
	return nil
}

// ShiftSpan adds delta to the sort order of every task in the
// (projectID, status) column whose order lies in [lo, hi], excluding one
// task. Same-column moves use it to shift only the tasks between the source
// and destination positions.
func ShiftSpan(tx *gorm.DB, projectID string, status Status, lo, hi, delta int, excludeID string) error {
	result := tx.Model(&models.Task{}).
		Where("project_id = ? AND status = ? AND sort_order >= ? AND sort_order <= ? AND id <> ?",
			projectID, string(status), lo, hi, excludeID).
		UpdateColumn("sort_order", gorm.Expr("sort_order + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("board: shift %s/%s span [%d,%d] by %+d: %w",
			projectID, status, lo, hi, delta, translateDBErr(result.Error))
	}
	return nil
}

// SetPosition assigns an absolute (status, order) pair to one task.
func SetPosition(tx *gorm.DB, taskID string, status Status, order int) error {
	result := tx.Model(&models.Task{}).Where("id = ?", taskID).Updates(map[string]interface{}{
		"status":     string(status),
		"sort_order": order,
	})
	if result.Error != nil {
		return fmt.Errorf("board: position task %s: %w", taskID, translateDBErr(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("board: task %s: %w", taskID, ErrNotFound)
	}
	return nil
}

// lockTask loads a task by ID with a row lock held for the transaction.
func lockTask(tx *gorm.DB, taskID string) (*models.Task, error) {
	var task models.Task
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("board: task %s: %w", taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("board: load task %s: %w", taskID, translateDBErr(err))
	}
	return &task, nil
}

// lockColumns takes row locks on every task in the given columns, serializing
// concurrent movers that target the same column. SQLite drops the FOR UPDATE
// clause and relies on its single-writer transaction instead; MySQL needs the
// explicit locks or two movers can shift against the same stale snapshot.
func lockColumns(tx *gorm.DB, projectID string, statuses ...Status) error {
	seen := make(map[Status]bool, len(statuses))
	vals := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if !seen[s] {
			seen[s] = true
			vals = append(vals, string(s))
		}
	}

	var ids []string
	err := tx.Model(&models.Task{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ? AND status IN ?", projectID, vals).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("board: lock columns %s/%v: %w", projectID, vals, translateDBErr(err))
	}
	return nil
}

// nextOrder returns the order value one past the current tail of a column,
// 0 for an empty column.
func nextOrder(tx *gorm.DB, projectID string, status Status) (int, error) {
	var next int
	err := tx.Model(&models.Task{}).
		Where("project_id = ? AND status = ?", projectID, string(status)).
		Select("COALESCE(MAX(sort_order) + 1, 0)").
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("board: tail of %s/%s: %w", projectID, status, translateDBErr(err))
	}
	return next, nil
}
