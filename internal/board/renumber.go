package board

import (
	"fmt"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// Drift describes one duplicated order value within a column.
type Drift struct {
	Status  Status
	Order   int
	TaskIDs []string
}

// CheckColumn reports duplicate order values in one column. An empty result
// means the uniqueness invariant holds there.
func CheckColumn(db *gorm.DB, projectID string, status Status) ([]Drift, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("board: status %q is not a column: %w", status, ErrValidation)
	}

	type row struct {
		SortOrder int
		ID        string
	}
	var rows []row
	err := db.Model(&models.Task{}).
		Select("sort_order, id").
		Where("project_id = ? AND status = ?", projectID, string(status)).
		Where("sort_order IN (?)", db.Model(&models.Task{}).
			Select("sort_order").
			Where("project_id = ? AND status = ?", projectID, string(status)).
			Group("sort_order").
			Having("COUNT(*) > 1")).
		Order("sort_order ASC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("board: check %s/%s: %w", projectID, status, translateDBErr(err))
	}

	var drifts []Drift
	for _, r := range rows {
		if n := len(drifts); n > 0 && drifts[n-1].Order == r.SortOrder {
			drifts[n-1].TaskIDs = append(drifts[n-1].TaskIDs, r.ID)
			continue
		}
		drifts = append(drifts, Drift{Status: status, Order: r.SortOrder, TaskIDs: []string{r.ID}})
	}
	return drifts, nil
}

// Renumber rewrites one column densely (0..N-1), preserving the display
// order including the duplicate tie-break. Safe to run at any time: only
// relative order carries meaning. Returns the number of tasks renumbered.
func Renumber(db *gorm.DB, projectID string, status Status) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("board: status %q is not a column: %w", status, ErrValidation)
	}

	changed := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockColumns(tx, projectID, status); err != nil {
			return err
		}

		var tasks []models.Task
		if err := tx.Where("project_id = ? AND status = ?", projectID, string(status)).
			Order("sort_order ASC, created_at DESC").
			Find(&tasks).Error; err != nil {
			return fmt.Errorf("board: load %s/%s: %w", projectID, status, translateDBErr(err))
		}

		for i, task := range tasks {
			if task.SortOrder == i {
				continue
			}
			if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).
				UpdateColumn("sort_order", i).Error; err != nil {
				return fmt.Errorf("board: renumber %s: %w", task.ID, translateDBErr(err))
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// RenumberProject densifies every column of a project. Returns the total
// number of tasks renumbered.
func RenumberProject(db *gorm.DB, projectID string) (int, error) {
	total := 0
	for _, status := range AllStatuses {
		n, err := Renumber(db, projectID, status)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
