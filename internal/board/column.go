package board

import (
	"fmt"
	"log"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// ListColumn returns the tasks of one (project, status) column sorted by
// order ascending. Tasks sharing an order value, which a healthy board never
// has, sort newest-first, so drift degrades to a deterministic display
// instead of a shuffle. Detected duplicates are logged for the renumber pass.
func ListColumn(db *gorm.DB, projectID string, status Status) ([]models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("board: status %q is not a column: %w", status, ErrValidation)
	}

	var tasks []models.Task
	err := db.Preload("Assignees").
		Preload("Subtasks", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("project_id = ? AND status = ?", projectID, string(status)).
		Order("sort_order ASC, created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("board: list %s/%s: %w", projectID, status, translateDBErr(err))
	}

	for i := 1; i < len(tasks); i++ {
		if tasks[i].SortOrder == tasks[i-1].SortOrder {
			log.Printf("board: column %s/%s has duplicate order %d (%s, %s)",
				projectID, status, tasks[i].SortOrder, tasks[i-1].ID, tasks[i].ID)
		}
	}
	return tasks, nil
}

// Column is one rendered board column.
type Column struct {
	Status Status        `json:"status"`
	Tasks  []models.Task `json:"tasks"`
}

// View is a whole-board snapshot for one project, columns in board order.
type View struct {
	ProjectID string   `json:"projectId"`
	Columns   []Column `json:"columns"`
}

// BoardView loads all four columns of a project in a single query.
func BoardView(db *gorm.DB, projectID string) (*View, error) {
	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("board: check project %s: %w", projectID, translateDBErr(err))
	}
	if count == 0 {
		return nil, fmt.Errorf("board: project %s: %w", projectID, ErrNotFound)
	}

	var tasks []models.Task
	err := db.Preload("Assignees").
		Preload("Subtasks", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("project_id = ?", projectID).
		Order("status ASC, sort_order ASC, created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("board: load board %s: %w", projectID, translateDBErr(err))
	}

	byStatus := make(map[Status][]models.Task, len(AllStatuses))
	for _, task := range tasks {
		s := Status(task.Status)
		byStatus[s] = append(byStatus[s], task)
	}

	view := &View{ProjectID: projectID, Columns: make([]Column, 0, len(AllStatuses))}
	for _, s := range AllStatuses {
		col := byStatus[s]
		if col == nil {
			col = []models.Task{}
		}
		view.Columns = append(view.Columns, Column{Status: s, Tasks: col})
	}
	return view, nil
}
