package db

import (
	"fmt"
	"time"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.Subtask{},
		&models.Attachment{},
		&models.Comment{},
		&models.Activity{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedDemo inserts a small demo project with a populated board, for local
// development. No-op when the project already exists.
func SeedDemo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", "proj-demo").Count(&count).Error; err != nil {
		return fmt.Errorf("db: check demo project: %w", err)
	}
	if count > 0 {
		return nil
	}

	project := models.Project{
		ID:          "proj-demo",
		Name:        "Demo Board",
		Description: "Seeded project for local development",
		Color:       "#2196f3",
		OwnerID:     "demo",
	}
	if err := db.Create(&project).Error; err != nil {
		return fmt.Errorf("db: seed project: %w", err)
	}

	seed := []struct {
		id       string
		title    string
		status   string
		order    int
		priority string
	}{
		{"task-d0001", "Sketch the onboarding flow", "todo", 0, "high"},
		{"task-d0002", "Wire up billing webhooks", "todo", 1, "medium"},
		{"task-d0003", "Fix flaky session test", "todo", 2, "low"},
		{"task-d0004", "Migrate avatar uploads", "in_progress", 0, "medium"},
		{"task-d0005", "Rate-limit the search endpoint", "in_progress", 1, "high"},
		{"task-d0006", "Dark mode palette", "review", 0, "low"},
		{"task-d0007", "Ship the CSV export", "done", 0, "medium"},
	}
	now := time.Now()
	for _, s := range seed {
		task := models.Task{
			ID:        s.id,
			ProjectID: project.ID,
			Title:     s.title,
			Status:    s.status,
			SortOrder: s.order,
			Priority:  s.priority,
			CreatedBy: "demo",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := db.Create(&task).Error; err != nil {
			return fmt.Errorf("db: seed task %s: %w", s.id, err)
		}
	}
	return nil
}
