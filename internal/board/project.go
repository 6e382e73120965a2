package board

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zulandar/taskboard/internal/audit"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// ProjectOpts holds parameters for creating a project.
type ProjectOpts struct {
	Name        string
	Description string
	Color       string
	Actor       string
}

// GenerateProjectID creates a unique project ID in proj-xxxxx format.
func GenerateProjectID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("board: generate project ID: %w", err)
	}
	return "proj-" + hex.EncodeToString(b)[:5], nil
}

// CreateProject inserts a project. The creator becomes its owner.
func CreateProject(db *gorm.DB, rec audit.Recorder, opts ProjectOpts) (*models.Project, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("board: project name is required: %w", ErrValidation)
	}

	var project models.Project
	err := db.Transaction(func(tx *gorm.DB) error {
		id, err := generateUniqueProjectID(tx)
		if err != nil {
			return err
		}
		project = models.Project{
			ID:          id,
			Name:        opts.Name,
			Description: opts.Description,
			Color:       opts.Color,
			OwnerID:     opts.Actor,
		}
		if err := tx.Create(&project).Error; err != nil {
			return fmt.Errorf("board: create project: %w", translateDBErr(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Emit(rec, audit.Entry{
		ActorID:    opts.Actor,
		Action:     audit.ActionProjectCreated,
		TargetType: "project",
		TargetID:   project.ID,
		Details:    fmt.Sprintf("Created project %q", project.Name),
	})
	return &project, nil
}

// GetProject retrieves a project by ID.
func GetProject(db *gorm.DB, id string) (*models.Project, error) {
	var project models.Project
	if err := db.Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("board: project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("board: get project %s: %w", id, translateDBErr(err))
	}
	return &project, nil
}

// ListProjects returns all projects, oldest first.
func ListProjects(db *gorm.DB) ([]models.Project, error) {
	var projects []models.Project
	if err := db.Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("board: list projects: %w", translateDBErr(err))
	}
	return projects, nil
}

// generateUniqueProjectID generates a project ID and retries once on
// collision.
func generateUniqueProjectID(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		id, err := GenerateProjectID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("board: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("board: failed to generate unique project ID after retries")
}
