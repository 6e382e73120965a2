package models

import "time"

// Project owns a collection of tasks. Deleting a project cascades to its
// tasks; activity rows are kept for the audit trail.
type Project struct {
	ID          string `gorm:"primaryKey;size:32"`
	Name        string `gorm:"not null"`
	Description string `gorm:"type:text"`
	Color       string `gorm:"size:16"`
	OwnerID     string `gorm:"size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tasks []Task `gorm:"foreignKey:ProjectID"`
}
