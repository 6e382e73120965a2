package models

import "time"

// Activity is an immutable audit record. Rows are append-only and survive
// deletion of their target, so the trail stays intact after cleanup.
type Activity struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ActorID    string    `gorm:"size:64;not null;index"`
	Action     string    `gorm:"size:32;not null;index"`
	TargetType string    `gorm:"size:16;not null"`
	TargetID   string    `gorm:"size:32;not null;index"`
	Details    string    `gorm:"type:text"`
	Metadata   string    `gorm:"type:json"`
	CreatedAt  time.Time
}
