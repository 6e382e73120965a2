package models

import "time"

// Comment is a discussion entry on a task. Comments are plain append-only
// text; editing and threading are not supported.
type Comment struct {
	ID        string `gorm:"primaryKey;size:36"`
	TaskID    string `gorm:"size:32;not null;index"`
	AuthorID  string `gorm:"size:64;not null"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}
