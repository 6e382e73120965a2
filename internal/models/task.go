package models

import "time"

// Task is the core work item on the board. SortOrder is unique within a
// (project, status) column, not globally.
type Task struct {
	ID          string     `gorm:"primaryKey;size:32"`
	ProjectID   string     `gorm:"size:32;not null;index:idx_tasks_column"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"type:text"`
	Status      string     `gorm:"size:16;default:todo;index:idx_tasks_column"`
	SortOrder   int        `gorm:"not null;default:0"`
	Priority    string     `gorm:"size:8;default:medium"`
	Deadline    *time.Time
	CreatedBy   string     `gorm:"size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Project     Project      `gorm:"foreignKey:ProjectID"`
	Assignees   []TaskAssignee `gorm:"foreignKey:TaskID"`
	Subtasks    []Subtask    `gorm:"foreignKey:TaskID"`
	Attachments []Attachment `gorm:"foreignKey:TaskID"`
}

// TaskAssignee links a task to an assigned user. Identity lives outside this
// service; UserID is whatever the caller's auth layer hands us.
type TaskAssignee struct {
	TaskID string `gorm:"primaryKey;size:32"`
	UserID string `gorm:"primaryKey;size:64"`
}

// Subtask is a checklist entry within a task, ordered by Position.
type Subtask struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TaskID    string `gorm:"size:32;not null;index"`
	Title     string `gorm:"not null"`
	Completed bool   `gorm:"default:false"`
	Position  int    `gorm:"default:0"`
}

// Attachment holds file metadata for a task. The bytes themselves live in
// external storage; we only keep the pointer.
type Attachment struct {
	ID         string    `gorm:"primaryKey;size:36"`
	TaskID     string    `gorm:"size:32;not null;index"`
	FileName   string    `gorm:"size:256;not null"`
	MimeType   string    `gorm:"size:128"`
	Size       int64     `gorm:"default:0"`
	URL        string    `gorm:"size:512"`
	UploadedBy string    `gorm:"size:64"`
	CreatedAt  time.Time
}
