// Package feed forwards committed activity records to chat platforms
// (Slack, Discord). Delivery is best-effort: the board never waits on, or
// fails because of, a feed sink.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zulandar/taskboard/internal/models"
)

// Adapter is the interface platform-specific sinks must satisfy.
type Adapter interface {
	// Send delivers one formatted event to the platform.
	Send(ctx context.Context, e Event) error

	// Close releases the adapter's connection.
	Close() error
}

// Event is one activity record formatted for delivery.
type Event struct {
	Action     string            // e.g. "task_moved"
	TargetType string            // "task" or "project"
	TargetID   string
	Actor      string
	Details    string
	Metadata   map[string]string
	When       time.Time
}

// FromActivity converts a stored activity row into a feed event.
func FromActivity(a models.Activity) Event {
	metadata := map[string]string{}
	if a.Metadata != "" && a.Metadata != "{}" {
		// Bad rows degrade to an event without metadata, never a lost event.
		json.Unmarshal([]byte(a.Metadata), &metadata)
	}
	return Event{
		Action:     a.Action,
		TargetType: a.TargetType,
		TargetID:   a.TargetID,
		Actor:      a.ActorID,
		Details:    a.Details,
		Metadata:   metadata,
		When:       a.CreatedAt,
	}
}

// Sidebar colors by severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
)

// ActionColor maps an action to its sidebar color.
func ActionColor(action string) string {
	switch action {
	case "task_completed", "subtask_completed":
		return ColorSuccess
	case "task_deleted", "project_deleted":
		return ColorWarning
	default:
		return ColorInfo
	}
}

// Title returns a short headline for an event.
func Title(e Event) string {
	switch e.Action {
	case "task_created":
		return fmt.Sprintf("Task %s created", e.TargetID)
	case "task_moved":
		return fmt.Sprintf("Task %s moved", e.TargetID)
	case "task_completed":
		return fmt.Sprintf("Task %s completed", e.TargetID)
	case "task_assigned":
		return fmt.Sprintf("Task %s reassigned", e.TargetID)
	case "task_deleted":
		return fmt.Sprintf("Task %s deleted", e.TargetID)
	case "comment_added":
		return fmt.Sprintf("New comment on task %s", e.TargetID)
	case "attachment_added":
		return fmt.Sprintf("File attached to task %s", e.TargetID)
	case "subtask_completed":
		return fmt.Sprintf("Checklist progress on task %s", e.TargetID)
	case "project_created":
		return fmt.Sprintf("Project %s created", e.TargetID)
	case "project_deleted":
		return fmt.Sprintf("Project %s deleted", e.TargetID)
	case ActionDigest:
		return "Board digest"
	default:
		return fmt.Sprintf("%s on %s %s", e.Action, e.TargetType, e.TargetID)
	}
}
