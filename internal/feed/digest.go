package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// ActionDigest marks a synthetic digest event, never stored in the activity
// table.
const ActionDigest = "board_digest"

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// Report holds activity counts for a digest period.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Created     int
	Moved       int
	Completed   int
	Assigned    int
	Deleted     int
	Other       int
}

// Total returns the number of activity records in the period.
func (r *Report) Total() int {
	return r.Created + r.Moved + r.Completed + r.Assigned + r.Deleted + r.Other
}

// BuildDigest summarises the activity of a period as one event. Returns nil
// when the period was quiet.
func BuildDigest(db *gorm.DB, since, until time.Time) (*Event, error) {
	report, err := buildReport(db, since, until)
	if err != nil {
		return nil, err
	}
	if report.Total() == 0 {
		return nil, nil
	}

	return &Event{
		Action:  ActionDigest,
		Details: FormatReport(report),
		When:    until,
	}, nil
}

// buildReport counts activity rows per action within the period.
func buildReport(db *gorm.DB, since, until time.Time) (*Report, error) {
	type row struct {
		Action string
		Count  int
	}
	var rows []row
	err := db.Model(&models.Activity{}).
		Select("action, COUNT(*) as count").
		Where("created_at >= ? AND created_at < ?", since, until).
		Group("action").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("feed: digest report: %w", err)
	}

	report := &Report{PeriodStart: since, PeriodEnd: until}
	for _, r := range rows {
		switch r.Action {
		case "task_created":
			report.Created += r.Count
		case "task_moved":
			report.Moved += r.Count
		case "task_completed":
			report.Completed += r.Count
		case "task_assigned":
			report.Assigned += r.Count
		case "task_deleted", "project_deleted":
			report.Deleted += r.Count
		default:
			report.Other += r.Count
		}
	}
	return report, nil
}

// FormatReport renders a digest report as chat text.
func FormatReport(r *Report) string {
	var parts []string
	add := func(n int, noun string) {
		if n == 1 {
			parts = append(parts, fmt.Sprintf("1 task %s", noun))
		} else if n > 1 {
			parts = append(parts, fmt.Sprintf("%d tasks %s", n, noun))
		}
	}
	add(r.Created, "created")
	add(r.Moved, "moved")
	add(r.Completed, "completed")
	add(r.Assigned, "reassigned")
	add(r.Deleted, "deleted")
	if r.Other > 0 {
		parts = append(parts, fmt.Sprintf("%d other changes", r.Other))
	}
	return strings.Join(parts, ", ")
}
