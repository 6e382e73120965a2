package feed

import (
	"context"
	"testing"
	"time"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// Every :memory: connection is its own database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Activity{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// mockAdapter records every event it is handed.
type mockAdapter struct {
	events   []Event
	sendErr  error
	closed   bool
	closeErr error
}

func (m *mockAdapter) Send(ctx context.Context, e Event) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockAdapter) Close() error {
	m.closed = true
	return m.closeErr
}

func insertActivity(t *testing.T, db *gorm.DB, id, action, targetID string, metadata string, at time.Time) {
	t.Helper()
	a := models.Activity{
		ID:         id,
		ActorID:    "user-1",
		Action:     action,
		TargetType: "task",
		TargetID:   targetID,
		Metadata:   metadata,
		CreatedAt:  at,
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("insert activity: %v", err)
	}
}

func TestFromActivity(t *testing.T) {
	a := models.Activity{
		ID:         "act-1",
		ActorID:    "user-1",
		Action:     "task_moved",
		TargetType: "task",
		TargetID:   "task-abc12",
		Details:    "moved",
		Metadata:   `{"from":"todo","to":"done"}`,
	}
	e := FromActivity(a)
	if e.Action != "task_moved" || e.Actor != "user-1" || e.TargetID != "task-abc12" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.Metadata["from"] != "todo" || e.Metadata["to"] != "done" {
		t.Fatalf("metadata not parsed: %+v", e.Metadata)
	}
}

func TestFromActivity_BadMetadata(t *testing.T) {
	e := FromActivity(models.Activity{Action: "task_updated", Metadata: "{not json"})
	if len(e.Metadata) != 0 {
		t.Fatalf("bad metadata should degrade to empty, got %+v", e.Metadata)
	}
}

func TestActionColor(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"task_completed", ColorSuccess},
		{"subtask_completed", ColorSuccess},
		{"task_deleted", ColorWarning},
		{"project_deleted", ColorWarning},
		{"task_created", ColorInfo},
		{"task_moved", ColorInfo},
	}
	for _, tt := range tests {
		if got := ActionColor(tt.action); got != tt.want {
			t.Errorf("ActionColor(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestTitle(t *testing.T) {
	e := Event{Action: "task_completed", TargetID: "task-abc12"}
	if got := Title(e); got != "Task task-abc12 completed" {
		t.Fatalf("Title = %q", got)
	}
	if got := Title(Event{Action: "comment_added", TargetID: "task-abc12"}); got != "New comment on task task-abc12" {
		t.Fatalf("comment title = %q", got)
	}
	if got := Title(Event{Action: "subtask_completed", TargetID: "task-abc12"}); got != "Checklist progress on task task-abc12" {
		t.Fatalf("subtask title = %q", got)
	}
	if got := Title(Event{Action: ActionDigest}); got != "Board digest" {
		t.Fatalf("digest title = %q", got)
	}
	if got := Title(Event{Action: "odd_action", TargetType: "task", TargetID: "t1"}); got != "odd_action on task t1" {
		t.Fatalf("fallback title = %q", got)
	}
}

func TestNewForwarder_Validation(t *testing.T) {
	db := testDB(t)

	if _, err := NewForwarder(ForwarderOpts{Adapters: []Adapter{&mockAdapter{}}}); err == nil {
		t.Fatal("expected error without db")
	}
	if _, err := NewForwarder(ForwarderOpts{DB: db}); err == nil {
		t.Fatal("expected error without adapters")
	}
	if _, err := NewForwarder(ForwarderOpts{DB: db, Adapters: []Adapter{&mockAdapter{}}, DigestCron: "not a cron"}); err == nil {
		t.Fatal("expected error for invalid cron")
	}

	f, err := NewForwarder(ForwarderOpts{DB: db, Adapters: []Adapter{&mockAdapter{}}, DigestCron: "0 9 * * *"})
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}
	if f.pollInterval != DefaultPollInterval {
		t.Fatalf("poll interval = %v, want default", f.pollInterval)
	}
}

func TestPoll_ForwardsNewActivityOnly(t *testing.T) {
	db := testDB(t)
	adapter := &mockAdapter{}
	f, err := NewForwarder(ForwarderOpts{DB: db, Adapters: []Adapter{adapter}})
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	// Predates the forwarder, must not be forwarded.
	insertActivity(t, db, "act-old", "task_created", "task-old", "{}", time.Now().Add(-time.Hour))

	insertActivity(t, db, "act-1", "task_moved", "task-a", `{"from":"todo","to":"review"}`, time.Now().Add(time.Second))
	insertActivity(t, db, "act-2", "task_completed", "task-b", "{}", time.Now().Add(2*time.Second))

	f.Poll(context.Background())

	if len(adapter.events) != 2 {
		t.Fatalf("forwarded %d events, want 2", len(adapter.events))
	}
	if adapter.events[0].Action != "task_moved" || adapter.events[1].Action != "task_completed" {
		t.Fatalf("events out of order: %+v", adapter.events)
	}

	// A second poll with nothing new stays quiet.
	f.Poll(context.Background())
	if len(adapter.events) != 2 {
		t.Fatalf("re-forwarded events: %d", len(adapter.events))
	}
}

func TestPoll_SharedTimestampNeitherDroppedNorRepeated(t *testing.T) {
	db := testDB(t)
	adapter := &mockAdapter{}
	f, err := NewForwarder(ForwarderOpts{DB: db, Adapters: []Adapter{adapter}})
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	// Two activities committed in the same clock tick straddling a poll.
	at := time.Now().Add(time.Second).Truncate(time.Millisecond)
	insertActivity(t, db, "act-1", "task_created", "task-a", "{}", at)
	f.Poll(context.Background())
	insertActivity(t, db, "act-2", "task_moved", "task-b", "{}", at)
	f.Poll(context.Background())

	if len(adapter.events) != 2 {
		t.Fatalf("forwarded %d events, want 2", len(adapter.events))
	}
	if adapter.events[0].TargetID != "task-a" || adapter.events[1].TargetID != "task-b" {
		t.Fatalf("events mismatched: %+v", adapter.events)
	}

	// Nothing new, nothing re-sent.
	f.Poll(context.Background())
	if len(adapter.events) != 2 {
		t.Fatalf("re-forwarded events: %d", len(adapter.events))
	}
}

func TestPoll_AdapterFailureDoesNotStopOthers(t *testing.T) {
	db := testDB(t)
	failing := &mockAdapter{sendErr: context.DeadlineExceeded}
	working := &mockAdapter{}
	f, err := NewForwarder(ForwarderOpts{DB: db, Adapters: []Adapter{failing, working}})
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	insertActivity(t, db, "act-1", "task_created", "task-a", "{}", time.Now().Add(time.Second))
	f.Poll(context.Background())

	if len(working.events) != 1 {
		t.Fatalf("working adapter got %d events, want 1", len(working.events))
	}
}

func TestRun_ClosesAdaptersOnCancel(t *testing.T) {
	db := testDB(t)
	adapter := &mockAdapter{}
	f, err := NewForwarder(ForwarderOpts{DB: db, Adapters: []Adapter{adapter}, PollInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.Run(ctx); err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if !adapter.closed {
		t.Fatal("adapter was not closed")
	}
}
