package board

import (
	"testing"
	"time"

	"github.com/zulandar/taskboard/internal/audit"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
// The pool is pinned to one connection: each :memory: connection is its own
// database, and the concurrency tests need every goroutine on the same one.
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
		t.Fatalf("test db pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Project{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.Subtask{},
		&models.Attachment{},
		&models.Comment{},
		&models.Activity{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// seedProject inserts a project row.
func seedProject(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	project := models.Project{ID: id, Name: "Project " + id}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
}

// taskClock staggers CreatedAt so the created-time tie-break is deterministic
// in tests.
var taskClock = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// seedTask inserts a task at (status, order) with a strictly increasing
// creation time.
func seedTask(t *testing.T, db *gorm.DB, id, projectID string, status Status, order int) {
	t.Helper()
	taskClock = taskClock.Add(time.Minute)
	task := models.Task{
		ID:        id,
		ProjectID: projectID,
		Title:     "Task " + id,
		Status:    string(status),
		SortOrder: order,
		Priority:  "medium",
		CreatedAt: taskClock,
		UpdatedAt: taskClock,
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("seed task %s: %v", id, err)
	}
}

// columnIDs returns the task IDs of a column in display order.
func columnIDs(t *testing.T, db *gorm.DB, projectID string, status Status) []string {
	t.Helper()
	tasks, err := ListColumn(db, projectID, status)
	if err != nil {
		t.Fatalf("list column %s/%s: %v", projectID, status, err)
	}
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

// columnOrders returns id -> sort order for a column.
func columnOrders(t *testing.T, db *gorm.DB, projectID string, status Status) map[string]int {
	t.Helper()
	var tasks []models.Task
	if err := db.Where("project_id = ? AND status = ?", projectID, string(status)).
		Find(&tasks).Error; err != nil {
		t.Fatalf("load column %s/%s: %v", projectID, status, err)
	}
	orders := make(map[string]int, len(tasks))
	for _, task := range tasks {
		orders[task.ID] = task.SortOrder
	}
	return orders
}

// assertIDs compares a column's display order against the expected IDs.
func assertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("column = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column = %v, want %v", got, want)
		}
	}
}

// assertUnique fails when any two tasks in the column share an order value.
func assertUnique(t *testing.T, db *gorm.DB, projectID string, status Status) {
	t.Helper()
	orders := columnOrders(t, db, projectID, status)
	seen := make(map[int]string, len(orders))
	for id, order := range orders {
		if other, dup := seen[order]; dup {
			t.Errorf("column %s/%s: tasks %s and %s share order %d", projectID, status, other, id, order)
		}
		seen[order] = id
	}
}

// stubRecorder captures audit entries, optionally failing every write.
type stubRecorder struct {
	entries  []audit.Entry
	failWith error
}

func (r *stubRecorder) Record(e audit.Entry) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.entries = append(r.entries, e)
	return nil
}
