package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/taskboard/internal/audit"
	"github.com/zulandar/taskboard/internal/db"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// Every :memory: connection is its own database.
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func testRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testDB(t)
	router := gin.New()
	registerRoutes(router, gdb, audit.NewDBRecorder(gdb))
	return router, gdb
}

func seedProject(t *testing.T, gdb *gorm.DB, id string) {
	t.Helper()
	p := models.Project{ID: id, Name: "Project " + id, OwnerID: "user-1"}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func seedTask(t *testing.T, gdb *gorm.DB, id, projectID, status string, order int) {
	t.Helper()
	task := models.Task{
		ID:        id,
		ProjectID: projectID,
		Title:     "Task " + id,
		Status:    status,
		SortOrder: order,
		Priority:  "medium",
		CreatedBy: "user-1",
	}
	if err := gdb.Create(&task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("response not successful: %s", w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func columnOrder(t *testing.T, gdb *gorm.DB, projectID, status string) []string {
	t.Helper()
	var ids []string
	err := gdb.Model(&models.Task{}).
		Where("project_id = ? AND status = ?", projectID, status).
		Order("sort_order ASC, created_at DESC").
		Pluck("id", &ids).Error
	if err != nil {
		t.Fatalf("column order: %v", err)
	}
	return ids
}

func TestReorder_MovesTask(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)
	seedTask(t, gdb, "task-b", "p1", "todo", 1)
	seedTask(t, gdb, "task-c", "p1", "in_progress", 0)

	order := 0
	w := doJSON(t, router, http.MethodPut, "/api/tasks/reorder", gin.H{
		"taskId":    "task-b",
		"newStatus": "in_progress",
		"newOrder":  order,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var task models.Task
	decodeData(t, w, &task)
	if task.Status != "in_progress" || task.SortOrder != 0 {
		t.Fatalf("moved task = %s/%d", task.Status, task.SortOrder)
	}

	got := columnOrder(t, gdb, "p1", "in_progress")
	if len(got) != 2 || got[0] != "task-b" || got[1] != "task-c" {
		t.Fatalf("in_progress order = %v", got)
	}
}

func TestReorder_ErrorMapping(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"unknown task", gin.H{"taskId": "task-zz", "newStatus": "todo", "newOrder": 0}, http.StatusNotFound},
		{"bad status", gin.H{"taskId": "task-a", "newStatus": "archived", "newOrder": 0}, http.StatusBadRequest},
		{"negative order", gin.H{"taskId": "task-a", "newStatus": "todo", "newOrder": -1}, http.StatusBadRequest},
		{"missing fields", gin.H{"taskId": "task-a"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPut, "/api/tasks/reorder", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"success":false`) {
				t.Fatalf("error body = %s", w.Body.String())
			}
		})
	}
}

func TestCreateTask_AppendsToTodo(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)

	w := doJSON(t, router, http.MethodPost, "/api/tasks", gin.H{
		"projectId": "p1",
		"title":     "New task",
		"priority":  "high",
		"assignees": []string{"user-2"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var task models.Task
	decodeData(t, w, &task)
	if task.Status != "todo" || task.SortOrder != 1 {
		t.Fatalf("created at %s/%d, want todo/1", task.Status, task.SortOrder)
	}
	if task.Priority != "high" {
		t.Fatalf("priority = %q", task.Priority)
	}
}

func TestCreateTask_UnknownProject(t *testing.T) {
	router, _ := testRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/tasks", gin.H{
		"projectId": "p-missing",
		"title":     "Orphan",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetTask(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)

	w := doJSON(t, router, http.MethodGet, "/api/tasks/task-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var task models.Task
	decodeData(t, w, &task)
	if task.ID != "task-a" {
		t.Fatalf("task id = %q", task.ID)
	}

	w = doJSON(t, router, http.MethodGet, "/api/tasks/task-zz", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing task status = %d", w.Code)
	}
}

func TestUpdateTask_StatusChange(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)
	seedTask(t, gdb, "task-b", "p1", "done", 0)

	w := doJSON(t, router, http.MethodPut, "/api/tasks/task-a", gin.H{
		"status": "done",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var task models.Task
	decodeData(t, w, &task)
	if task.Status != "done" || task.SortOrder != 1 {
		t.Fatalf("updated task = %s/%d, want done/1", task.Status, task.SortOrder)
	}
}

func TestDeleteTask(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)

	w := doJSON(t, router, http.MethodDelete, "/api/tasks/task-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var count int64
	gdb.Model(&models.Task{}).Where("id = ?", "task-a").Count(&count)
	if count != 0 {
		t.Fatal("task still present after delete")
	}
}

func TestAddAttachment(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)

	w := doJSON(t, router, http.MethodPost, "/api/tasks/task-a/attachments", gin.H{
		"fileName": "design.pdf",
		"mimeType": "application/pdf",
		"size":     1024,
		"url":      "https://files.example.com/design.pdf",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var attachment models.Attachment
	decodeData(t, w, &attachment)
	if attachment.FileName != "design.pdf" || attachment.TaskID != "task-a" {
		t.Fatalf("attachment = %+v", attachment)
	}
}

func TestBoard_GroupsColumns(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)
	seedTask(t, gdb, "task-b", "p1", "done", 0)

	w := doJSON(t, router, http.MethodGet, "/api/projects/p1/board", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var view struct {
		ProjectID string `json:"projectId"`
		Columns   []struct {
			Status string        `json:"status"`
			Tasks  []models.Task `json:"tasks"`
		} `json:"columns"`
	}
	decodeData(t, w, &view)
	if view.ProjectID != "p1" || len(view.Columns) != 4 {
		t.Fatalf("view = %+v", view)
	}

	w = doJSON(t, router, http.MethodGet, "/api/projects/p-missing/board", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing project status = %d", w.Code)
	}
}

func TestColumn_RequiresValidStatus(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "review", 0)

	w := doJSON(t, router, http.MethodGet, "/api/columns?project=p1&status=review", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/columns?project=p1&status=archived", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid status code = %d", w.Code)
	}
}

func TestDeleteProject_Cascades(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)
	seedTask(t, gdb, "task-b", "p1", "review", 0)

	w := doJSON(t, router, http.MethodDelete, "/api/projects/p1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var count int64
	gdb.Model(&models.Task{}).Where("project_id = ?", "p1").Count(&count)
	if count != 0 {
		t.Fatalf("%d tasks survive project delete", count)
	}
}

func TestRenumber_Densifies(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 3)
	seedTask(t, gdb, "task-b", "p1", "todo", 7)

	w := doJSON(t, router, http.MethodPost, "/api/projects/p1/renumber", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var result struct {
		Changed int `json:"changed"`
	}
	decodeData(t, w, &result)
	if result.Changed != 2 {
		t.Fatalf("changed = %d, want 2", result.Changed)
	}

	got := columnOrder(t, gdb, "p1", "todo")
	if got[0] != "task-a" || got[1] != "task-b" {
		t.Fatalf("order after renumber = %v", got)
	}
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	gdb := testDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	port := 18080 + int(time.Now().UnixNano()%1000)
	go func() {
		done <- Start(ctx, StartOpts{DB: gdb, Port: port})
	}()

	// Give the listener a moment, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestCreateAndListProjects(t *testing.T) {
	router, gdb := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/projects", gin.H{
		"name":  "Website Redesign",
		"color": "#ff8800",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var project models.Project
	decodeData(t, w, &project)
	if !strings.HasPrefix(project.ID, "proj-") {
		t.Errorf("project ID = %q, want proj- prefix", project.ID)
	}
	if project.OwnerID != "user-1" {
		t.Errorf("owner = %q, want user-1", project.OwnerID)
	}

	w = doJSON(t, router, http.MethodGet, "/api/projects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var projects []models.Project
	decodeData(t, w, &projects)
	if len(projects) != 1 || projects[0].Name != "Website Redesign" {
		t.Fatalf("projects = %+v", projects)
	}

	var count int64
	gdb.Model(&models.Activity{}).Where("action = ?", "project_created").Count(&count)
	if count != 1 {
		t.Errorf("project_created activities = %d, want 1", count)
	}
}

func TestCreateProject_RequiresName(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/projects", gin.H{"color": "#fff"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetProject(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")

	w := doJSON(t, router, http.MethodGet, "/api/projects/p1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/projects/p-missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing project status = %d, want 404", w.Code)
	}
}

func TestTaskComments(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)

	w := doJSON(t, router, http.MethodPost, "/api/tasks/task-a/comments", gin.H{
		"body": "needs a second pass",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var comment models.Comment
	decodeData(t, w, &comment)
	if comment.AuthorID != "user-1" || comment.Body != "needs a second pass" {
		t.Fatalf("comment = %+v", comment)
	}

	w = doJSON(t, router, http.MethodGet, "/api/tasks/task-a/comments", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var comments []models.Comment
	decodeData(t, w, &comments)
	if len(comments) != 1 {
		t.Fatalf("listed %d comments, want 1", len(comments))
	}

	w = doJSON(t, router, http.MethodPost, "/api/tasks/task-a/comments", gin.H{"body": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty body status = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/tasks/task-nope/comments", gin.H{"body": "hi"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing task status = %d, want 404", w.Code)
	}
}

func TestToggleSubtaskEndpoint(t *testing.T) {
	router, gdb := testRouter(t)
	seedProject(t, gdb, "p1")
	seedTask(t, gdb, "task-a", "p1", "todo", 0)
	sub := models.Subtask{TaskID: "task-a", Title: "write docs"}
	if err := gdb.Create(&sub).Error; err != nil {
		t.Fatalf("seed subtask: %v", err)
	}

	path := "/api/tasks/task-a/subtasks/" + strconv.FormatUint(uint64(sub.ID), 10)
	w := doJSON(t, router, http.MethodPut, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var toggled models.Subtask
	decodeData(t, w, &toggled)
	if !toggled.Completed {
		t.Fatal("subtask not completed after toggle")
	}

	w = doJSON(t, router, http.MethodPut, "/api/tasks/task-a/subtasks/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id status = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodPut, "/api/tasks/task-a/subtasks/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing subtask status = %d, want 404", w.Code)
	}
}
