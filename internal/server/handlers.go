package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/taskboard/internal/audit"
	"github.com/zulandar/taskboard/internal/board"
	"gorm.io/gorm"
)

// actorID pulls the acting user from the request. Identity management is
// external; the header is trusted as-is.
func actorID(c *gin.Context) string {
	return c.GetHeader("X-Actor-ID")
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondErr maps the board sentinels onto HTTP status codes.
func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, board.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, board.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, board.ErrConflict):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

type reorderRequest struct {
	TaskID    string `json:"taskId" binding:"required"`
	NewStatus string `json:"newStatus" binding:"required"`
	NewOrder  *int   `json:"newOrder" binding:"required"`
	ProjectID string `json:"projectId"`
}

func handleReorder(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		task, err := board.Move(db, rec, board.MoveOpts{
			TaskID:    req.TaskID,
			Status:    board.Status(req.NewStatus),
			Order:     *req.NewOrder,
			ProjectID: req.ProjectID,
			Actor:     actorID(c),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, task)
	}
}

type subtaskPayload struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func subtaskInputs(payload []subtaskPayload) []board.SubtaskInput {
	subtasks := make([]board.SubtaskInput, len(payload))
	for i, s := range payload {
		subtasks[i] = board.SubtaskInput{Title: s.Title, Completed: s.Completed}
	}
	return subtasks
}

type createTaskRequest struct {
	ProjectID   string           `json:"projectId" binding:"required"`
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description"`
	Priority    string           `json:"priority"`
	Deadline    *time.Time       `json:"deadline"`
	Assignees   []string         `json:"assignees"`
	Subtasks    []subtaskPayload `json:"subtasks"`
}

func handleCreateTask(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		task, err := board.Create(db, rec, board.CreateOpts{
			ProjectID:   req.ProjectID,
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			Deadline:    req.Deadline,
			Assignees:   req.Assignees,
			Subtasks:    subtaskInputs(req.Subtasks),
			Actor:       actorID(c),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusCreated, task)
	}
}

func handleListTasks(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := board.List(db, board.ListFilters{
			ProjectID: c.Query("project"),
			Status:    c.Query("status"),
			Priority:  c.Query("priority"),
			Assignee:  c.Query("assignee"),
			Search:    c.Query("search"),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, tasks)
	}
}

func handleGetTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := board.Get(db, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, task)
	}
}

type updateTaskRequest struct {
	Title         *string           `json:"title"`
	Description   *string           `json:"description"`
	Priority      *string           `json:"priority"`
	Deadline      *time.Time        `json:"deadline"`
	ClearDeadline bool              `json:"clearDeadline"`
	Status        *string           `json:"status"`
	Assignees     *[]string         `json:"assignees"`
	Subtasks      *[]subtaskPayload `json:"subtasks"`
}

func handleUpdateTask(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		opts := board.UpdateOpts{
			Title:         req.Title,
			Description:   req.Description,
			Priority:      req.Priority,
			Deadline:      req.Deadline,
			ClearDeadline: req.ClearDeadline,
			Assignees:     req.Assignees,
			Actor:         actorID(c),
		}
		if req.Status != nil {
			status := board.Status(*req.Status)
			opts.Status = &status
		}
		if req.Subtasks != nil {
			subtasks := subtaskInputs(*req.Subtasks)
			opts.Subtasks = &subtasks
		}

		task, err := board.Update(db, rec, c.Param("id"), opts)
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, task)
	}
}

func handleDeleteTask(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := board.Delete(db, rec, c.Param("id"), actorID(c)); err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
	}
}

type attachmentRequest struct {
	FileName string `json:"fileName" binding:"required"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

func handleAddAttachment(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req attachmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		attachment, err := board.AddAttachment(db, rec, c.Param("id"), board.AttachmentInput{
			FileName: req.FileName,
			MimeType: req.MimeType,
			Size:     req.Size,
			URL:      req.URL,
			Actor:    actorID(c),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusCreated, attachment)
	}
}

type commentRequest struct {
	Body string `json:"body" binding:"required"`
}

func handleAddComment(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req commentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		comment, err := board.AddComment(db, rec, c.Param("id"), req.Body, actorID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusCreated, comment)
	}
}

func handleListComments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		comments, err := board.ListComments(db, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, comments)
	}
}

func handleToggleSubtask(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		subtaskID, err := strconv.ParseUint(c.Param("subtaskId"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "subtask id must be numeric"})
			return
		}

		subtask, err := board.ToggleSubtask(db, rec, c.Param("id"), uint(subtaskID), actorID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, subtask)
	}
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func handleCreateProject(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		project, err := board.CreateProject(db, rec, board.ProjectOpts{
			Name:        req.Name,
			Description: req.Description,
			Color:       req.Color,
			Actor:       actorID(c),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusCreated, project)
	}
}

func handleListProjects(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projects, err := board.ListProjects(db)
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, projects)
	}
}

func handleGetProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := board.GetProject(db, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, project)
	}
}

func handleBoard(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := board.BoardView(db, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, view)
	}
}

func handleDeleteProject(db *gorm.DB, rec audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := board.DeleteProject(db, rec, c.Param("id"), actorID(c)); err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
	}
}

func handleRenumber(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		changed, err := board.RenumberProject(db, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"changed": changed})
	}
}

func handleColumn(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := board.ParseStatus(c.Query("status"))
		if err != nil {
			respondErr(c, err)
			return
		}
		tasks, err := board.ListColumn(db, c.Query("project"), status)
		if err != nil {
			respondErr(c, err)
			return
		}
		respond(c, http.StatusOK, board.Column{Status: status, Tasks: tasks})
	}
}
