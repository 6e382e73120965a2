package server

import (
	"github.com/gin-gonic/gin"
	"github.com/zulandar/taskboard/internal/audit"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, rec audit.Recorder) {
	api := router.Group("/api")

	api.PUT("/tasks/reorder", handleReorder(db, rec))

	api.POST("/tasks", handleCreateTask(db, rec))
	api.GET("/tasks", handleListTasks(db))
	api.GET("/tasks/:id", handleGetTask(db))
	api.PUT("/tasks/:id", handleUpdateTask(db, rec))
	api.DELETE("/tasks/:id", handleDeleteTask(db, rec))
	api.POST("/tasks/:id/attachments", handleAddAttachment(db, rec))
	api.POST("/tasks/:id/comments", handleAddComment(db, rec))
	api.GET("/tasks/:id/comments", handleListComments(db))
	api.PUT("/tasks/:id/subtasks/:subtaskId", handleToggleSubtask(db, rec))

	api.POST("/projects", handleCreateProject(db, rec))
	api.GET("/projects", handleListProjects(db))
	api.GET("/projects/:id", handleGetProject(db))
	api.GET("/projects/:id/board", handleBoard(db))
	api.DELETE("/projects/:id", handleDeleteProject(db, rec))
	api.POST("/projects/:id/renumber", handleRenumber(db))

	api.GET("/columns", handleColumn(db))
}
