package handler

import (
	"errors"
	"net/http"
	"strconv"

	"tasklist-backend/internal/middleware"
	"tasklist-backend/internal/models"
	"tasklist-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TaskHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	UpdateStatus(c *gin.Context)
	Delete(c *gin.Context)
}

type taskHandler struct {
	taskService service.TaskService
	logger      *zap.Logger
}

func NewTaskHandler(taskService service.TaskService, logger *zap.Logger) TaskHandler {
	return &taskHandler{taskService: taskService, logger: logger}
}

type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// List handles GET /api/tasks?status=&sort=
func (h *taskHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in or credentials invalid"})
		return
	}

	statusFilter := c.Query("status")
	sortKey := c.DefaultQuery("sort", "due_date")

	tasks, err := h.taskService.List(user.ID, statusFilter, sortKey)
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Int64("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve tasks"})
		return
	}

	responses := make([]models.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, task.ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}

// Get handles GET /api/tasks/:id
func (h *taskHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in or credentials invalid"})
		return
	}

	id, err := taskID(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	task, err := h.taskService.Get(user.ID, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.logger.Error("Failed to get task", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve task"})
		return
	}

	c.JSON(http.StatusOK, task.ToResponse())
}

// Create handles POST /api/tasks
func (h *taskHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in or credentials invalid"})
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task title must not be empty"})
		return
	}

	task, err := h.taskService.Create(user.ID, req.Title, req.Description, req.DueDate)
	if err != nil {
		h.respondTaskError(c, err, "Failed to create task")
		return
	}

	c.JSON(http.StatusCreated, task.ToResponse())
}

// Update handles PUT /api/tasks/:id with full-replace semantics.
func (h *taskHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in or credentials invalid"})
		return
	}

	id, err := taskID(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task title must not be empty"})
		return
	}

	task, err := h.taskService.Update(user.ID, id, req.Title, req.Description, req.DueDate)
	if err != nil {
		h.respondTaskError(c, err, "Failed to update task")
		return
	}

	c.JSON(http.StatusOK, task.ToResponse())
}

// UpdateStatus handles PATCH /api/tasks/:id/status
func (h *taskHandler) UpdateStatus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in or credentials invalid"})
		return
	}

	id, err := taskID(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status value"})
		return
	}

	task, err := h.taskService.UpdateStatus(user.ID, id, req.Status)
	if err != nil {
		h.respondTaskError(c, err, "Failed to update task status")
		return
	}

	c.JSON(http.StatusOK, task.ToResponse())
}

// Delete handles DELETE /api/tasks/:id
func (h *taskHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in or credentials invalid"})
		return
	}

	id, err := taskID(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	if err := h.taskService.Delete(user.ID, id); err != nil {
		h.respondTaskError(c, err, "Failed to delete task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

func (h *taskHandler) respondTaskError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, service.ErrTitleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "task title must not be empty"})
	case errors.Is(err, service.ErrInvalidDueDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, please use YYYY-MM-DD"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status value"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func taskID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
