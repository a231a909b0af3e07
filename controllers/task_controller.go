package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labworks/labops/events"
	"github.com/labworks/labops/models"
	"github.com/labworks/labops/utils"
)

// TaskController manages CRUD operations for project tasks.
type TaskController struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewTaskController creates a new TaskController instance.
func NewTaskController(db *gorm.DB, bus *events.Bus) *TaskController {
	return &TaskController{db: db, bus: bus}
}

// Create adds a task under a project.
func (t *TaskController) Create(ctx *gin.Context) {
	var req struct {
		ProjectID   uint       `json:"project_id" binding:"required"`
		Title       string     `json:"title" binding:"required,min=1"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		Priority    string     `json:"priority"`
		AssigneeID  uint       `json:"assignee_id"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	status := req.Status
	if status == "" {
		status = models.TaskTodo
	}
	if !models.IsValidTaskStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid task status")
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.IsValidTaskPriority(priority) {
		utils.Error(ctx, http.StatusBadRequest, 40071, "invalid task priority")
		return
	}

	var project models.Project
	if err := t.db.First(&project, req.ProjectID).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40072, "project does not exist")
		return
	}

	task := models.Task{
		ProjectID:   req.ProjectID,
		Title:       utils.Sanitize(strings.TrimSpace(req.Title)),
		Description: utils.Sanitize(req.Description),
		Status:      status,
		Priority:    priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	}
	if err := t.db.Create(&task).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to create task")
		return
	}

	if t.bus != nil {
		t.bus.Publish(events.Event{
			Type:        events.TaskCreated,
			Description: fmt.Sprintf("task %q created in project %q", task.Title, project.Name),
			UserID:      getUserIDOrZero(ctx),
			Meta:        map[string]any{"task_id": task.ID, "project_id": project.ID},
		})
	}

	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"task": task}})
}

// List returns paginated tasks, filterable by project, status and assignee.
func (t *TaskController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var tasks []models.Task
	var total int64

	query := t.db.Preload("Assignee").Order("created_at DESC")
	if v := strings.TrimSpace(ctx.Query("project_id")); v != "" {
		query = query.Where("project_id = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("status")); v != "" {
		query = query.Where("status = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("assignee_id")); v != "" {
		query = query.Where("assignee_id = ?", v)
	}
	if err := query.Model(&models.Task{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to count tasks")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&tasks).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to list tasks")
		return
	}

	utils.Success(ctx, gin.H{
		"items": tasks,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Get returns a single task.
func (t *TaskController) Get(ctx *gin.Context) {
	var task models.Task
	if err := t.db.Preload("Assignee").First(&task, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40470, "task not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to load task")
		return
	}
	utils.Success(ctx, gin.H{"task": task})
}

// Update edits task fields.
func (t *TaskController) Update(ctx *gin.Context) {
	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		Priority    string     `json:"priority"`
		AssigneeID  *uint      `json:"assignee_id"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var task models.Task
	if err := t.db.First(&task, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40470, "task not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to load task")
		return
	}

	if req.Title != "" {
		task.Title = utils.Sanitize(strings.TrimSpace(req.Title))
	}
	if req.Description != "" {
		task.Description = utils.Sanitize(req.Description)
	}
	if req.Status != "" {
		if !models.IsValidTaskStatus(req.Status) {
			utils.Error(ctx, http.StatusBadRequest, 40070, "invalid task status")
			return
		}
		task.Status = req.Status
	}
	if req.Priority != "" {
		if !models.IsValidTaskPriority(req.Priority) {
			utils.Error(ctx, http.StatusBadRequest, 40071, "invalid task priority")
			return
		}
		task.Priority = req.Priority
	}
	if req.AssigneeID != nil {
		task.AssigneeID = *req.AssigneeID
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	if err := t.db.Save(&task).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50074, "failed to update task")
		return
	}

	if t.bus != nil {
		t.bus.Publish(events.Event{
			Type:        events.TaskUpdated,
			Description: fmt.Sprintf("task %q updated", task.Title),
			UserID:      getUserIDOrZero(ctx),
			Meta:        map[string]any{"task_id": task.ID, "status": task.Status},
		})
	}
	utils.Success(ctx, gin.H{"task": task})
}

// Delete removes a task.
func (t *TaskController) Delete(ctx *gin.Context) {
	var task models.Task
	if err := t.db.First(&task, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40470, "task not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to load task")
		return
	}

	if err := t.db.Delete(&task).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50075, "failed to delete task")
		return
	}

	if t.bus != nil {
		t.bus.Publish(events.Event{
			Type:        events.TaskDeleted,
			Description: fmt.Sprintf("task %q deleted", task.Title),
			UserID:      getUserIDOrZero(ctx),
			Meta:        map[string]any{"task_id": task.ID},
		})
	}
	utils.Success(ctx, gin.H{"message": "task deleted"})
}
