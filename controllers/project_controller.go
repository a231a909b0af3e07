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

// ProjectController manages CRUD operations for research projects.
type ProjectController struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewProjectController creates a new ProjectController instance.
func NewProjectController(db *gorm.DB, bus *events.Bus) *ProjectController {
	return &ProjectController{db: db, bus: bus}
}

// Create adds a project.
func (p *ProjectController) Create(ctx *gin.Context) {
	var req struct {
		Name        string     `json:"name" binding:"required,min=1"`
		Code        string     `json:"code" binding:"required,min=2,max=32"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		LeadID      uint       `json:"lead_id"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	status := req.Status
	if status == "" {
		status = models.ProjectPlanned
	}
	if !models.IsValidProjectStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid project status")
		return
	}

	var existing models.Project
	if err := p.db.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40920, "project code already exists")
		return
	}

	project := models.Project{
		Name:        utils.Sanitize(strings.TrimSpace(req.Name)),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: utils.Sanitize(req.Description),
		Status:      status,
		LeadID:      req.LeadID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := p.db.Create(&project).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to create project")
		return
	}

	if p.bus != nil {
		p.bus.Publish(events.Event{
			Type:        events.ProjectCreated,
			Description: fmt.Sprintf("project %q created", project.Name),
			UserID:      getUserIDOrZero(ctx),
			Meta:        map[string]any{"project_id": project.ID},
		})
	}
	utils.InvalidateByPrefix("cache:projects:list:")

	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"project": project}})
}

// List returns paginated projects with lead information.
func (p *ProjectController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	status := strings.TrimSpace(ctx.Query("status"))

	if search == "" {
		cacheKey := fmt.Sprintf("cache:projects:list:status=%s:page=%d:size=%d", status, page, pageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	var projects []models.Project
	var total int64

	query := p.db.Preload("Lead").Order("created_at DESC")
	if search != "" {
		query = query.Where("name LIKE ? OR code LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Model(&models.Project{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to count projects")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&projects).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to list projects")
		return
	}

	payload := gin.H{
		"items": projects,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if search == "" {
		cacheKey := fmt.Sprintf("cache:projects:list:status=%s:page=%d:size=%d", status, page, pageSize)
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// Get returns a single project with its tasks.
func (p *ProjectController) Get(ctx *gin.Context) {
	var project models.Project
	if err := p.db.Preload("Lead").Preload("Tasks").First(&project, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "project not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load project")
		return
	}
	utils.Success(ctx, gin.H{"project": project})
}

// Update edits project fields.
func (p *ProjectController) Update(ctx *gin.Context) {
	var req struct {
		Name        string     `json:"name"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		LeadID      *uint      `json:"lead_id"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var project models.Project
	if err := p.db.First(&project, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "project not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load project")
		return
	}

	if req.Name != "" {
		project.Name = utils.Sanitize(strings.TrimSpace(req.Name))
	}
	if req.Description != "" {
		project.Description = utils.Sanitize(req.Description)
	}
	if req.Status != "" {
		if !models.IsValidProjectStatus(req.Status) {
			utils.Error(ctx, http.StatusBadRequest, 40060, "invalid project status")
			return
		}
		project.Status = req.Status
	}
	if req.LeadID != nil {
		project.LeadID = *req.LeadID
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}

	if err := p.db.Save(&project).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to update project")
		return
	}

	if p.bus != nil {
		p.bus.Publish(events.Event{
			Type:        events.ProjectUpdated,
			Description: fmt.Sprintf("project %q updated", project.Name),
			UserID:      getUserIDOrZero(ctx),
			Meta:        map[string]any{"project_id": project.ID},
		})
	}
	utils.InvalidateByPrefix("cache:projects:list:")
	utils.Success(ctx, gin.H{"project": project})
}

// Delete removes a project and its tasks.
func (p *ProjectController) Delete(ctx *gin.Context) {
	var project models.Project
	if err := p.db.First(&project, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "project not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load project")
		return
	}

	if err := p.db.Select("Tasks").Delete(&project).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to delete project")
		return
	}

	if p.bus != nil {
		p.bus.Publish(events.Event{
			Type:        events.ProjectDeleted,
			Description: fmt.Sprintf("project %q deleted", project.Name),
			UserID:      getUserIDOrZero(ctx),
			Meta:        map[string]any{"project_id": project.ID},
		})
	}
	utils.InvalidateByPrefix("cache:projects:list:")
	utils.Success(ctx, gin.H{"message": "project deleted"})
}
