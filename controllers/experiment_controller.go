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

// ExperimentController manages CRUD operations for experiments.
type ExperimentController struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewExperimentController creates a new ExperimentController instance.
func NewExperimentController(db *gorm.DB, bus *events.Bus) *ExperimentController {
	return &ExperimentController{db: db, bus: bus}
}

// Create adds an experiment under a project.
func (e *ExperimentController) Create(ctx *gin.Context) {
	var req struct {
		ProjectID uint       `json:"project_id" binding:"required"`
		Title     string     `json:"title" binding:"required,min=1"`
		Protocol  string     `json:"protocol"`
		Status    string     `json:"status"`
		StartedAt *time.Time `json:"started_at"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	status := req.Status
	if status == "" {
		status = models.ExperimentDraft
	}
	if !models.IsValidExperimentStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid experiment status")
		return
	}

	var project models.Project
	if err := e.db.First(&project, req.ProjectID).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40072, "project does not exist")
		return
	}

	exp := models.Experiment{
		ProjectID: req.ProjectID,
		Title:     utils.Sanitize(strings.TrimSpace(req.Title)),
		Protocol:  utils.Sanitize(req.Protocol),
		Status:    status,
		OwnerID:   getUserIDOrZero(ctx),
		StartedAt: req.StartedAt,
	}
	if err := e.db.Create(&exp).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to create experiment")
		return
	}

	if e.bus != nil {
		e.bus.Publish(events.Event{
			Type:        events.ExperimentSaved,
			Description: fmt.Sprintf("experiment %q created", exp.Title),
			UserID:      exp.OwnerID,
			Meta:        map[string]any{"experiment_id": exp.ID, "project_id": project.ID},
		})
	}

	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"experiment": exp}})
}

// List returns paginated experiments, filterable by project and status.
func (e *ExperimentController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var exps []models.Experiment
	var total int64

	query := e.db.Preload("Owner").Order("created_at DESC")
	if v := strings.TrimSpace(ctx.Query("project_id")); v != "" {
		query = query.Where("project_id = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("status")); v != "" {
		query = query.Where("status = ?", v)
	}
	if err := query.Model(&models.Experiment{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to count experiments")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&exps).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50082, "failed to list experiments")
		return
	}

	utils.Success(ctx, gin.H{
		"items": exps,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Get returns a single experiment.
func (e *ExperimentController) Get(ctx *gin.Context) {
	var exp models.Experiment
	if err := e.db.Preload("Owner").First(&exp, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40480, "experiment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load experiment")
		return
	}
	utils.Success(ctx, gin.H{"experiment": exp})
}

// Update edits experiment fields including recorded results.
func (e *ExperimentController) Update(ctx *gin.Context) {
	var req struct {
		Title      string     `json:"title"`
		Protocol   string     `json:"protocol"`
		Results    string     `json:"results"`
		Status     string     `json:"status"`
		StartedAt  *time.Time `json:"started_at"`
		FinishedAt *time.Time `json:"finished_at"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var exp models.Experiment
	if err := e.db.First(&exp, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40480, "experiment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load experiment")
		return
	}

	if req.Title != "" {
		exp.Title = utils.Sanitize(strings.TrimSpace(req.Title))
	}
	if req.Protocol != "" {
		exp.Protocol = utils.Sanitize(req.Protocol)
	}
	if req.Results != "" {
		exp.Results = utils.Sanitize(req.Results)
	}
	if req.Status != "" {
		if !models.IsValidExperimentStatus(req.Status) {
			utils.Error(ctx, http.StatusBadRequest, 40080, "invalid experiment status")
			return
		}
		exp.Status = req.Status
	}
	if req.StartedAt != nil {
		exp.StartedAt = req.StartedAt
	}
	if req.FinishedAt != nil {
		exp.FinishedAt = req.FinishedAt
	}

	if err := e.db.Save(&exp).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50084, "failed to update experiment")
		return
	}

	if e.bus != nil {
		e.bus.Publish(events.Event{
			Type:        events.ExperimentSaved,
			Description: fmt.Sprintf("experiment %q updated", exp.Title),
			UserID:      getUserIDOrZero(ctx),
			Meta:        map[string]any{"experiment_id": exp.ID, "status": exp.Status},
		})
	}
	utils.Success(ctx, gin.H{"experiment": exp})
}

// Delete removes an experiment.
func (e *ExperimentController) Delete(ctx *gin.Context) {
	var exp models.Experiment
	if err := e.db.First(&exp, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40480, "experiment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load experiment")
		return
	}

	if err := e.db.Delete(&exp).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50085, "failed to delete experiment")
		return
	}
	utils.Success(ctx, gin.H{"message": "experiment deleted"})
}
