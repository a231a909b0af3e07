package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labworks/labops/models"
	"github.com/labworks/labops/utils"
)

// StatsController provides dashboard aggregates and the activity feed.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// Dashboard returns entity counts and low stock alerts for the landing page.
func (s *StatsController) Dashboard(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes("cache:stats:dashboard"); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	counts := gin.H{}
	for name, model := range map[string]interface{}{
		"users":       &models.User{},
		"projects":    &models.Project{},
		"tasks":       &models.Task{},
		"experiments": &models.Experiment{},
		"inventory":   &models.InventoryItem{},
		"reports":     &models.Report{},
		"orders":      &models.Order{},
	} {
		var n int64
		if err := s.db.Model(model).Count(&n).Error; err != nil {
			// Fallback to 0 instead of failing the whole endpoint
			n = 0
		}
		counts[name] = n
	}

	var openTasks int64
	if err := s.db.Model(&models.Task{}).Where("status <> ?", models.TaskDone).Count(&openTasks).Error; err != nil {
		openTasks = 0
	}

	var lowStock int64
	if err := s.db.Model(&models.InventoryItem{}).Where("quantity <= min_quantity").Count(&lowStock).Error; err != nil {
		lowStock = 0
	}

	payload := gin.H{
		"counts":     counts,
		"open_tasks": openTasks,
		"low_stock":  lowStock,
	}
	utils.CacheSetJSON("cache:stats:dashboard", utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 5*time.Minute)
	utils.Success(ctx, payload)
}

// Activity returns the most recent activity log entries.
func (s *StatsController) Activity(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var entries []models.Activity
	var total int64
	query := s.db.Order("created_at DESC")
	if v := ctx.Query("type"); v != "" {
		query = query.Where("type = ?", v)
	}
	if err := query.Model(&models.Activity{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50140, "failed to count activity")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&entries).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50141, "failed to list activity")
		return
	}

	utils.Success(ctx, gin.H{
		"items": entries,
		"users": s.actorNames(entries),
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// actorNames resolves the distinct user ids in a page of activity entries to
// display names so the feed can be rendered without per-row lookups.
func (s *StatsController) actorNames(entries []models.Activity) map[uint]string {
	ids := make([]uint, 0, len(entries))
	for _, entry := range entries {
		if entry.UserID != 0 {
			ids = append(ids, entry.UserID)
		}
	}
	names := map[uint]string{}
	ids = utils.UniqueUint(ids)
	if len(ids) == 0 {
		return names
	}

	var users []models.User
	if err := s.db.Select("id", "name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		utils.Sugar.Warnf("resolve activity actors: %v", err)
		return names
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names
}
