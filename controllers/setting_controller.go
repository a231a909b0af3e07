package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/labworks/labops/models"
	"github.com/labworks/labops/utils"
)

// SettingController manages admin-editable configuration rows.
type SettingController struct {
	db *gorm.DB
}

// NewSettingController creates a new SettingController instance.
func NewSettingController(db *gorm.DB) *SettingController {
	return &SettingController{db: db}
}

// List returns settings grouped by category.
func (s *SettingController) List(ctx *gin.Context) {
	var settings []models.Setting
	query := s.db.Order("category ASC, `key` ASC")
	if v := strings.TrimSpace(ctx.Query("category")); v != "" {
		query = query.Where("category = ?", v)
	}
	if err := query.Find(&settings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50130, "failed to list settings")
		return
	}

	grouped := map[string][]models.Setting{}
	for _, setting := range settings {
		grouped[setting.Category] = append(grouped[setting.Category], setting)
	}
	utils.Success(ctx, gin.H{"settings": grouped})
}

// Upsert creates or updates settings in bulk. Each entry is keyed by
// category and key; existing values are overwritten.
func (s *SettingController) Upsert(ctx *gin.Context) {
	var req struct {
		Settings []struct {
			Category string `json:"category" binding:"required"`
			Key      string `json:"key" binding:"required"`
			Value    string `json:"value"`
		} `json:"settings" binding:"required,min=1"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	userID := getUserIDOrZero(ctx)
	rows := make([]models.Setting, 0, len(req.Settings))
	for _, entry := range req.Settings {
		rows = append(rows, models.Setting{
			Category:  strings.TrimSpace(entry.Category),
			Key:       strings.TrimSpace(entry.Key),
			Value:     entry.Value,
			UpdatedBy: userID,
		})
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50131, "failed to save settings")
		return
	}
	utils.Success(ctx, gin.H{"settings": rows})
}

// Delete removes one setting row.
func (s *SettingController) Delete(ctx *gin.Context) {
	res := s.db.Where("category = ? AND `key` = ?", ctx.Param("category"), ctx.Param("key")).Delete(&models.Setting{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50132, "failed to delete setting")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40530, "setting not found")
		return
	}
	utils.Success(ctx, gin.H{"message": "setting deleted"})
}
