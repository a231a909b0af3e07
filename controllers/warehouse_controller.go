package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labworks/labops/models"
	"github.com/labworks/labops/utils"
)

// WarehouseController manages storage locations.
type WarehouseController struct {
	db *gorm.DB
}

// NewWarehouseController creates a new WarehouseController instance.
func NewWarehouseController(db *gorm.DB) *WarehouseController {
	return &WarehouseController{db: db}
}

// Create adds a warehouse.
func (w *WarehouseController) Create(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,min=1"`
		Location string `json:"location"`
		Notes    string `json:"notes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	warehouse := models.Warehouse{
		Name:     utils.Sanitize(strings.TrimSpace(req.Name)),
		Location: utils.Sanitize(strings.TrimSpace(req.Location)),
		Notes:    utils.Sanitize(req.Notes),
	}
	if err := w.db.Create(&warehouse).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50110, "failed to create warehouse")
		return
	}
	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"warehouse": warehouse}})
}

// List returns all warehouses; labs rarely have enough to paginate but the
// query parameters are honored for consistency.
func (w *WarehouseController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var warehouses []models.Warehouse
	var total int64
	if err := w.db.Model(&models.Warehouse{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50111, "failed to count warehouses")
		return
	}
	if err := w.db.Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&warehouses).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50112, "failed to list warehouses")
		return
	}

	utils.Success(ctx, gin.H{
		"items": warehouses,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Get returns a single warehouse.
func (w *WarehouseController) Get(ctx *gin.Context) {
	var warehouse models.Warehouse
	if err := w.db.First(&warehouse, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40510, "warehouse not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50113, "failed to load warehouse")
		return
	}
	utils.Success(ctx, gin.H{"warehouse": warehouse})
}

// Update edits warehouse fields.
func (w *WarehouseController) Update(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Location string `json:"location"`
		Notes    string `json:"notes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var warehouse models.Warehouse
	if err := w.db.First(&warehouse, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40510, "warehouse not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50113, "failed to load warehouse")
		return
	}

	if req.Name != "" {
		warehouse.Name = utils.Sanitize(strings.TrimSpace(req.Name))
	}
	if req.Location != "" {
		warehouse.Location = utils.Sanitize(strings.TrimSpace(req.Location))
	}
	if req.Notes != "" {
		warehouse.Notes = utils.Sanitize(req.Notes)
	}

	if err := w.db.Save(&warehouse).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50114, "failed to update warehouse")
		return
	}
	utils.Success(ctx, gin.H{"warehouse": warehouse})
}

// Delete removes a warehouse that no inventory item references.
func (w *WarehouseController) Delete(ctx *gin.Context) {
	var warehouse models.Warehouse
	if err := w.db.First(&warehouse, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40510, "warehouse not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50113, "failed to load warehouse")
		return
	}

	var inUse int64
	if err := w.db.Model(&models.InventoryItem{}).Where("warehouse_id = ?", warehouse.ID).Count(&inUse).Error; err == nil && inUse > 0 {
		utils.Error(ctx, http.StatusConflict, 40932, "warehouse is referenced by inventory items")
		return
	}

	if err := w.db.Delete(&warehouse).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50115, "failed to delete warehouse")
		return
	}
	utils.Success(ctx, gin.H{"message": "warehouse deleted"})
}
