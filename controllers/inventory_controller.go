package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labworks/labops/events"
	"github.com/labworks/labops/models"
	"github.com/labworks/labops/utils"
)

// InventoryController manages stock records for reagents and consumables.
type InventoryController struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewInventoryController creates a new InventoryController instance.
func NewInventoryController(db *gorm.DB, bus *events.Bus) *InventoryController {
	return &InventoryController{db: db, bus: bus}
}

// Create adds an inventory item.
func (i *InventoryController) Create(ctx *gin.Context) {
	var req struct {
		SKU         string `json:"sku" binding:"required,min=1,max=64"`
		Name        string `json:"name" binding:"required,min=1"`
		Description string `json:"description"`
		Quantity    int64  `json:"quantity"`
		Unit        string `json:"unit"`
		MinQuantity int64  `json:"min_quantity"`
		SupplierID  uint   `json:"supplier_id"`
		WarehouseID uint   `json:"warehouse_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if req.Quantity < 0 || req.MinQuantity < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40090, "quantities must not be negative")
		return
	}

	var existing models.InventoryItem
	if err := i.db.Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40930, "sku already exists")
		return
	}

	item := models.InventoryItem{
		SKU:         strings.TrimSpace(req.SKU),
		Name:        utils.Sanitize(strings.TrimSpace(req.Name)),
		Description: utils.Sanitize(req.Description),
		Quantity:    req.Quantity,
		Unit:        strings.TrimSpace(req.Unit),
		MinQuantity: req.MinQuantity,
		SupplierID:  req.SupplierID,
		WarehouseID: req.WarehouseID,
	}
	if err := i.db.Create(&item).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to create inventory item")
		return
	}

	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"item": item}})
}

// List returns paginated inventory items, filterable by warehouse, supplier
// and a low-stock flag.
func (i *InventoryController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	var items []models.InventoryItem
	var total int64

	query := i.db.Preload("Supplier").Preload("Warehouse").Order("name ASC")
	if search != "" {
		query = query.Where("name LIKE ? OR sku LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if v := strings.TrimSpace(ctx.Query("warehouse_id")); v != "" {
		query = query.Where("warehouse_id = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("supplier_id")); v != "" {
		query = query.Where("supplier_id = ?", v)
	}
	if ctx.Query("low_stock") == "true" {
		query = query.Where("quantity <= min_quantity")
	}
	if err := query.Model(&models.InventoryItem{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to count inventory")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to list inventory")
		return
	}

	utils.Success(ctx, gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Get returns a single inventory item.
func (i *InventoryController) Get(ctx *gin.Context) {
	var item models.InventoryItem
	if err := i.db.Preload("Supplier").Preload("Warehouse").First(&item, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40490, "inventory item not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to load inventory item")
		return
	}
	utils.Success(ctx, gin.H{"item": item})
}

// Update edits item fields.
func (i *InventoryController) Update(ctx *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Quantity    *int64 `json:"quantity"`
		Unit        string `json:"unit"`
		MinQuantity *int64 `json:"min_quantity"`
		SupplierID  *uint  `json:"supplier_id"`
		WarehouseID *uint  `json:"warehouse_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var item models.InventoryItem
	if err := i.db.First(&item, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40490, "inventory item not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to load inventory item")
		return
	}

	if req.Name != "" {
		item.Name = utils.Sanitize(strings.TrimSpace(req.Name))
	}
	if req.Description != "" {
		item.Description = utils.Sanitize(req.Description)
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40090, "quantities must not be negative")
			return
		}
		item.Quantity = *req.Quantity
	}
	if req.Unit != "" {
		item.Unit = strings.TrimSpace(req.Unit)
	}
	if req.MinQuantity != nil {
		if *req.MinQuantity < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40090, "quantities must not be negative")
			return
		}
		item.MinQuantity = *req.MinQuantity
	}
	if req.SupplierID != nil {
		item.SupplierID = *req.SupplierID
	}
	if req.WarehouseID != nil {
		item.WarehouseID = *req.WarehouseID
	}

	if err := i.db.Save(&item).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50094, "failed to update inventory item")
		return
	}

	if i.bus != nil {
		i.bus.Publish(events.Event{
			Type:        events.InventoryChanged,
			Description: fmt.Sprintf("inventory %q adjusted to %d %s", item.Name, item.Quantity, item.Unit),
			UserID:      getUserIDOrZero(ctx),
			Meta:        map[string]any{"item_id": item.ID, "quantity": item.Quantity},
		})
	}
	utils.Success(ctx, gin.H{"item": item})
}

// Delete removes an inventory item.
func (i *InventoryController) Delete(ctx *gin.Context) {
	var item models.InventoryItem
	if err := i.db.First(&item, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40490, "inventory item not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to load inventory item")
		return
	}

	if err := i.db.Delete(&item).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50095, "failed to delete inventory item")
		return
	}
	utils.Success(ctx, gin.H{"message": "inventory item deleted"})
}
