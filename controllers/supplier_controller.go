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

// SupplierController manages vendor records.
type SupplierController struct {
	db *gorm.DB
}

// NewSupplierController creates a new SupplierController instance.
func NewSupplierController(db *gorm.DB) *SupplierController {
	return &SupplierController{db: db}
}

// Create adds a supplier.
func (s *SupplierController) Create(ctx *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required,min=1"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
		Notes        string `json:"notes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	supplier := models.Supplier{
		Name:         utils.Sanitize(strings.TrimSpace(req.Name)),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Notes:        utils.Sanitize(req.Notes),
	}
	if err := s.db.Create(&supplier).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50100, "failed to create supplier")
		return
	}
	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"supplier": supplier}})
}

// List returns paginated suppliers.
func (s *SupplierController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	var suppliers []models.Supplier
	var total int64

	query := s.db.Order("name ASC")
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if err := query.Model(&models.Supplier{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50101, "failed to count suppliers")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&suppliers).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50102, "failed to list suppliers")
		return
	}

	utils.Success(ctx, gin.H{
		"items": suppliers,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Get returns a single supplier.
func (s *SupplierController) Get(ctx *gin.Context) {
	var supplier models.Supplier
	if err := s.db.First(&supplier, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40500, "supplier not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50103, "failed to load supplier")
		return
	}
	utils.Success(ctx, gin.H{"supplier": supplier})
}

// Update edits supplier fields.
func (s *SupplierController) Update(ctx *gin.Context) {
	var req struct {
		Name         string `json:"name"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
		Notes        string `json:"notes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var supplier models.Supplier
	if err := s.db.First(&supplier, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40500, "supplier not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50103, "failed to load supplier")
		return
	}

	if req.Name != "" {
		supplier.Name = utils.Sanitize(strings.TrimSpace(req.Name))
	}
	if req.ContactEmail != "" {
		supplier.ContactEmail = strings.TrimSpace(req.ContactEmail)
	}
	if req.ContactPhone != "" {
		supplier.ContactPhone = strings.TrimSpace(req.ContactPhone)
	}
	if req.Notes != "" {
		supplier.Notes = utils.Sanitize(req.Notes)
	}

	if err := s.db.Save(&supplier).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50104, "failed to update supplier")
		return
	}
	utils.Success(ctx, gin.H{"supplier": supplier})
}

// Delete removes a supplier that no inventory item references.
func (s *SupplierController) Delete(ctx *gin.Context) {
	var supplier models.Supplier
	if err := s.db.First(&supplier, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40500, "supplier not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50103, "failed to load supplier")
		return
	}

	var inUse int64
	if err := s.db.Model(&models.InventoryItem{}).Where("supplier_id = ?", supplier.ID).Count(&inUse).Error; err == nil && inUse > 0 {
		utils.Error(ctx, http.StatusConflict, 40931, "supplier is referenced by inventory items")
		return
	}

	if err := s.db.Delete(&supplier).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50105, "failed to delete supplier")
		return
	}
	utils.Success(ctx, gin.H{"message": "supplier deleted"})
}
