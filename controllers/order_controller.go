package controllers

import (
	"encoding/json"
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

// OrderController manages purchase orders against suppliers.
type OrderController struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewOrderController creates a new OrderController instance.
func NewOrderController(db *gorm.DB, bus *events.Bus) *OrderController {
	return &OrderController{db: db, bus: bus}
}

type orderLine struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
}

// Create adds a draft order with a line-item snapshot.
func (o *OrderController) Create(ctx *gin.Context) {
	var req struct {
		SupplierID uint        `json:"supplier_id" binding:"required"`
		Currency   string      `json:"currency"`
		Items      []orderLine `json:"items" binding:"required,min=1"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var supplier models.Supplier
	if err := o.db.First(&supplier, req.SupplierID).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40100, "supplier does not exist")
		return
	}

	var total int64
	for _, line := range req.Items {
		if line.Quantity <= 0 || line.UnitCents < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40101, "invalid order line")
			return
		}
		total += line.Quantity * line.UnitCents
	}
	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40101, "invalid order line")
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	order := models.Order{
		Number:     fmt.Sprintf("PO-%s-%d", time.Now().Format("20060102"), time.Now().UnixNano()%100000),
		SupplierID: req.SupplierID,
		Status:     models.OrderDraft,
		Items:      string(itemsJSON),
		TotalCents: total,
		Currency:   currency,
		PlacedByID: getUserIDOrZero(ctx),
	}
	if err := o.db.Create(&order).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50120, "failed to create order")
		return
	}
	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"order": order}})
}

// List returns paginated orders, filterable by supplier and status.
func (o *OrderController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var orders []models.Order
	var total int64

	query := o.db.Preload("Supplier").Preload("PlacedBy").Order("created_at DESC")
	if v := strings.TrimSpace(ctx.Query("supplier_id")); v != "" {
		query = query.Where("supplier_id = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("status")); v != "" {
		query = query.Where("status = ?", v)
	}
	if err := query.Model(&models.Order{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50121, "failed to count orders")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&orders).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50122, "failed to list orders")
		return
	}

	utils.Success(ctx, gin.H{
		"items": orders,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Get returns a single order.
func (o *OrderController) Get(ctx *gin.Context) {
	var order models.Order
	if err := o.db.Preload("Supplier").Preload("PlacedBy").First(&order, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40520, "order not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50123, "failed to load order")
		return
	}
	utils.Success(ctx, gin.H{"order": order})
}

// allowed order status transitions
var orderTransitions = map[string][]string{
	models.OrderDraft:     {models.OrderPlaced, models.OrderCancelled},
	models.OrderPlaced:    {models.OrderReceived, models.OrderCancelled},
	models.OrderReceived:  {},
	models.OrderCancelled: {},
}

// UpdateStatus advances an order through its lifecycle. Receiving an order
// increments stock for every line whose SKU matches an inventory item.
func (o *OrderController) UpdateStatus(ctx *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if !models.IsValidOrderStatus(req.Status) {
		utils.Error(ctx, http.StatusBadRequest, 40102, "invalid order status")
		return
	}

	var order models.Order
	if err := o.db.First(&order, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40520, "order not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50123, "failed to load order")
		return
	}

	if !transitionAllowed(order.Status, req.Status) {
		utils.Error(ctx, http.StatusConflict, 40940, fmt.Sprintf("cannot move order from %s to %s", order.Status, req.Status))
		return
	}

	order.Status = req.Status
	if req.Status == models.OrderPlaced {
		now := time.Now()
		order.PlacedAt = &now
		order.PlacedByID = getUserIDOrZero(ctx)
	}

	err := o.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		if req.Status == models.OrderReceived {
			return o.restock(tx, &order)
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50124, "failed to update order")
		return
	}

	if o.bus != nil && req.Status == models.OrderPlaced {
		o.bus.Publish(events.Event{
			Type:        events.OrderPlaced,
			Description: fmt.Sprintf("order %s placed", order.Number),
			UserID:      order.PlacedByID,
			Meta:        map[string]any{"order_id": order.ID, "total_cents": order.TotalCents},
		})
	}
	utils.Success(ctx, gin.H{"order": order})
}

// restock applies a received order's lines to inventory quantities.
func (o *OrderController) restock(tx *gorm.DB, order *models.Order) error {
	var lines []orderLine
	if err := json.Unmarshal([]byte(order.Items), &lines); err != nil {
		return err
	}
	for _, line := range lines {
		if line.SKU == "" || line.Quantity <= 0 {
			continue
		}
		res := tx.Model(&models.InventoryItem{}).
			Where("sku = ?", line.SKU).
			Update("quantity", gorm.Expr("quantity + ?", line.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			utils.Sugar.Warnf("order %s line sku %s has no inventory item, skipping restock", order.Number, line.SKU)
		}
	}
	return nil
}

// Delete removes a draft order. Placed orders are part of the audit trail
// and can only be cancelled.
func (o *OrderController) Delete(ctx *gin.Context) {
	var order models.Order
	if err := o.db.First(&order, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40520, "order not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50123, "failed to load order")
		return
	}
	if order.Status != models.OrderDraft {
		utils.Error(ctx, http.StatusConflict, 40941, "only draft orders can be deleted")
		return
	}

	if err := o.db.Delete(&order).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50125, "failed to delete order")
		return
	}
	utils.Success(ctx, gin.H{"message": "order deleted"})
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
