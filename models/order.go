package models

import "time"

// Order statuses.
const (
	OrderDraft     = "draft"
	OrderPlaced    = "placed"
	OrderReceived  = "received"
	OrderCancelled = "cancelled"
)

// ValidOrderStatuses lists the accepted order statuses.
var ValidOrderStatuses = []string{OrderDraft, OrderPlaced, OrderReceived, OrderCancelled}

// Order is a purchase order against a supplier.
// Items holds a JSON snapshot of the ordered lines so the order stays
// readable after inventory records change.
type Order struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Number     string     `gorm:"size:64;uniqueIndex" json:"number"`
	SupplierID uint       `gorm:"index;not null" json:"supplier_id"`
	Status     string     `gorm:"size:32;default:'draft'" json:"status"`
	Items      string     `gorm:"type:text" json:"items"` // JSON array of {sku, name, quantity, unit_price}
	TotalCents int64      `gorm:"default:0" json:"total_cents"`
	Currency   string     `gorm:"size:8;default:'USD'" json:"currency"`
	PlacedByID uint       `gorm:"index" json:"placed_by_id"`
	PlacedAt   *time.Time `json:"placed_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Supplier   Supplier   `gorm:"foreignKey:SupplierID" json:"supplier"`
	PlacedBy   User       `gorm:"foreignKey:PlacedByID" json:"placed_by"`
}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s string) bool {
	for _, v := range ValidOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}
