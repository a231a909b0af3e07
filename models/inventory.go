package models

import "time"

// InventoryItem tracks stock of a reagent or consumable in a warehouse.
type InventoryItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SKU         string    `gorm:"size:64;uniqueIndex" json:"sku"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Quantity    int64     `gorm:"not null;default:0" json:"quantity"`
	Unit        string    `gorm:"size:32" json:"unit"`
	MinQuantity int64     `gorm:"default:0" json:"min_quantity"` // reorder threshold
	SupplierID  uint      `gorm:"index" json:"supplier_id"`
	WarehouseID uint      `gorm:"index" json:"warehouse_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Supplier    Supplier  `gorm:"foreignKey:SupplierID" json:"supplier"`
	Warehouse   Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse"`
}
