package models

import "time"

// Supplier is an external vendor inventory items and orders reference.
type Supplier struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	ContactEmail string    `gorm:"size:255" json:"contact_email"`
	ContactPhone string    `gorm:"size:64" json:"contact_phone"`
	Notes        string    `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
