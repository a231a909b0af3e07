package models

import "time"

// Setting is a key/value configuration row edited from the admin panel.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Category  string    `gorm:"size:64;index:idx_settings_cat_key,unique;not null" json:"category"`
	Key       string    `gorm:"size:128;index:idx_settings_cat_key,unique;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedBy uint      `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
