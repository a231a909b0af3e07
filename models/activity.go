package models

import "time"

// Activity is a persisted audit event emitted by the handlers through the
// events bus. Meta carries a JSON object with event specific fields.
type Activity struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Type        string    `gorm:"size:64;index;not null" json:"type"`
	Description string    `gorm:"size:512" json:"description"`
	UserID      uint      `gorm:"index" json:"user_id"`
	Meta        string    `gorm:"type:text" json:"meta"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
