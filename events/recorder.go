package events

import (
	"gorm.io/gorm"

	"github.com/labworks/labops/models"
)

// DBRecorder persists events as activity rows.
type DBRecorder struct {
	db *gorm.DB
}

func NewDBRecorder(db *gorm.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

func (r *DBRecorder) Record(evt Event) error {
	row := models.Activity{
		Type:        evt.Type,
		Description: evt.Description,
		UserID:      evt.UserID,
		Meta:        EncodeMeta(evt.Meta),
	}
	return r.db.Create(&row).Error
}
