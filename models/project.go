package models

import "time"

// Project statuses.
const (
	ProjectPlanned   = "planned"
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
)

// ValidProjectStatuses lists the accepted project statuses.
var ValidProjectStatuses = []string{ProjectPlanned, ProjectActive, ProjectOnHold, ProjectCompleted}

// Project represents a research project grouping tasks and experiments.
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Code        string     `gorm:"size:32;uniqueIndex" json:"code"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"size:32;default:'planned'" json:"status"`
	LeadID      uint       `gorm:"index" json:"lead_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Lead        User       `gorm:"foreignKey:LeadID" json:"lead"`
	Tasks       []Task     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"tasks,omitempty"`
}

// IsValidProjectStatus reports whether s is a known project status.
func IsValidProjectStatus(s string) bool {
	for _, v := range ValidProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}
