package models

import "time"

// Experiment statuses.
const (
	ExperimentDraft    = "draft"
	ExperimentRunning  = "running"
	ExperimentAnalyzed = "analyzed"
	ExperimentArchived = "archived"
)

// ValidExperimentStatuses lists the accepted experiment statuses.
var ValidExperimentStatuses = []string{ExperimentDraft, ExperimentRunning, ExperimentAnalyzed, ExperimentArchived}

// Experiment records a protocol run within a project.
type Experiment struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProjectID  uint       `gorm:"index;not null" json:"project_id"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	Protocol   string     `gorm:"type:text" json:"protocol"`
	Results    string     `gorm:"type:text" json:"results"`
	Status     string     `gorm:"size:32;default:'draft'" json:"status"`
	OwnerID    uint       `gorm:"index" json:"owner_id"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Owner      User       `gorm:"foreignKey:OwnerID" json:"owner"`
}

// IsValidExperimentStatus reports whether s is a known experiment status.
func IsValidExperimentStatus(s string) bool {
	for _, v := range ValidExperimentStatuses {
		if v == s {
			return true
		}
	}
	return false
}
