package models

import "time"

// Task statuses and priorities.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskDone       = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var (
	// ValidTaskStatuses lists the accepted task statuses.
	ValidTaskStatuses = []string{TaskTodo, TaskInProgress, TaskReview, TaskDone}
	// ValidTaskPriorities lists the accepted task priorities.
	ValidTaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

// Task represents a unit of work inside a project.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProjectID   uint       `gorm:"index;not null" json:"project_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"size:32;default:'todo'" json:"status"`
	Priority    string     `gorm:"size:16;default:'medium'" json:"priority"`
	AssigneeID  uint       `gorm:"index" json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Assignee    User       `gorm:"foreignKey:AssigneeID" json:"assignee"`
}

// IsValidTaskStatus reports whether s is a known task status.
func IsValidTaskStatus(s string) bool {
	for _, v := range ValidTaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidTaskPriority reports whether p is a known task priority.
func IsValidTaskPriority(p string) bool {
	for _, v := range ValidTaskPriorities {
		if v == p {
			return true
		}
	}
	return false
}
