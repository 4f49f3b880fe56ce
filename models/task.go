package models

import (
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Title             string     `gorm:"not null;size:255" json:"title"`
	Description       string     `gorm:"not null;default:''" json:"description"`
	Priority          Priority   `gorm:"not null;size:10;default:'medium'" json:"priority"`
	EstimatedDuration float64    `gorm:"not null" json:"estimated_duration"`
	Progress          int        `gorm:"not null;default:0" json:"progress"`
	DueDate           *time.Time `json:"due_date"`
	CreatedByID       uint       `gorm:"column:created_by;not null;index" json:"created_by"`
	CreatedBy         *User      `gorm:"foreignKey:CreatedByID" json:"-"`
	AssignedToID      uint       `gorm:"column:assigned_to;not null;index" json:"assigned_to"`
	AssignedTo        *User      `gorm:"foreignKey:AssignedToID" json:"-"`
}

// Involves reports whether userID created or is assigned the task.
func (t *Task) Involves(userID uint) bool {
	return t.CreatedByID == userID || t.AssignedToID == userID
}
