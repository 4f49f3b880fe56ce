package models

import (
	"time"
)

type StatusTag string

const (
	StatusNormal StatusTag = "normal"
	StatusLate   StatusTag = "late"
	StatusPTO    StatusTag = "pto"
)

// DateLayout is the wire and storage layout of TeamStatus.Date.
const DateLayout = "2006-01-02"

func (s StatusTag) Valid() bool {
	switch s {
	case StatusNormal, StatusLate, StatusPTO:
		return true
	}
	return false
}

// TeamStatus is the daily status tag of one user. One row per (user, date).
type TeamStatus struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_team_status_user_date" json:"user"`
	Date      string    `gorm:"not null;size:10;uniqueIndex:ux_team_status_user_date" json:"date"`
	Status    StatusTag `gorm:"not null;size:10;default:'normal'" json:"status"`
	Note      string    `gorm:"not null;size:255;default:''" json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamStatus) TableName() string {
	return "team_statuses"
}
