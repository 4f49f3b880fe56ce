package models

import (
	"math"
	"time"
)

// OpenSessionIndex is the partial unique index that allows at most one
// TimeEntry without a clock-out per user.
const OpenSessionIndex = "ux_time_entries_open_session"

type TimeEntry struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"-"`
	ClockIn    time.Time  `gorm:"not null;index" json:"clock_in"`
	ClockOut   *time.Time `json:"clock_out"`
	TotalHours *float64   `json:"total_hours"`
}

// IsOpen reports whether the entry is a running session.
func (e *TimeEntry) IsOpen() bool {
	return e.ClockOut == nil
}

// ComputeTotalHours sets TotalHours from the clock-in/clock-out pair, or
// clears it when the entry is still open.
func (e *TimeEntry) ComputeTotalHours() {
	if e.ClockOut == nil || e.ClockIn.IsZero() {
		e.TotalHours = nil
		return
	}
	hours := RoundHours(e.ClockOut.Sub(e.ClockIn))
	e.TotalHours = &hours
}

// RoundHours converts d to hours rounded to two decimals.
func RoundHours(d time.Duration) float64 {
	return math.Round(d.Seconds()/3600*100) / 100
}
