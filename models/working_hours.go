package models

import (
	"time"
)

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WorkingHours is one day of a user's weekly schedule. Days run 0=Monday
// through 6=Sunday.
type WorkingHours struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;uniqueIndex:ux_working_hours_user_day" json:"-"`
	DayOfWeek int    `gorm:"not null;uniqueIndex:ux_working_hours_user_day" json:"day_of_week"`
	StartTime string `gorm:"not null;size:8" json:"start_time"`
	EndTime   string `gorm:"not null;size:8" json:"end_time"`
}

func (w *WorkingHours) DayName() string {
	if !ValidDay(w.DayOfWeek) {
		return ""
	}
	return dayNames[w.DayOfWeek]
}

func ValidDay(day int) bool {
	return day >= 0 && day <= 6
}

// MondayIndex maps time.Weekday onto the Monday-first numbering.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
