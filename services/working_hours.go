package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamclock/models"

	"gorm.io/gorm"
)

var clockLayouts = []string{"15:04:05", "15:04"}

// ScheduleItem is one requested day of a weekly schedule.
type ScheduleItem struct {
	DayOfWeek *int
	StartTime string
	EndTime   string
}

type WorkingHoursView struct {
	models.WorkingHours
	DayName string `json:"day_name"`
}

// WorkingHoursService keeps the weekly schedule of each user.
type WorkingHoursService struct {
	Deps
}

func NewWorkingHoursService(deps Deps) *WorkingHoursService {
	return &WorkingHoursService{Deps: deps.withDefaults("working_hours")}
}

func (s *WorkingHoursService) Get(ctx context.Context, actor *models.User, userID uint) ([]WorkingHoursView, error) {
	target, err := s.authorize(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	var rows []models.WorkingHours
	if err := s.DB.WithContext(ctx).Where("user_id = ?", target.ID).Order("day_of_week asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list working hours of user %d: %w", target.ID, err)
	}
	return workingHoursViews(rows), nil
}

// Replace swaps the whole schedule of userID for items. Items with a bad
// day or time, and repeats of a day already seen, are dropped; only the
// stored rows are returned.
func (s *WorkingHoursService) Replace(ctx context.Context, actor *models.User, userID uint, items []ScheduleItem) ([]WorkingHoursView, error) {
	target, err := s.authorize(ctx, actor, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]models.WorkingHours, 0, len(items))
	seen := make(map[int]bool, len(items))
	for _, item := range items {
		if item.DayOfWeek == nil || !models.ValidDay(*item.DayOfWeek) || seen[*item.DayOfWeek] {
			continue
		}
		start, ok := parseClock(item.StartTime)
		if !ok {
			continue
		}
		end, ok := parseClock(item.EndTime)
		if !ok {
			continue
		}
		seen[*item.DayOfWeek] = true
		rows = append(rows, models.WorkingHours{
			UserID:    target.ID,
			DayOfWeek: *item.DayOfWeek,
			StartTime: start,
			EndTime:   end,
		})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", target.ID).Delete(&models.WorkingHours{}).Error; err != nil {
			return fmt.Errorf("clear working hours of user %d: %w", target.ID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("store working hours of user %d: %w", target.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("working hours replaced",
		"actor_id", actor.ID, "user_id", target.ID, "requested", len(items), "stored", len(rows))
	return workingHoursViews(rows), nil
}

func (s *WorkingHoursService) authorize(ctx context.Context, actor *models.User, userID uint) (*models.User, error) {
	target, err := loadUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanManageWorkingHours(actor, target) {
		return nil, ErrForbidden
	}
	return target, nil
}

func workingHoursViews(rows []models.WorkingHours) []WorkingHoursView {
	views := make([]WorkingHoursView, 0, len(rows))
	for _, row := range rows {
		views = append(views, WorkingHoursView{WorkingHours: row, DayName: row.DayName()})
	}
	return views
}

// parseClock accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func parseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}
