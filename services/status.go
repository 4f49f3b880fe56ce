package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamclock/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SetStatusParams struct {
	UserID uint
	Status string
	Note   string
	// Date is YYYY-MM-DD and defaults to today.
	Date string
}

// TodayStatus is a user's own status for the current day.
type TodayStatus struct {
	Status models.StatusTag `json:"status"`
	Note   string           `json:"note,omitempty"`
	Date   string           `json:"date,omitempty"`
}

// StatusService records the daily normal/late/pto tags.
type StatusService struct {
	Deps
}

func NewStatusService(deps Deps) *StatusService {
	return &StatusService{Deps: deps.withDefaults("status")}
}

// Set stores the status of a user for one day. A second call for the same
// day overwrites the first.
func (s *StatusService) Set(ctx context.Context, actor *models.User, params SetStatusParams) (*models.TeamStatus, error) {
	if params.UserID == 0 || params.Status == "" {
		return nil, invalid("user_id and status are required.")
	}
	tag := models.StatusTag(params.Status)
	if !tag.Valid() {
		return nil, invalid("Invalid status.")
	}
	target, err := loadUser(ctx, s.DB, params.UserID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanSetStatus(actor, target) {
		return nil, ErrForbidden
	}

	date := s.today()
	if d := strings.TrimSpace(params.Date); d != "" {
		parsed, err := time.Parse(models.DateLayout, d)
		if err != nil {
			return nil, invalid("Invalid date format (use YYYY-MM-DD).")
		}
		date = parsed.Format(models.DateLayout)
	}
	note := params.Note
	if len(note) > 255 {
		return nil, invalid("note may not exceed 255 characters.")
	}

	row := models.TeamStatus{UserID: target.ID, Date: date, Status: tag, Note: note}
	db := s.DB.WithContext(ctx)
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "note", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("upsert status of user %d on %s: %w", target.ID, date, err)
	}

	var stored models.TeamStatus
	if err := db.Where("user_id = ? AND date = ?", target.ID, date).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload status of user %d on %s: %w", target.ID, date, err)
	}
	s.Logger.Info("status set", "actor_id", actor.ID, "user_id", target.ID, "date", date, "status", tag)
	return &stored, nil
}

// Today returns actor's status for the current day, normal when unset.
func (s *StatusService) Today(ctx context.Context, actor *models.User) (*TodayStatus, error) {
	today := s.today()
	statuses, err := statusesOn(ctx, s.DB, []uint{actor.ID}, today)
	if err != nil {
		return nil, err
	}
	st, ok := statuses[actor.ID]
	if !ok {
		return &TodayStatus{Status: models.StatusNormal}, nil
	}
	return &TodayStatus{Status: st.Status, Note: st.Note, Date: today}, nil
}

func statusesOn(ctx context.Context, db *gorm.DB, userIDs []uint, date string) (map[uint]models.TeamStatus, error) {
	statuses := make(map[uint]models.TeamStatus, len(userIDs))
	if len(userIDs) == 0 {
		return statuses, nil
	}
	var rows []models.TeamStatus
	if err := db.WithContext(ctx).Where("user_id IN ? AND date = ?", userIDs, date).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list statuses on %s: %w", date, err)
	}
	for _, row := range rows {
		statuses[row.UserID] = row
	}
	return statuses, nil
}
