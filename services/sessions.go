package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamclock/database"
	"teamclock/models"

	"gorm.io/gorm"
)

const (
	ownEntriesLimit     = 200
	managedEntriesLimit = 300
)

// SessionManager owns clock-in/clock-out and time entry corrections.
type SessionManager struct {
	Deps
}

func NewSessionManager(deps Deps) *SessionManager {
	return &SessionManager{Deps: deps.withDefaults("sessions")}
}

// ClockIn opens a new session for actor. The open-session index backs the
// check, so two racing requests cannot both succeed.
func (m *SessionManager) ClockIn(ctx context.Context, actor *models.User) (*models.TimeEntry, error) {
	logger := m.Logger.With("operation", "clock_in", "user_id", actor.ID)

	entry := models.TimeEntry{UserID: actor.ID, ClockIn: m.now()}
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := latestOpenEntry(tx, actor.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrAlreadyOpenSession
		}
		if err := tx.Create(&entry).Error; err != nil {
			if database.ViolatesIndex(err, models.OpenSessionIndex) {
				return ErrAlreadyOpenSession
			}
			return fmt.Errorf("create time entry: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("clock in rejected", "kind", ErrorKind(err), "error", err)
		return nil, err
	}

	logger.Info("clocked in", "entry_id", entry.ID)
	return &entry, nil
}

// ClockOut closes actor's most recent open session.
func (m *SessionManager) ClockOut(ctx context.Context, actor *models.User) (*models.TimeEntry, error) {
	logger := m.Logger.With("operation", "clock_out", "user_id", actor.ID)

	var entry *models.TimeEntry
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := latestOpenEntry(tx, actor.ID)
		if err != nil {
			return err
		}
		if open == nil {
			return ErrNoOpenSession
		}

		end := m.now()
		open.ClockOut = &end
		open.ComputeTotalHours()

		result := tx.Model(&models.TimeEntry{}).
			Where("id = ? AND clock_out IS NULL", open.ID).
			Updates(map[string]any{"clock_out": end, "total_hours": *open.TotalHours})
		if result.Error != nil {
			return fmt.Errorf("close time entry %d: %w", open.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNoOpenSession
		}
		entry = open
		return nil
	})
	if err != nil {
		logger.Warn("clock out rejected", "kind", ErrorKind(err), "error", err)
		return nil, err
	}

	logger.Info("clocked out", "entry_id", entry.ID, "total_hours", *entry.TotalHours)
	return entry, nil
}

// UpsertParams are the raw inputs of a privileged time entry correction.
type UpsertParams struct {
	UserID   uint
	ClockIn  string
	ClockOut string
	EntryID  uint
}

// Upsert creates an entry for the target user, or rewrites EntryID when set.
// Timestamps are taken verbatim from the caller.
func (m *SessionManager) Upsert(ctx context.Context, actor *models.User, params UpsertParams) (*models.TimeEntry, error) {
	if params.UserID == 0 || strings.TrimSpace(params.ClockIn) == "" {
		return nil, invalid("user_id and clock_in are required.")
	}

	target, err := loadUser(ctx, m.DB, params.UserID)
	if err != nil {
		return nil, err
	}
	if !m.Policy.CanEditTimeEntries(actor, target) {
		return nil, ErrForbidden
	}

	clockIn, err := ParseTimestamp(params.ClockIn)
	if err != nil {
		return nil, newError(ErrInvalidTimestamp, "Invalid clock_in format (ISO datetime).")
	}
	var clockOut *time.Time
	if strings.TrimSpace(params.ClockOut) != "" {
		out, err := ParseTimestamp(params.ClockOut)
		if err != nil {
			return nil, newError(ErrInvalidTimestamp, "Invalid clock_out format (ISO datetime).")
		}
		if out.Before(clockIn) {
			return nil, invalid("clock_out must not be before clock_in.")
		}
		clockOut = &out
	}

	entry := models.TimeEntry{UserID: target.ID}
	db := m.DB.WithContext(ctx)
	if params.EntryID != 0 {
		err := db.Where("id = ? AND user_id = ?", params.EntryID, target.ID).First(&entry).Error
		if err != nil {
			if database.IsNotFound(err) {
				return nil, notFound("Time entry")
			}
			return nil, fmt.Errorf("load time entry %d: %w", params.EntryID, err)
		}
	}
	entry.ClockIn = normalize(clockIn)
	if clockOut != nil {
		out := normalize(*clockOut)
		clockOut = &out
	}
	entry.ClockOut = clockOut
	entry.ComputeTotalHours()

	if err := db.Save(&entry).Error; err != nil {
		if database.ViolatesIndex(err, models.OpenSessionIndex) {
			return nil, ErrAlreadyOpenSession
		}
		return nil, fmt.Errorf("save time entry: %w", err)
	}

	m.Logger.Info("time entry upserted",
		"actor_id", actor.ID, "user_id", target.ID, "entry_id", entry.ID, "updated", params.EntryID != 0)
	return &entry, nil
}

// ListEntries returns ownerID's entries, newest first. Viewing someone else
// goes through the policy and allows a longer history.
func (m *SessionManager) ListEntries(ctx context.Context, actor *models.User, ownerID uint) ([]models.TimeEntry, error) {
	limit := ownEntriesLimit
	if ownerID != actor.ID {
		owner, err := loadUser(ctx, m.DB, ownerID)
		if err != nil {
			return nil, err
		}
		if !m.Policy.CanViewTimeEntries(actor, owner) {
			return nil, ErrForbidden
		}
		limit = managedEntriesLimit
	}

	entries := make([]models.TimeEntry, 0)
	err := m.DB.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("clock_in desc, created_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list time entries for user %d: %w", ownerID, err)
	}
	return entries, nil
}

// OpenEntries maps each given user to their most recent open entry.
func (m *SessionManager) OpenEntries(ctx context.Context, userIDs []uint) (map[uint]models.TimeEntry, error) {
	return openEntriesByUser(ctx, m.DB, userIDs)
}

func openEntriesByUser(ctx context.Context, db *gorm.DB, userIDs []uint) (map[uint]models.TimeEntry, error) {
	open := make(map[uint]models.TimeEntry, len(userIDs))
	if len(userIDs) == 0 {
		return open, nil
	}
	var entries []models.TimeEntry
	err := db.WithContext(ctx).
		Where("user_id IN ? AND clock_out IS NULL", userIDs).
		Order("clock_in asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list open entries: %w", err)
	}
	for _, e := range entries {
		open[e.UserID] = e
	}
	return open, nil
}

func latestOpenEntry(tx *gorm.DB, userID uint) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := tx.Where("user_id = ? AND clock_out IS NULL", userID).Order("clock_in desc").First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open entry for user %d: %w", userID, err)
	}
	return &entry, nil
}
