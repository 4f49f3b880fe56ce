// Package services holds the time-tracking and task rules. Every operation
// takes the acting user explicitly, consults the policy, and then reads or
// writes through gorm.
package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"teamclock/database"
	"teamclock/models"
	"teamclock/policy"

	"gorm.io/gorm"
)

// Deps bundles what every service needs.
type Deps struct {
	DB     *gorm.DB
	Policy policy.Policy
	Now    func() time.Time
	// Location decides what "today" means for statuses and reports.
	Location *time.Location
	Logger   *slog.Logger
}

func (d Deps) withDefaults(service string) Deps {
	if d.Policy == nil {
		d.Policy = policy.NewTeamPolicy()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	d.Logger = d.Logger.With("service", service)
	return d
}

func (d Deps) now() time.Time {
	return normalize(d.Now())
}

// today returns the current calendar date in the configured zone.
func (d Deps) today() string {
	return d.Now().In(d.Location).Format(models.DateLayout)
}

func loadUser(ctx context.Context, db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("User")
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

// teamMemberIDs lists the users sharing teamID. A nil team has no members.
func teamMemberIDs(ctx context.Context, db *gorm.DB, teamID *uint) ([]uint, error) {
	if teamID == nil {
		return nil, nil
	}
	var ids []uint
	if err := db.WithContext(ctx).Model(&models.User{}).Where("team_id = ?", *teamID).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list team %d members: %w", *teamID, err)
	}
	return ids, nil
}

// scopedUsers returns the users whose data actor may review: everyone for
// admins, the own team for managers, nobody otherwise.
func scopedUsers(ctx context.Context, db *gorm.DB, actor *models.User) ([]models.User, error) {
	query := db.WithContext(ctx).Preload("Team").Order("last_name asc, first_name asc, id asc")
	var users []models.User
	switch {
	case actor.IsAdmin():
	case actor.IsManager() && actor.TeamID != nil:
		query = query.Where("team_id = ?", *actor.TeamID)
	default:
		return []models.User{}, nil
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list scoped users: %w", err)
	}
	return users, nil
}

func sortByName(users []models.User) {
	slices.SortFunc(users, func(a, b models.User) int {
		return cmp.Or(
			cmp.Compare(a.LastName, b.LastName),
			cmp.Compare(a.FirstName, b.FirstName),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

// Services wires one instance of every service onto shared dependencies.
type Services struct {
	Users        *UserStore
	Teams        *TeamService
	Sessions     *SessionManager
	Tasks        *TaskEngine
	Status       *StatusService
	WorkingHours *WorkingHoursService
	Reports      *ReportService
}

func New(deps Deps) *Services {
	return &Services{
		Users:        NewUserStore(deps),
		Teams:        NewTeamService(deps),
		Sessions:     NewSessionManager(deps),
		Tasks:        NewTaskEngine(deps),
		Status:       NewStatusService(deps),
		WorkingHours: NewWorkingHoursService(deps),
		Reports:      NewReportService(deps),
	}
}
