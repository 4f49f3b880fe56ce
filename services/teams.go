package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamclock/database"
	"teamclock/models"

	"gorm.io/gorm"
)

// TeamView is a team with its member count and managers.
type TeamView struct {
	models.Team
	MembersCount int           `json:"members_count"`
	Managers     []MemberBrief `json:"managers"`
}

type MemberBrief struct {
	ID       uint        `json:"id"`
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

// RosterEntry is one user's live state as seen by a manager.
type RosterEntry struct {
	ID              uint             `json:"id"`
	FullName        string           `json:"full_name"`
	Email           string           `json:"email"`
	Role            models.Role      `json:"role"`
	TeamID          *uint            `json:"team_id,omitempty"`
	TeamName        *string          `json:"team_name,omitempty"`
	IsClockedIn     bool             `json:"is_clocked_in"`
	OpenClockIn     *time.Time       `json:"open_clock_in"`
	TodayStatus     models.StatusTag `json:"today_status"`
	TodayStatusNote string           `json:"today_status_note"`
}

// MyTeam is the team overview of an ordinary member.
type MyTeam struct {
	TeamName *string       `json:"team_name"`
	TeamID   *uint         `json:"team_id"`
	Manager  *RosterEntry  `json:"manager"`
	Members  []RosterEntry `json:"members"`
}

type TeamParams struct {
	Name        *string
	Description *string
}

// TeamService manages teams and their membership.
type TeamService struct {
	Deps
}

func NewTeamService(deps Deps) *TeamService {
	return &TeamService{Deps: deps.withDefaults("teams")}
}

// List returns every team for admins and the own team for everyone else.
func (s *TeamService) List(ctx context.Context, actor *models.User) ([]TeamView, error) {
	query := s.DB.WithContext(ctx).Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Order("created_at desc, id desc")
	if !s.Policy.CanManageTeams(actor) {
		if actor.TeamID == nil {
			return []TeamView{}, nil
		}
		query = query.Where("id = ?", *actor.TeamID)
	}

	var teams []models.Team
	if err := query.Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	views := make([]TeamView, 0, len(teams))
	for _, t := range teams {
		views = append(views, newTeamView(t))
	}
	return views, nil
}

func (s *TeamService) Create(ctx context.Context, actor *models.User, params TeamParams) (*TeamView, error) {
	if !s.Policy.CanManageTeams(actor) {
		return nil, forbidden("Only admins can create teams.")
	}
	team := models.Team{CreatedBy: &actor.ID}
	if err := applyTeamParams(&team, params, true); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&team).Error; err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	s.Logger.Info("team created", "team_id", team.ID, "actor_id", actor.ID)
	view := newTeamView(team)
	return &view, nil
}

func (s *TeamService) Get(ctx context.Context, actor *models.User, teamID uint) (*TeamView, error) {
	if !s.Policy.CanManageTeams(actor) {
		return nil, ErrForbidden
	}
	team, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	view := newTeamView(*team)
	return &view, nil
}

func (s *TeamService) Update(ctx context.Context, actor *models.User, teamID uint, params TeamParams) (*TeamView, error) {
	if !s.Policy.CanManageTeams(actor) {
		return nil, ErrForbidden
	}
	team, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := applyTeamParams(team, params, false); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Model(team).Select("name", "description").Updates(team).Error
	if err != nil {
		return nil, fmt.Errorf("update team %d: %w", team.ID, err)
	}
	view := newTeamView(*team)
	return &view, nil
}

// Delete removes a team. Its members stay, without a team.
func (s *TeamService) Delete(ctx context.Context, actor *models.User, teamID uint) error {
	if !s.Policy.CanManageTeams(actor) {
		return ErrForbidden
	}
	team, err := s.load(ctx, teamID)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("team_id = ?", team.ID).Update("team_id", nil).Error; err != nil {
			return fmt.Errorf("detach members of team %d: %w", team.ID, err)
		}
		if err := tx.Delete(&models.Team{}, team.ID).Error; err != nil {
			return fmt.Errorf("delete team %d: %w", team.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("team deleted", "team_id", team.ID, "actor_id", actor.ID, "members", len(team.Members))
	return nil
}

// AssignMember moves userID into teamID, or out of any team when teamID is
// nil. It returns the team joined, if any.
func (s *TeamService) AssignMember(ctx context.Context, actor *models.User, userID uint, teamID *uint) (*models.Team, error) {
	if userID == 0 {
		return nil, invalid("user_id is required.")
	}
	target, err := loadUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	var team *models.Team
	if teamID != nil {
		if team, err = s.load(ctx, *teamID); err != nil {
			return nil, err
		}
	}
	if !s.Policy.CanAssignTeam(actor, target, teamID) {
		return nil, ErrForbidden
	}
	if err := s.DB.WithContext(ctx).Model(target).Update("team_id", teamID).Error; err != nil {
		return nil, fmt.Errorf("assign user %d to team: %w", target.ID, err)
	}
	s.Logger.Info("team membership changed", "actor_id", actor.ID, "user_id", target.ID, "team_id", teamID)
	return team, nil
}

// TeamMembers returns the roster actor may oversee, ordered by name.
func (s *TeamService) TeamMembers(ctx context.Context, actor *models.User) ([]RosterEntry, error) {
	if !s.Policy.CanViewRoster(actor) {
		return nil, ErrForbidden
	}
	users, err := scopedUsers(ctx, s.DB, actor)
	if err != nil {
		return nil, err
	}
	entries, err := s.roster(ctx, users)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].TeamID = users[i].TeamID
		if users[i].Team != nil {
			name := users[i].Team.Name
			entries[i].TeamName = &name
		}
	}
	return entries, nil
}

// MyTeam describes actor's team: its manager and the remaining members.
// The manager is the first manager by id other than actor.
func (s *TeamService) MyTeam(ctx context.Context, actor *models.User) (*MyTeam, error) {
	view := &MyTeam{Members: []RosterEntry{}}
	if actor.TeamID == nil {
		return view, nil
	}
	team, err := s.load(ctx, *actor.TeamID)
	if err != nil {
		return nil, err
	}
	view.TeamID = &team.ID
	view.TeamName = &team.Name

	var manager *models.User
	for i := range team.Members {
		if team.Members[i].ID != actor.ID && team.Members[i].IsManager() {
			manager = &team.Members[i]
			break
		}
	}

	var users []models.User
	for _, u := range team.Members {
		if u.ID == actor.ID || (manager != nil && u.ID == manager.ID) {
			continue
		}
		users = append(users, u)
	}
	sortByName(users)
	if manager != nil {
		users = append(users, *manager)
	}

	entries, err := s.roster(ctx, users)
	if err != nil {
		return nil, err
	}
	if manager != nil {
		last := entries[len(entries)-1]
		view.Manager = &last
		entries = entries[:len(entries)-1]
	}
	view.Members = entries
	return view, nil
}

func (s *TeamService) roster(ctx context.Context, users []models.User) ([]RosterEntry, error) {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	open, err := openEntriesByUser(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	statuses, err := statusesOn(ctx, s.DB, ids, s.today())
	if err != nil {
		return nil, err
	}

	entries := make([]RosterEntry, 0, len(users))
	for _, u := range users {
		entry := RosterEntry{
			ID:          u.ID,
			FullName:    u.FullName(),
			Email:       u.Email,
			Role:        u.Role,
			TodayStatus: models.StatusNormal,
		}
		if e, ok := open[u.ID]; ok {
			clockIn := e.ClockIn
			entry.IsClockedIn = true
			entry.OpenClockIn = &clockIn
		}
		if st, ok := statuses[u.ID]; ok {
			entry.TodayStatus = st.Status
			entry.TodayStatusNote = st.Note
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *TeamService) load(ctx context.Context, teamID uint) (*models.Team, error) {
	var team models.Team
	err := s.DB.WithContext(ctx).Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&team, teamID).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("Team")
		}
		return nil, fmt.Errorf("load team %d: %w", teamID, err)
	}
	return &team, nil
}

func newTeamView(team models.Team) TeamView {
	view := TeamView{Team: team, MembersCount: len(team.Members), Managers: []MemberBrief{}}
	for _, m := range team.Members {
		if m.IsManager() || m.IsAdmin() {
			view.Managers = append(view.Managers, MemberBrief{
				ID:       m.ID,
				FullName: m.FullName(),
				Email:    m.Email,
				Role:     m.Role,
			})
		}
	}
	return view
}

func applyTeamParams(team *models.Team, params TeamParams, create bool) error {
	if params.Name != nil {
		team.Name = strings.TrimSpace(*params.Name)
	}
	if (create || params.Name != nil) && team.Name == "" {
		return invalid("name is required.")
	}
	if params.Description != nil {
		team.Description = *params.Description
	}
	return nil
}
