package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"teamclock/models"
)

// MemberReport sums up one user's recent hours and lateness.
type MemberReport struct {
	UserID     uint    `json:"user_id"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	TeamName   *string `json:"team_name"`
	HoursToday float64 `json:"hours_today"`
	HoursWeek  float64 `json:"hours_week"`
	LatesMonth int     `json:"lates_month"`
}

type ExportParams struct {
	Month  int
	Year   int
	TeamID *uint
}

// Export is the set of time entries of one month, ready to be written out.
type Export struct {
	Filename string
	Rows     []ExportRow
}

type ExportRow struct {
	Employee string
	Email    string
	Team     string
	ClockIn  time.Time
	ClockOut *time.Time
	Hours    *float64
}

// ReportService aggregates time entries and statuses for managers.
type ReportService struct {
	Deps
}

func NewReportService(deps Deps) *ReportService {
	return &ReportService{Deps: deps.withDefaults("reports")}
}

// Team reports on every user in actor's scope. Open sessions count up to
// now; weeks start on Monday.
func (s *ReportService) Team(ctx context.Context, actor *models.User) ([]MemberReport, error) {
	if !s.Policy.CanViewRoster(actor) {
		return nil, ErrForbidden
	}
	users, err := scopedUsers(ctx, s.DB, actor)
	if err != nil {
		return nil, err
	}
	reports := make([]MemberReport, 0, len(users))
	if len(users) == 0 {
		return reports, nil
	}
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	now := s.Now().In(s.Location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Location)
	weekStart := dayStart.AddDate(0, 0, -models.MondayIndex(dayStart.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.Location)

	var entries []models.TimeEntry
	err = s.DB.WithContext(ctx).
		Where("user_id IN ? AND clock_in >= ?", ids, weekStart.UTC()).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list entries since %s: %w", weekStart.Format(models.DateLayout), err)
	}
	today := make(map[uint]time.Duration, len(users))
	week := make(map[uint]time.Duration, len(users))
	for _, e := range entries {
		end := now
		if e.ClockOut != nil {
			end = *e.ClockOut
		}
		worked := end.Sub(e.ClockIn)
		if worked < 0 {
			continue
		}
		week[e.UserID] += worked
		if !e.ClockIn.Before(dayStart) {
			today[e.UserID] += worked
		}
	}

	type lateCount struct {
		UserID uint
		Count  int
	}
	var lates []lateCount
	err = s.DB.WithContext(ctx).Model(&models.TeamStatus{}).
		Select("user_id, COUNT(*) AS count").
		Where("user_id IN ? AND status = ? AND date >= ? AND date < ?", ids, models.StatusLate,
			monthStart.Format(models.DateLayout), monthStart.AddDate(0, 1, 0).Format(models.DateLayout)).
		Group("user_id").
		Scan(&lates).Error
	if err != nil {
		return nil, fmt.Errorf("count late statuses: %w", err)
	}
	lateByUser := make(map[uint]int, len(lates))
	for _, l := range lates {
		lateByUser[l.UserID] = l.Count
	}

	for _, u := range users {
		report := MemberReport{
			UserID:     u.ID,
			FullName:   u.FullName(),
			Email:      u.Email,
			HoursToday: models.RoundHours(today[u.ID]),
			HoursWeek:  models.RoundHours(week[u.ID]),
			LatesMonth: lateByUser[u.ID],
		}
		if u.Team != nil {
			name := u.Team.Name
			report.TeamName = &name
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Export collects the entries started in the given month, optionally for
// one team.
func (s *ReportService) Export(ctx context.Context, actor *models.User, params ExportParams) (*Export, error) {
	if !s.Policy.CanViewRoster(actor) {
		return nil, ErrForbidden
	}
	if params.Month < 1 || params.Month > 12 {
		return nil, invalid("Invalid month.")
	}
	if params.Year < 2000 || params.Year > 2100 {
		return nil, invalid("Invalid year.")
	}
	if params.TeamID != nil && !actor.IsAdmin() && !actor.IsInTeam(*params.TeamID) {
		return nil, ErrForbidden
	}

	users, err := scopedUsers(ctx, s.DB, actor)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.User, len(users))
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		if params.TeamID != nil && !u.IsInTeam(*params.TeamID) {
			continue
		}
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	export := &Export{Filename: fmt.Sprintf("time_entries_%d_%02d.csv", params.Year, params.Month)}
	if len(ids) == 0 {
		return export, nil
	}
	start := time.Date(params.Year, time.Month(params.Month), 1, 0, 0, 0, 0, s.Location)
	end := start.AddDate(0, 1, 0)

	var entries []models.TimeEntry
	err = s.DB.WithContext(ctx).
		Where("user_id IN ? AND clock_in >= ? AND clock_in < ?", ids, start.UTC(), end.UTC()).
		Order("clock_in asc, user_id asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list entries for %d-%02d: %w", params.Year, params.Month, err)
	}

	export.Rows = make([]ExportRow, 0, len(entries))
	for _, e := range entries {
		u := byID[e.UserID]
		row := ExportRow{
			Employee: u.FullName(),
			Email:    u.Email,
			ClockIn:  e.ClockIn,
			ClockOut: e.ClockOut,
			Hours:    e.TotalHours,
		}
		if u.Team != nil {
			row.Team = u.Team.Name
		}
		export.Rows = append(export.Rows, row)
	}
	s.Logger.Info("entries exported", "actor_id", actor.ID, "month", params.Month, "year", params.Year, "rows", len(export.Rows))
	return export, nil
}

// WriteCSV writes the export with a header row. Times are rendered in loc.
func (e *Export) WriteCSV(w io.Writer, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Employee", "Email", "Team", "Date", "Clock In", "Clock Out", "Hours"}); err != nil {
		return err
	}
	for _, row := range e.Rows {
		clockIn := row.ClockIn.In(loc)
		clockOut, hours := "", ""
		if row.ClockOut != nil {
			clockOut = row.ClockOut.In(loc).Format(time.RFC3339)
		}
		if row.Hours != nil {
			hours = fmt.Sprintf("%.2f", *row.Hours)
		}
		record := []string{
			row.Employee,
			row.Email,
			row.Team,
			clockIn.Format(models.DateLayout),
			clockIn.Format(time.RFC3339),
			clockOut,
			hours,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
