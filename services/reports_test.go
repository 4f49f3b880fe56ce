package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"teamclock/models"
)

func seedEntry(t *testing.T, env *testEnv, user *models.User, start time.Time, d time.Duration) {
	t.Helper()
	entry := models.TimeEntry{UserID: user.ID, ClockIn: start}
	if d > 0 {
		end := start.Add(d)
		entry.ClockOut = &end
		entry.ComputeTotalHours()
	}
	if err := env.db.Create(&entry).Error; err != nil {
		t.Fatalf("seed entry: %v", err)
	}
}

func seedStatus(t *testing.T, env *testEnv, user *models.User, date string, status models.StatusTag) {
	t.Helper()
	if err := env.db.Create(&models.TeamStatus{UserID: user.ID, Date: date, Status: status}).Error; err != nil {
		t.Fatalf("seed status: %v", err)
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 5, day, hour, minute, 0, 0, time.UTC)
}

func TestReportService_Team(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.deps)
	ops := env.team("Ops")
	manager := env.user(models.RoleManager, ops)
	member := env.user(models.RoleUser, ops)
	outsider := env.user(models.RoleUser, env.team("Sales"))

	seedEntry(t, env, member, at(12, 8, 0), 3*time.Hour) // previous week
	seedEntry(t, env, member, at(13, 8, 0), 4*time.Hour)
	seedEntry(t, env, member, at(15, 6, 0), 2*time.Hour)
	seedEntry(t, env, member, at(15, 8, 30), 0) // still open at 09:00
	seedEntry(t, env, outsider, at(15, 6, 0), 2*time.Hour)

	seedStatus(t, env, member, "2024-04-30", models.StatusLate)
	seedStatus(t, env, member, "2024-05-02", models.StatusLate)
	seedStatus(t, env, member, "2024-05-10", models.StatusPTO)
	seedStatus(t, env, member, "2024-05-14", models.StatusLate)

	got, err := reports.Team(env.ctx, manager)
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("report rows = %d, want 2", len(got))
	}
	var row MemberReport
	for _, r := range got {
		if r.UserID == outsider.ID {
			t.Fatalf("outsider leaked into report")
		}
		if r.UserID == member.ID {
			row = r
		}
	}
	if row.HoursToday != 2.5 || row.HoursWeek != 6.5 || row.LatesMonth != 2 {
		t.Fatalf("member report = %+v", row)
	}
	if row.TeamName == nil || *row.TeamName != "Ops" {
		t.Fatalf("team name = %v", row.TeamName)
	}

	if _, err := reports.Team(env.ctx, member); !errors.Is(err, ErrForbidden) {
		t.Fatalf("plain user: expected ErrForbidden, got %v", err)
	}
}

func TestReportService_Export(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.deps)
	ops := env.team("Ops")
	sales := env.team("Sales")
	manager := env.user(models.RoleManager, ops)
	admin := env.user(models.RoleAdmin, nil)
	member := env.user(models.RoleUser, ops)
	seller := env.user(models.RoleUser, sales)

	seedEntry(t, env, member, time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC), time.Hour)
	seedEntry(t, env, member, at(2, 8, 0), 90*time.Minute)
	seedEntry(t, env, member, at(15, 8, 30), 0)
	seedEntry(t, env, seller, at(3, 8, 0), time.Hour)

	export, err := reports.Export(env.ctx, manager, ExportParams{Month: 5, Year: 2024})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if export.Filename != "time_entries_2024_05.csv" {
		t.Fatalf("filename = %q", export.Filename)
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, time.UTC); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header plus 2: %v", len(records), records)
	}
	if records[0][0] != "Employee" {
		t.Fatalf("header = %v", records[0])
	}
	if records[1][3] != "2024-05-02" || records[1][6] != "1.50" || records[1][2] != "Ops" {
		t.Fatalf("closed row = %v", records[1])
	}
	if records[2][5] != "" || records[2][6] != "" {
		t.Fatalf("open row = %v", records[2])
	}

	byTeam, err := reports.Export(env.ctx, admin, ExportParams{Month: 5, Year: 2024, TeamID: &sales.ID})
	if err != nil || len(byTeam.Rows) != 1 || byTeam.Rows[0].Email != seller.Email {
		t.Fatalf("admin team export: %+v, %v", byTeam, err)
	}

	tests := []struct {
		name   string
		actor  *models.User
		params ExportParams
		want   error
	}{
		{"bad month", manager, ExportParams{Month: 13, Year: 2024}, ErrValidation},
		{"bad year", manager, ExportParams{Month: 5, Year: 1999}, ErrValidation},
		{"foreign team", manager, ExportParams{Month: 5, Year: 2024, TeamID: &sales.ID}, ErrForbidden},
		{"plain user", member, ExportParams{Month: 5, Year: 2024}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reports.Export(env.ctx, tt.actor, tt.params); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
