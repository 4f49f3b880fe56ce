package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"teamclock/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Driver:   DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}
}

func TestMigrateEnforcesSingleOpenSession(t *testing.T) {
	ctx := context.Background()
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { Close(db) })

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Running twice must be harmless.
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	user := models.User{Email: "a@x.com", FirstName: "A", LastName: "X", PhoneNumber: "1", PasswordHash: "x", Role: models.RoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := db.Create(&models.TimeEntry{UserID: user.ID, ClockIn: start}).Error; err != nil {
		t.Fatalf("first open entry: %v", err)
	}

	err = db.Create(&models.TimeEntry{UserID: user.ID, ClockIn: start.Add(time.Hour)}).Error
	if !ViolatesIndex(err, models.OpenSessionIndex) {
		t.Fatalf("second open entry: got %v, want unique violation", err)
	}

	end := start.Add(2 * time.Hour)
	if err := db.Create(&models.TimeEntry{UserID: user.ID, ClockIn: start.Add(-time.Hour), ClockOut: &end}).Error; err != nil {
		t.Fatalf("closed entries are unrestricted: %v", err)
	}
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { Close(db) })
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	created, err := SeedAdmin(ctx, db, logger, "Admin@Example.com", "secret")
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}
	created, err = SeedAdmin(ctx, db, logger, "admin@example.com", "secret")
	if err != nil || created {
		t.Fatalf("second seed: created=%v err=%v", created, err)
	}

	var admin models.User
	if err := db.Where("email = ?", "admin@example.com").First(&admin).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if !admin.IsAdmin() {
		t.Errorf("role = %q", admin.Role)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestUniqueViolationMatching(t *testing.T) {
	openSession := fmt.Errorf("create time entry: %w", &pgconn.PgError{Code: "23505", ConstraintName: models.OpenSessionIndex})
	otherIndex := &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}
	notNull := &pgconn.PgError{Code: "23502", ConstraintName: models.OpenSessionIndex}

	tests := []struct {
		name       string
		err        error
		wantUnique bool
		wantIndex  bool
	}{
		{"postgres open session index", openSession, true, true},
		{"postgres other index", otherIndex, true, false},
		{"postgres not null", notNull, false, false},
		{"translated duplicate", gorm.ErrDuplicatedKey, true, true},
		{"sqlite message", errors.New("UNIQUE constraint failed: time_entries.user_id"), true, true},
		{"unrelated", errors.New("connection refused"), false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.wantUnique {
				t.Fatalf("IsUniqueViolation = %v, want %v", got, tt.wantUnique)
			}
			if got := ViolatesIndex(tt.err, models.OpenSessionIndex); got != tt.wantIndex {
				t.Fatalf("ViolatesIndex = %v, want %v", got, tt.wantIndex)
			}
		})
	}
}
