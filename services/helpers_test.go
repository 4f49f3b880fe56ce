package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"teamclock/database"
	"teamclock/models"

	"gorm.io/gorm"
)

// fakeClock is a settable clock shared by every service of a test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	clock *fakeClock
	deps  Deps
	seq   int
}

// Wednesday, so the week started two days earlier.
var testStart = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.Options{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := &fakeClock{now: testStart}
	return &testEnv{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		clock: clock,
		deps: Deps{
			DB:       db,
			Now:      clock.Now,
			Location: time.UTC,
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}
}

func (e *testEnv) team(name string) *models.Team {
	e.t.Helper()
	team := models.Team{Name: name}
	if err := e.db.Create(&team).Error; err != nil {
		e.t.Fatalf("create team %s: %v", name, err)
	}
	return &team
}

func (e *testEnv) user(role models.Role, team *models.Team) *models.User {
	e.t.Helper()
	e.seq++
	user := models.User{
		Email:        fmt.Sprintf("user%d@x.com", e.seq),
		FirstName:    "User",
		LastName:     fmt.Sprintf("%02d", e.seq),
		PhoneNumber:  fmt.Sprintf("555%04d", e.seq),
		PasswordHash: "unused",
		Role:         role,
	}
	if team != nil {
		user.TeamID = &team.ID
	}
	if err := e.db.Create(&user).Error; err != nil {
		e.t.Fatalf("create user: %v", err)
	}
	return &user
}

func (e *testEnv) countEntries(userID uint, openOnly bool) int64 {
	e.t.Helper()
	query := e.db.Model(&models.TimeEntry{}).Where("user_id = ?", userID)
	if openOnly {
		query = query.Where("clock_out IS NULL")
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		e.t.Fatalf("count entries: %v", err)
	}
	return n
}
