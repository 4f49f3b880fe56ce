package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"teamclock/models"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options configures Open.
type Options struct {
	Driver   string
	DSN      string
	LogLevel string
}

// Open connects to the configured store. Postgres errors are left as
// *pgconn.PgError so constraint names survive; SQLite errors are translated
// to gorm.ErrDuplicatedKey.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(parseLogLevel(opts.LogLevel)),
		TranslateError: opts.Driver == DriverSQLite,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}

	if opts.Driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates the schema, including the partial index that
// enforces a single open session per user.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	err := db.AutoMigrate(
		&models.Team{},
		&models.User{},
		&models.TimeEntry{},
		&models.TeamStatus{},
		&models.Task{},
		&models.WorkingHours{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON time_entries (user_id) WHERE clock_out IS NULL",
		models.OpenSessionIndex,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create open session index: %w", err)
	}
	return nil
}

// SeedAdmin creates an admin account with the given credentials unless a
// user with that email already exists. It reports whether a user was created.
func SeedAdmin(ctx context.Context, db *gorm.DB, logger *slog.Logger, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	admin := models.User{
		Email:        email,
		FirstName:    "Admin",
		LastName:     "User",
		PhoneNumber:  "0000000000",
		PasswordHash: string(hashedPassword),
		Role:         models.RoleAdmin,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		if IsUniqueViolation(err) {
			return false, fmt.Errorf("seed admin %s: phone number or email already taken: %w", email, err)
		}
		return false, err
	}

	logger.Info("default admin user created", "email", email)
	return true, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
