package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"teamclock/database"
	"teamclock/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterParams struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	Password    string
}

// ProfileParams is a partial self-service update. Role and team are not
// part of it.
type ProfileParams struct {
	Email       *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
}

// UserStore manages accounts and credentials.
type UserStore struct {
	Deps
	// HashCost is the bcrypt cost for new password hashes.
	HashCost int
}

func NewUserStore(deps Deps) *UserStore {
	return &UserStore{Deps: deps.withDefaults("users"), HashCost: bcrypt.DefaultCost}
}

// Register creates a plain user account.
func (s *UserStore) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	user := models.User{
		Email:       normalizeEmail(params.Email),
		FirstName:   strings.TrimSpace(params.FirstName),
		LastName:    strings.TrimSpace(params.LastName),
		PhoneNumber: strings.TrimSpace(params.PhoneNumber),
		Role:        models.RoleUser,
	}
	switch {
	case user.Email == "":
		return nil, invalid("email is required.")
	case user.FirstName == "" || user.LastName == "":
		return nil, invalid("first_name and last_name are required.")
	case user.PhoneNumber == "":
		return nil, invalid("phone_number is required.")
	case params.Password == "":
		return nil, invalid("password is required.")
	}

	hash, err := s.hash(params.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	db := s.DB.WithContext(ctx)
	if err := s.checkUnique(db, &user); err != nil {
		return nil, err
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, newError(ErrConflict, "This email or phone number is already registered.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.Logger.Info("user registered", "user_id", user.ID)
	return &user, nil
}

// Authenticate checks an email and password pair.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("Email and password are required.")
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.Logger.Warn("login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserStore) Get(ctx context.Context, id uint) (*models.User, error) {
	return loadUser(ctx, s.DB, id)
}

// List returns every account. Admin only.
func (s *UserStore) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	if !s.Policy.CanManageUsers(actor) {
		return nil, ErrForbidden
	}
	users := make([]models.User, 0)
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, actor *models.User, params ProfileParams) (*models.User, error) {
	user, err := loadUser(ctx, s.DB, actor.ID)
	if err != nil {
		return nil, err
	}
	if params.Email != nil {
		if user.Email = normalizeEmail(*params.Email); user.Email == "" {
			return nil, invalid("email may not be blank.")
		}
	}
	if params.FirstName != nil {
		if user.FirstName = strings.TrimSpace(*params.FirstName); user.FirstName == "" {
			return nil, invalid("first_name may not be blank.")
		}
	}
	if params.LastName != nil {
		if user.LastName = strings.TrimSpace(*params.LastName); user.LastName == "" {
			return nil, invalid("last_name may not be blank.")
		}
	}
	if params.PhoneNumber != nil {
		if user.PhoneNumber = strings.TrimSpace(*params.PhoneNumber); user.PhoneNumber == "" {
			return nil, invalid("phone_number may not be blank.")
		}
	}

	db := s.DB.WithContext(ctx)
	if err := s.checkUnique(db, user); err != nil {
		return nil, err
	}
	err = db.Model(user).Select("email", "first_name", "last_name", "phone_number").Updates(user).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, newError(ErrConflict, "This email or phone number is already registered.")
		}
		return nil, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return user, nil
}

func (s *UserStore) ChangePassword(ctx context.Context, actor *models.User, current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return invalid("All fields are required.")
	}
	user, err := loadUser(ctx, s.DB, actor.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return newError(ErrInvalidCredentials, "Incorrect current password.")
	}
	if next != confirm {
		return invalid("Passwords do not match.")
	}
	if err := s.setPassword(ctx, user, next); err != nil {
		return err
	}
	s.Logger.Info("password changed", "user_id", user.ID)
	return nil
}

// ResetPassword sets a new password for userID. Admin only.
func (s *UserStore) ResetPassword(ctx context.Context, actor *models.User, userID uint, password string) (*models.User, error) {
	if !s.Policy.CanManageUsers(actor) {
		return nil, ErrForbidden
	}
	if userID == 0 || password == "" {
		return nil, invalid("user_id and new_password are required.")
	}
	user, err := loadUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if err := s.setPassword(ctx, user, password); err != nil {
		return nil, err
	}
	s.Logger.Info("password reset", "actor_id", actor.ID, "user_id", user.ID)
	return user, nil
}

// SetRole changes userID's role. Admin only.
func (s *UserStore) SetRole(ctx context.Context, actor *models.User, userID uint, role string) (*models.User, error) {
	if !s.Policy.CanManageUsers(actor) {
		return nil, ErrForbidden
	}
	parsed, ok := models.ParseRole(role)
	if userID == 0 || !ok {
		return nil, invalid("user_id and a valid role are required.")
	}
	user, err := loadUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(user).Update("role", parsed).Error; err != nil {
		return nil, fmt.Errorf("set role of user %d: %w", user.ID, err)
	}
	user.Role = parsed
	s.Logger.Info("role changed", "actor_id", actor.ID, "user_id", user.ID, "role", parsed)
	return user, nil
}

// Delete removes actor's account together with everything it owns.
func (s *UserStore) Delete(ctx context.Context, actor *models.User) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", actor.ID).Delete(&models.TimeEntry{}).Error; err != nil {
			return fmt.Errorf("delete time entries of user %d: %w", actor.ID, err)
		}
		if err := tx.Where("user_id = ?", actor.ID).Delete(&models.TeamStatus{}).Error; err != nil {
			return fmt.Errorf("delete statuses of user %d: %w", actor.ID, err)
		}
		if err := tx.Where("user_id = ?", actor.ID).Delete(&models.WorkingHours{}).Error; err != nil {
			return fmt.Errorf("delete working hours of user %d: %w", actor.ID, err)
		}
		if err := tx.Where("created_by = ? OR assigned_to = ?", actor.ID, actor.ID).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks of user %d: %w", actor.ID, err)
		}
		if err := tx.Model(&models.Team{}).Where("created_by = ?", actor.ID).Update("created_by", nil).Error; err != nil {
			return fmt.Errorf("detach teams created by user %d: %w", actor.ID, err)
		}
		if err := tx.Delete(&models.User{}, actor.ID).Error; err != nil {
			return fmt.Errorf("delete user %d: %w", actor.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("user deleted", "user_id", actor.ID)
	return nil
}

func (s *UserStore) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("store password of user %d: %w", user.ID, err)
	}
	user.PasswordHash = hash
	return nil
}

func (s *UserStore) hash(password string) (string, error) {
	cost := s.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", invalid("password is too long.")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// checkUnique reports a conflict when another account already uses the
// email or phone number of user.
func (s *UserStore) checkUnique(db *gorm.DB, user *models.User) error {
	var count int64
	err := db.Model(&models.User{}).Where("email = ? AND id <> ?", user.Email, user.ID).Count(&count).Error
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return newError(ErrConflict, "This email is already registered.")
	}
	err = db.Model(&models.User{}).Where("phone_number = ? AND id <> ?", user.PhoneNumber, user.ID).Count(&count).Error
	if err != nil {
		return fmt.Errorf("check phone number: %w", err)
	}
	if count > 0 {
		return newError(ErrConflict, "This phone number is already registered.")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
