package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole reports whether s names one of the known roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleManager, RoleAdmin:
		return r, true
	}
	return "", false
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"uniqueIndex;not null;size:254" json:"email"`
	FirstName    string    `gorm:"not null;size:100" json:"first_name"`
	LastName     string    `gorm:"not null;size:100" json:"last_name"`
	PhoneNumber  string    `gorm:"uniqueIndex;not null;size:20" json:"phone_number"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"not null;size:10;default:'user'" json:"role"`
	TeamID       *uint     `gorm:"index" json:"team_id"`
	Team         *Team     `gorm:"foreignKey:TeamID" json:"-"`

	// TwoFactorEnabled is reported to clients; no second factor is enforced.
	TwoFactorEnabled bool `gorm:"not null;default:false" json:"two_factor_enabled"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

func (u *User) IsPlainUser() bool {
	return u.Role == RoleUser
}

// SameTeam is true only when both users carry the same non-null team.
func (u *User) SameTeam(other *User) bool {
	if u == nil || other == nil || u.TeamID == nil || other.TeamID == nil {
		return false
	}
	return *u.TeamID == *other.TeamID
}

// IsInTeam reports whether the user is affiliated with teamID.
func (u *User) IsInTeam(teamID uint) bool {
	return u.TeamID != nil && *u.TeamID == teamID
}
