package models

import (
	"time"
)

type Team struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"not null;size:100" json:"name"`
	Description string    `gorm:"not null;default:''" json:"description"`
	CreatedBy   *uint     `gorm:"index" json:"created_by"`
	Members     []User    `gorm:"foreignKey:TeamID" json:"-"`
}
