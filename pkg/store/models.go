package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Mobile       string    `gorm:"not null"`
	DOB          string    `gorm:"not null"`
	ProfilePhoto string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type BookModel struct {
	ID          string         `gorm:"primaryKey"`
	Title       string         `gorm:"not null"`
	Author      string         `gorm:"not null"`
	Genre       string         `gorm:"not null"`
	Description string         `gorm:"type:text;not null"`
	Price       float64        `gorm:"not null"`
	Image       string         `gorm:"not null"`
	Bestseller  bool           `gorm:"not null;default:false"`
	Reviews     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}
