package domain

import (
	"math"
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Mobile       string    `json:"mobile"`
	DOB          string    `json:"dob"`
	ProfilePhoto string    `json:"profilePhoto"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Review is embedded in a book and snapshots the author's identity at
// write time. It is never re-synced when the account changes later.
type Review struct {
	UserID   string    `json:"user"`
	UserName string    `json:"userName"`
	Email    string    `json:"email"`
	Rating   int       `json:"rating"`
	Text     string    `json:"text"`
	Date     time.Time `json:"date"`
}

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       string    `json:"genre"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Bestseller  bool      `json:"bestseller"`
	Reviews     []Review  `json:"reviews"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AverageRating computes the arithmetic mean of all review ratings rounded
// to one decimal place. It is a read-time value and is never persisted.
func (b Book) AverageRating() float64 {
	if len(b.Reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range b.Reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(b.Reviews))
	return math.Round(avg*10) / 10
}
