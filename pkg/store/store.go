package store

import (
	"errors"

	"bookreview/pkg/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines persistence operations for accounts and the book catalog.
type Store interface {
	// accounts
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	EmailTakenByOther(email, userID string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UpdateUser(domain.User) error

	// books
	SaveBook(domain.Book) error
	ListBooks() ([]domain.Book, error)
	GetBook(id string) (domain.Book, bool, error)
	DeleteBook(id string) error
	AppendReview(bookID string, review domain.Review) error
	ListBooksReviewedBy(email string) ([]domain.Book, error)
}

// SessionStore issues and validates bearer tokens for users and the admin.
type SessionStore interface {
	NewSession(userID string) (string, error)
	NewAdminSession() (string, error)
	UserIDByToken(token string) (string, error)
	VerifyAdmin(token string) error
}
