package app

import "errors"

// User-visible sentinel errors. Messages match what the storefront and
// admin panel surface in their notifications.
var (
	ErrAllFieldsRequired  = errors.New("All fields are required")
	ErrUserExists         = errors.New("User already exists")
	ErrInvalidEmail       = errors.New("Please enter a valid email")
	ErrUserNotExists      = errors.New("User doesn't exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUserNotFound       = errors.New("User not found")
	ErrEmailInUse         = errors.New("Email already in use")

	ErrBookFieldsRequired = errors.New("All book fields are required")
	ErrCoverImageRequired = errors.New("Book cover image is required")
	ErrInvalidPrice       = errors.New("Price must be a non-negative number")
	ErrBookNotFound       = errors.New("Book not found")

	ErrRatingAndTextRequired = errors.New("Rating and text are required")
	ErrRatingOutOfRange      = errors.New("Rating must be between 1 and 5")

	// ErrUpload wraps asset-host failures on required uploads.
	ErrUpload = errors.New("Failed to upload image")
)
