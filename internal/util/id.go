package util

import "github.com/google/uuid"

// NewID returns an opaque unique record identifier.
func NewID() string {
	return uuid.NewString()
}
