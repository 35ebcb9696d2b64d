package service

import (
	"errors"

	"github.com/google/uuid"
)

// Errors returned by the inbox services. Handlers map them to status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSelfRecommendation = errors.New("cannot recommend to yourself")
)

// validID reports whether id can name a row. Primary keys are UUIDs; a
// malformed id never reaches postgres and is answered as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
