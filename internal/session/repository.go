package session

import "errors"

// ErrNotFound is returned when no persisted session exists for a user.
var ErrNotFound = errors.New("session not found")

// Repository defines the persistence contract for sessions. The store
// depends only on this interface.
type Repository interface {
	Load(userID int64) (*Session, error)
	Save(s *Session) error
	Delete(userID int64) error
}
