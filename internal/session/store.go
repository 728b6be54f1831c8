package session

import (
	"errors"

	"go.uber.org/zap"
)

// Store owns the live sessions for one bot process: a userID-keyed map
// populated lazily from the repository. Sessions stay resident for the
// process lifetime; there is no eviction. The store is an explicit
// dependency passed into handlers, never a package global, so tests can
// run isolated instances.
type Store struct {
	repo        Repository
	log         *zap.Logger
	maxQuantity int
	sessions    map[int64]*Session
}

func NewStore(repo Repository, maxQuantity int, log *zap.Logger) *Store {
	if maxQuantity <= 0 {
		maxQuantity = 5
	}
	return &Store{
		repo:        repo,
		log:         log,
		maxQuantity: maxQuantity,
		sessions:    make(map[int64]*Session),
	}
}

// Get returns the user's session, loading it from the repository on
// first reference and creating a fresh one on first contact.
func (st *Store) Get(userID int64) *Session {
	if s, ok := st.sessions[userID]; ok {
		return s
	}

	s, err := st.repo.Load(userID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		st.log.Info("created new session", zap.Int64("user_id", userID))
		s = newSession(userID)
	default:
		// A corrupt session file should not lock the user out.
		st.log.Warn("session load failed, starting fresh", zap.Int64("user_id", userID), zap.Error(err))
		s = newSession(userID)
	}

	s.repo = st.repo
	s.log = st.log.Sugar()
	s.maxQuantity = st.maxQuantity
	st.sessions[userID] = s
	s.save()
	return s
}

// Forget drops the user's session from memory and durable storage.
// Used by /start to begin a clean conversation.
func (st *Store) Forget(userID int64) error {
	delete(st.sessions, userID)
	return st.repo.Delete(userID)
}

// Len reports the number of memory-resident sessions.
func (st *Store) Len() int { return len(st.sessions) }
