package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileRepository keeps one JSON document per user under dir, named
// user_<id>.json. Every save overwrites the whole file.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(userID int64) string {
	return filepath.Join(r.dir, fmt.Sprintf("user_%d.json", userID))
}

func (r *FileRepository) Load(userID int64) (*Session, error) {
	raw, err := os.ReadFile(r.path(userID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s := &Session{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode session %d: %w", userID, err)
	}
	if s.Cart == nil {
		s.Cart = []Line{}
	}
	return s, nil
}

func (r *FileRepository) Save(s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", s.UserID, err)
	}
	return os.WriteFile(r.path(s.UserID), raw, 0o600)
}

func (r *FileRepository) Delete(userID int64) error {
	err := os.Remove(r.path(userID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
