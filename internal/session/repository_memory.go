package session

import "encoding/json"

// InMemoryRepository holds serialized sessions in a map. Used in tests
// and wherever durable storage is not wanted. Documents are stored as
// JSON so the round-trip matches the file repository byte for byte.
type InMemoryRepository struct {
	docs map[int64][]byte
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{docs: make(map[int64][]byte)}
}

func (r *InMemoryRepository) Load(userID int64) (*Session, error) {
	raw, ok := r.docs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	s := &Session{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	if s.Cart == nil {
		s.Cart = []Line{}
	}
	return s, nil
}

func (r *InMemoryRepository) Save(s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.docs[s.UserID] = raw
	return nil
}

func (r *InMemoryRepository) Delete(userID int64) error {
	delete(r.docs, userID)
	return nil
}
