package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Dosada05/tournament-bot/models"
)

var ErrNoSession = errors.New("no active session")

// Store persists at most one session per user.
type Store interface {
	Get(ctx context.Context, userID int64) (*models.Session, error)
	Put(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, userID int64) error
}

// MemoryStore keeps sessions in process memory. Expired entries are removed
// by Sweep, which the scheduler runs periodically.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]models.Session)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return cloneSession(&s), nil
}

func (m *MemoryStore) Put(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.UserID] = *cloneSession(s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

// Sweep drops sessions last updated before cutoff and returns how many.
func (m *MemoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	c.Data = make(map[models.Step]string, len(s.Data))
	for k, v := range s.Data {
		c.Data[k] = v
	}
	return &c
}
