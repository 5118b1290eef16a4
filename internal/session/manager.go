package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/metrics"
	"github.com/ai-demos/gateway/internal/stores"
	"github.com/ai-demos/gateway/pkg/logger"
)

// Manager hands out the live Session for an id, restoring it from the
// repository on first use and writing it back after every update.
type Manager struct {
	repo     Repository
	defaults stores.Defaults
	ttl      time.Duration

	mu   sync.Mutex
	live map[string]*stores.Session
	now  func() time.Time
}

func NewManager(repo Repository, defaults stores.Defaults, ttl time.Duration) *Manager {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Manager{
		repo:     repo,
		defaults: defaults,
		ttl:      ttl,
		live:     make(map[string]*stores.Session),
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Get returns the session for id, creating an empty one when the id is
// unknown. An empty id gets a freshly generated one.
func (m *Manager) Get(ctx context.Context, id string) (*stores.Session, error) {
	if id == "" {
		id = NewID()
	}

	m.mu.Lock()
	if s, ok := m.live[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	data, found, err := m.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var s *stores.Session
	if found {
		s, err = stores.RestoreSession(data, m.defaults)
		if err != nil {
			logger.Warn("Discarding unreadable session", zap.String("session_id", id), zap.Error(err))
			s = nil
		}
	}
	if s == nil {
		s = stores.NewSession(id, m.defaults)
		logger.Debug("Session created", zap.String("session_id", id))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have won the race.
	if existing, ok := m.live[id]; ok {
		return existing, nil
	}
	m.live[id] = s
	metrics.SessionsActive.Set(float64(len(m.live)))
	return s, nil
}

// Update locks the session, applies fn and persists the result before the
// lock is released. The session is not saved when fn fails. When the session
// was deleted or swept meanwhile, fn runs once more against a fresh copy.
func (m *Manager) Update(ctx context.Context, id string, fn func(s *stores.Session) error) (*stores.Session, error) {
	for attempt := 0; ; attempt++ {
		s, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		err = s.Commit(fn, func(data []byte) error {
			return m.persist(ctx, s.ID, data)
		})
		if errors.Is(err, stores.ErrSessionDiscarded) && attempt == 0 {
			continue
		}
		return s, err
	}
}

func (m *Manager) persist(ctx context.Context, id string, data []byte) error {
	if err := m.repo.Save(ctx, id, data, m.ttl); err != nil {
		return fmt.Errorf("failed to save session %s: %w", id, err)
	}
	return nil
}

// Delete drops the session from memory and the repository. Requests still
// holding the old session can no longer write it back.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.live[id]
	delete(m.live, id)
	metrics.SessionsActive.Set(float64(len(m.live)))
	m.mu.Unlock()

	if ok {
		s.Discard()
	}

	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Len reports the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Sweep drops in-memory sessions idle for longer than the ttl. The
// repository copy is left to its own expiry.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.ttl)
	candidates := make(map[string]*stores.Session)

	m.mu.Lock()
	for id, s := range m.live {
		candidates[id] = s
	}
	m.mu.Unlock()

	var expired []string
	for id, s := range candidates {
		if s.LastUpdated().Before(cutoff) {
			expired = append(expired, id)
		}
	}

	m.mu.Lock()
	for _, id := range expired {
		delete(m.live, id)
	}
	metrics.SessionsActive.Set(float64(len(m.live)))
	m.mu.Unlock()

	// The repository copy stays; a late update reloads it instead of
	// writing back the evicted one.
	for _, id := range expired {
		candidates[id].Discard()
	}

	if len(expired) > 0 {
		logger.Info("Expired sessions swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
