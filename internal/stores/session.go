package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ai-demos/gateway/internal/storage/models"
)

// ErrSessionDiscarded is returned by Commit once the session was deleted or
// evicted. Callers fetch a fresh session and try again.
var ErrSessionDiscarded = errors.New("session discarded")

// Defaults seeds new and restored sessions.
type Defaults struct {
	Catalog                   TagCatalog
	WashingChecks             func() models.WashingCertificate
	UpperProbabilityThreshold float64
	LowerProbabilityThreshold float64
}

func DefaultDefaults() Defaults {
	return Defaults{
		Catalog:                   DefaultTagCatalog(),
		WashingChecks:             DefaultWashingChecks,
		UpperProbabilityThreshold: DefaultUpperProbabilityThreshold,
		LowerProbabilityThreshold: DefaultLowerProbabilityThreshold,
	}
}

// Session owns the stores of one front-end user. Handlers run concurrently,
// so every access goes through WithLock.
type Session struct {
	mu sync.Mutex

	ID             string
	UpdatedAt      time.Time
	Prediction     *PredictionStore
	Classification *ClassificationStore
	ParticularDoc  *ParticularDocStore
	Onboarding     *OnboardingStore
	Chat           *ChatStore

	defaults  Defaults
	discarded bool
}

type snapshot struct {
	ID             string               `json:"id"`
	UpdatedAt      time.Time            `json:"updatedAt"`
	Prediction     *PredictionStore     `json:"prediction"`
	Classification *ClassificationStore `json:"classification"`
	ParticularDoc  *ParticularDocStore  `json:"particularDoc"`
	Onboarding     *OnboardingStore     `json:"onboarding"`
	Chat           *ChatStore           `json:"chat"`
}

func NewSession(id string, d Defaults) *Session {
	if d.WashingChecks == nil {
		d.WashingChecks = DefaultWashingChecks
	}

	prediction := NewPredictionStore(d.Catalog)
	if d.UpperProbabilityThreshold != 0 || d.LowerProbabilityThreshold != 0 {
		prediction.UpperProbabilityThreshold = d.UpperProbabilityThreshold
		prediction.LowerProbabilityThreshold = d.LowerProbabilityThreshold
	}

	return &Session{
		ID:             id,
		UpdatedAt:      time.Now().UTC(),
		Prediction:     prediction,
		Classification: NewClassificationStore(),
		ParticularDoc:  NewParticularDocStore(d.WashingChecks()),
		Onboarding:     &OnboardingStore{},
		Chat:           NewChatStore(),
		defaults:       d,
	}
}

// WithLock runs fn with the session locked and bumps UpdatedAt.
func (s *Session) WithLock(fn func(s *Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Commit applies fn and hands the resulting snapshot to persist without
// releasing the lock, so a concurrent Discard cannot interleave with the
// write.
func (s *Session) Commit(fn func(s *Session) error, persist func(data []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.discarded {
		return ErrSessionDiscarded
	}
	if err := fn(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()

	data, err := s.marshalLocked()
	if err != nil {
		return err
	}
	return persist(data)
}

// Discard waits for in-flight commits and rejects later ones.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
}

func (s *Session) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdatedAt
}

// ResetAll clears every store, keeping the configured thresholds.
func (s *Session) ResetAll() {
	s.Prediction.ResetStore()
	s.Classification.ResetAll()
	s.ResetParticularDoc()
	s.Onboarding.Reset()
	s.Chat.Reset()
}

func (s *Session) ResetParticularDoc() {
	s.ParticularDoc.Reset(s.defaults.WashingChecks())
}

func (s *Session) Marshal() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marshalLocked()
}

func (s *Session) marshalLocked() ([]byte, error) {
	data, err := json.Marshal(snapshot{
		ID:             s.ID,
		UpdatedAt:      s.UpdatedAt,
		Prediction:     s.Prediction,
		Classification: s.Classification,
		ParticularDoc:  s.ParticularDoc,
		Onboarding:     s.Onboarding,
		Chat:           s.Chat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

// RestoreSession rebuilds a session from Marshal output. Fields missing from
// the snapshot keep their defaults.
func RestoreSession(data []byte, d Defaults) (*Session, error) {
	s := NewSession("", d)
	snap := snapshot{
		Prediction:     s.Prediction,
		Classification: s.Classification,
		ParticularDoc:  s.ParticularDoc,
		Onboarding:     s.Onboarding,
		Chat:           s.Chat,
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	s.ID = snap.ID
	s.UpdatedAt = snap.UpdatedAt
	if snap.Prediction != nil {
		s.Prediction = snap.Prediction
		s.Prediction.catalog = d.Catalog
	}
	if snap.Classification != nil {
		s.Classification = snap.Classification
	}
	if snap.ParticularDoc != nil {
		s.ParticularDoc = snap.ParticularDoc
	}
	if snap.Onboarding != nil {
		s.Onboarding = snap.Onboarding
	}
	if snap.Chat != nil {
		s.Chat = snap.Chat
	}
	return s, nil
}
