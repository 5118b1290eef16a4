package stores

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-demos/gateway/internal/storage/models"
)

func TestChatStore(t *testing.T) {
	store := NewChatStore()
	require.NoError(t, store.AppendTurn(models.RoleUser, "hola"))
	require.NoError(t, store.AppendTurn(models.RoleAssistant, "¿En qué puedo ayudarte?"))
	require.Error(t, store.AppendTurn("robot", "x"))
	assert.Len(t, store.Messages, 2)

	history := store.History()
	history[0].Content = "changed"
	assert.Equal(t, "hola", store.Messages[0].Content)

	store.SetVehicle(nil, nil)
	assert.Len(t, store.Messages, 2, "same vehicle keeps history")

	store.SetVehicle(str("Toyota"), str("Corolla"))
	assert.Empty(t, store.Messages)
	assert.Equal(t, "Toyota", *store.Brand)

	store.Reset()
	assert.Nil(t, store.Brand)
	assert.NotNil(t, store.Messages)
}

func TestSessionRoundTrip(t *testing.T) {
	d := DefaultDefaults()
	d.UpperProbabilityThreshold = 0.7
	d.LowerProbabilityThreshold = 0.2

	s := NewSession("abc", d)
	require.NoError(t, s.WithLock(func(s *Session) error {
		s.Prediction.SetImagePrediction(&models.PredictionJSON{Predictions: []models.Prediction{
			{TagID: butano6ID, TagName: "Butano 6", IsHighProbability: true},
		}})
		s.Classification.AddUploadedDocument(classified("doc1", "A"))
		return s.Chat.AppendTurn(models.RoleUser, "hola")
	}))

	data, err := s.Marshal()
	require.NoError(t, err)

	restored, err := RestoreSession(data, d)
	require.NoError(t, err)

	assert.Equal(t, "abc", restored.ID)
	assert.Equal(t, 0.7, restored.Prediction.UpperProbabilityThreshold)
	assert.Equal(t, 1, restored.Prediction.Total("butano6"))
	assert.Len(t, restored.Prediction.ManualOptions(), 4, "catalog is reattached")
	assert.Len(t, restored.Classification.AllUploadedDocuments, 1)
	assert.Len(t, restored.Chat.Messages, 1)
}

func TestSessionWithLockError(t *testing.T) {
	s := NewSession("abc", DefaultDefaults())
	before := s.UpdatedAt

	boom := errors.New("boom")
	err := s.WithLock(func(s *Session) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, before, s.UpdatedAt)
}

func TestSessionResetAll(t *testing.T) {
	s := NewSession("abc", DefaultDefaults())
	s.Classification.AddUploadedDocument(classified("doc1", "A"))
	s.Onboarding.SetIDData(&models.Model{DocType: "DNI"})
	s.ParticularDoc.SetValidated(1, 1, true)

	s.ResetAll()

	assert.Empty(t, s.Classification.AllUploadedDocuments)
	assert.Nil(t, s.Onboarding.IDData)
	assert.False(t, s.ParticularDoc.WashingDocChecks.Sections[0].ValidationPoints[0].Validated)
}

func TestRestoreSessionInvalid(t *testing.T) {
	_, err := RestoreSession([]byte("{"), DefaultDefaults())
	require.Error(t, err)
}

func TestSessionCommit(t *testing.T) {
	s := NewSession("abc", DefaultDefaults())

	var saved []byte
	err := s.Commit(func(s *Session) error {
		return s.Chat.AppendTurn(models.RoleUser, "hola")
	}, func(data []byte) error {
		saved = data
		return nil
	})
	require.NoError(t, err)

	restored, err := RestoreSession(saved, DefaultDefaults())
	require.NoError(t, err)
	assert.Equal(t, "hola", restored.Chat.Messages[0].Content)

	boom := errors.New("boom")
	err = s.Commit(func(*Session) error { return boom }, func([]byte) error {
		t.Error("failed update must not persist")
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestSessionDiscard(t *testing.T) {
	s := NewSession("abc", DefaultDefaults())
	s.Discard()

	err := s.Commit(func(*Session) error {
		t.Error("discarded session must not be updated")
		return nil
	}, func([]byte) error {
		t.Error("discarded session must not persist")
		return nil
	})
	assert.ErrorIs(t, err, ErrSessionDiscarded)
}
