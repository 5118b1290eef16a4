package stores

import (
	"fmt"

	"github.com/ai-demos/gateway/internal/storage/models"
)

// ChatStore holds one car-sales conversation. Brand and Model come from the
// QR sticker the customer scanned, if any.
type ChatStore struct {
	Brand    *string          `json:"brand"`
	Model    *string          `json:"model"`
	Messages []models.Message `json:"messages"`
}

func NewChatStore() *ChatStore {
	return &ChatStore{Messages: []models.Message{}}
}

// SetVehicle switches the conversation to another car. The history is
// dropped when the car changes.
func (s *ChatStore) SetVehicle(brand, model *string) {
	if !s.ChangesVehicle(brand, model) {
		return
	}
	s.Brand = brand
	s.Model = model
	s.Messages = []models.Message{}
}

// ChangesVehicle reports whether SetVehicle(brand, model) would switch cars.
func (s *ChatStore) ChangesVehicle(brand, model *string) bool {
	return !equalPtr(s.Brand, brand) || !equalPtr(s.Model, model)
}

func (s *ChatStore) AppendTurn(role models.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid message role %q", role)
	}
	s.Messages = append(s.Messages, models.Message{Role: role, Content: content})
	return nil
}

// History returns a copy of the conversation.
func (s *ChatStore) History() []models.Message {
	out := make([]models.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

func (s *ChatStore) Reset() {
	s.Brand = nil
	s.Model = nil
	s.Messages = []models.Message{}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
