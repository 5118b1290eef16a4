package stores

import "github.com/ai-demos/gateway/internal/storage/models"

type OnboardingStore struct {
	IDData *models.Model `json:"idData"`
}

func (s *OnboardingStore) SetIDData(model *models.Model) {
	s.IDData = model
}

// CleanedField returns the extracted identity field with its document
// prefix removed.
func (s *OnboardingStore) CleanedField(key string) *string {
	value := s.IDData.Field(key)
	if value == nil || *value == "" {
		return nil
	}
	cleaned := CleanName(*value)
	return &cleaned
}

func (s *OnboardingStore) Reset() {
	s.IDData = nil
}
