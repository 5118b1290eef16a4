package stores

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/ai-demos/gateway/internal/storage/models"
)

const (
	DefaultUpperProbabilityThreshold = 0.5
	DefaultLowerProbabilityThreshold = 0.25
)

type GroupedPredictions map[string][]models.Prediction

type PredictionStore struct {
	OrderNumber                int                           `json:"orderNumber"`
	ImagePrediction            *models.PredictionJSON        `json:"imagePrediction"`
	CartImagePrediction        *models.CartSummaryPrediction `json:"cartImagePrediction"`
	UpperProbabilityThreshold  float64                       `json:"upperProbabilityThreshold"`
	LowerProbabilityThreshold  float64                       `json:"lowerProbabilityThreshold"`
	OriginalGroupedPredictions GroupedPredictions            `json:"originalGroupedPredictions"`
	Totals                     map[string]int                `json:"totals"`

	catalog TagCatalog
}

func NewPredictionStore(catalog TagCatalog) *PredictionStore {
	s := &PredictionStore{
		UpperProbabilityThreshold: DefaultUpperProbabilityThreshold,
		LowerProbabilityThreshold: DefaultLowerProbabilityThreshold,
		catalog:                   catalog,
	}
	s.ResetStore()
	return s
}

// GroupPredictionsByTag groups by tag name. A nil input yields nil, an empty
// one an empty map.
func GroupPredictionsByTag(predictions []models.Prediction) GroupedPredictions {
	if predictions == nil {
		return nil
	}
	return lo.GroupBy(predictions, func(p models.Prediction) string {
		return p.TagName
	})
}

func (s *PredictionStore) GroupPredictionsByTag(predictions []models.Prediction) GroupedPredictions {
	return GroupPredictionsByTag(predictions)
}

func (s *PredictionStore) HighProbabilityPredictions() []models.Prediction {
	if s.ImagePrediction == nil {
		return nil
	}
	return lo.Filter(s.ImagePrediction.Predictions, func(p models.Prediction, _ int) bool {
		return p.IsHighProbability
	})
}

func (s *PredictionStore) ManualOptions() []models.ManualOption {
	return lo.Map(s.catalog, func(bucket TagBucket, _ int) models.ManualOption {
		return models.ManualOption{
			ID:    bucket.ID,
			Key:   bucket.Key,
			Image: bucket.Image,
			Name:  bucket.Name,
			Total: s.Totals[bucket.Key],
		}
	})
}

// ShouldSuggestReview reports whether a prediction for tagID fell under the
// high-probability threshold.
func (s *PredictionStore) ShouldSuggestReview(tagID string) bool {
	if s.ImagePrediction == nil {
		return false
	}
	return lo.ContainsBy(s.ImagePrediction.Predictions, func(p models.Prediction) bool {
		return p.TagID == tagID && !p.IsHighProbability
	})
}

// UpdateTotalsFromResponse recounts every catalog bucket. Tags outside the
// catalog are ignored. A nil response leaves the totals untouched.
func (s *PredictionStore) UpdateTotalsFromResponse(predictions []models.Prediction) {
	if predictions == nil {
		return
	}

	counts := lo.CountValuesBy(predictions, func(p models.Prediction) string {
		return p.TagID
	})

	totals := make(map[string]int, len(s.catalog))
	for _, bucket := range s.catalog {
		totals[bucket.Key] = counts[bucket.ID]
	}
	s.Totals = totals
}

func (s *PredictionStore) Total(key string) int {
	return s.Totals[key]
}

func (s *PredictionStore) SetThresholds(upper, lower float64) error {
	if lower < 0 || upper > 1 || lower > upper {
		return fmt.Errorf("invalid probability thresholds: lower=%v upper=%v", lower, upper)
	}
	s.UpperProbabilityThreshold = upper
	s.LowerProbabilityThreshold = lower
	return nil
}

// SetImagePrediction stores a detection result and refreshes the grouping and
// totals derived from it.
func (s *PredictionStore) SetImagePrediction(prediction *models.PredictionJSON) {
	s.ImagePrediction = prediction
	if prediction == nil {
		s.OriginalGroupedPredictions = nil
		return
	}
	s.OriginalGroupedPredictions = s.GroupPredictionsByTag(prediction.Predictions)
	s.UpdateTotalsFromResponse(prediction.Predictions)
}

// SetCartPrediction stores an invoice result as a new order.
func (s *PredictionStore) SetCartPrediction(cart *models.CartSummaryPrediction) {
	s.CartImagePrediction = cart
	if cart == nil {
		return
	}
	s.OrderNumber++
	prediction := cart.Prediction
	s.SetImagePrediction(&prediction)
}

// ResetStore clears results and totals. Thresholds are kept.
func (s *PredictionStore) ResetStore() {
	s.OrderNumber = 0
	s.ImagePrediction = nil
	s.CartImagePrediction = nil
	s.OriginalGroupedPredictions = nil
	s.Totals = make(map[string]int, len(s.catalog))
	for _, bucket := range s.catalog {
		s.Totals[bucket.Key] = 0
	}
}
