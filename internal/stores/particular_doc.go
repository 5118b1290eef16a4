package stores

import (
	_ "embed"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/ai-demos/gateway/internal/storage/models"
)

//go:embed washing_checks.json
var washingChecksJSON []byte

// DefaultWashingChecks returns a fresh copy of the washing certificate
// checklist.
func DefaultWashingChecks() models.WashingCertificate {
	var checks models.WashingCertificate
	if err := json.Unmarshal(washingChecksJSON, &checks); err != nil {
		panic(err)
	}
	return checks
}

type ParticularDocStore struct {
	WashingDocChecks   models.WashingCertificate `json:"washingDocChecks"`
	ShowDocumentChecks bool                      `json:"showDocumentChecks"`
	DocumentData       *models.Model             `json:"documentData"`
	IsDocInfoExtracted bool                      `json:"isDocInfoExtacted"`
	IsAdrInfoExtracted bool                      `json:"isAdrInfoExtracted"`
}

func NewParticularDocStore(checks models.WashingCertificate) *ParticularDocStore {
	return &ParticularDocStore{WashingDocChecks: checks}
}

// SetDocumentData stores an extraction and flags which kind of document it
// was. ADR certificates and washing certificates render different panels.
func (s *ParticularDocStore) SetDocumentData(model *models.Model) {
	s.DocumentData = model
	s.IsAdrInfoExtracted = false
	s.IsDocInfoExtracted = false
	if model == nil {
		return
	}
	if model.DocType == string(models.DocTypeADR) {
		s.IsAdrInfoExtracted = true
	} else {
		s.IsDocInfoExtracted = true
	}
	s.ShowDocumentChecks = true
}

func (s *ParticularDocStore) ExtractedPoints() []models.ExtractedFieldPoint {
	return extractPoints(s.DocumentData, WashingDocumentFields)
}

func (s *ParticularDocStore) ADRPoints() map[string][]models.ExtractedFieldPoint {
	return lo.SliceToMap(ADRCertificateData, func(section FieldSection) (string, []models.ExtractedFieldPoint) {
		return section.Name, extractPoints(s.DocumentData, section.Fields)
	})
}

func extractPoints(model *models.Model, fields []FieldLabel) []models.ExtractedFieldPoint {
	return lo.Map(fields, func(f FieldLabel, _ int) models.ExtractedFieldPoint {
		return models.ExtractedFieldPoint{
			ExtractedFieldPoint: f.Field,
			Value:               model.Field(f.Key),
		}
	})
}

// ProhibitedCodesFound returns the prohibited washing codes that appear as a
// token in any extracted value, in checklist order.
func (s *ParticularDocStore) ProhibitedCodesFound() []string {
	if s.DocumentData == nil {
		return []string{}
	}

	prohibited := s.WashingDocChecks.ProhibitedCodes
	if len(prohibited) == 0 {
		prohibited = ProhibitedCodes
	}

	tokens := make(map[string]bool)
	for _, value := range s.DocumentData.ExtractedFields {
		if value == nil {
			continue
		}
		for _, token := range strings.FieldsFunc(*value, isCodeSeparator) {
			tokens[strings.ToUpper(token)] = true
		}
	}

	return lo.Filter(prohibited, func(code string, _ int) bool {
		return tokens[strings.ToUpper(code)]
	})
}

func isCodeSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// SetValidated marks a checklist point. It reports false for unknown ids.
func (s *ParticularDocStore) SetValidated(sectionID, pointID int, validated bool) bool {
	for i := range s.WashingDocChecks.Sections {
		section := &s.WashingDocChecks.Sections[i]
		if section.ID != sectionID {
			continue
		}
		for j := range section.ValidationPoints {
			if section.ValidationPoints[j].ID == pointID {
				section.ValidationPoints[j].Validated = validated
				return true
			}
		}
	}
	return false
}

// PendingRequired lists required checklist points not yet validated.
func (s *ParticularDocStore) PendingRequired() []models.ValidationPoint {
	var pending []models.ValidationPoint
	for _, section := range s.WashingDocChecks.Sections {
		for _, point := range section.ValidationPoints {
			if point.Required && !point.Validated {
				pending = append(pending, point)
			}
		}
	}
	return pending
}

func (s *ParticularDocStore) Reset(checks models.WashingCertificate) {
	*s = ParticularDocStore{WashingDocChecks: checks}
}
