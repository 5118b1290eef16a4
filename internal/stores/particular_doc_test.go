package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-demos/gateway/internal/storage/models"
)

func str(s string) *string { return &s }

func TestSetDocumentDataFlags(t *testing.T) {
	store := NewParticularDocStore(DefaultWashingChecks())

	store.SetDocumentData(&models.Model{DocType: "ADR"})
	assert.True(t, store.IsAdrInfoExtracted)
	assert.False(t, store.IsDocInfoExtracted)
	assert.True(t, store.ShowDocumentChecks)

	store.SetDocumentData(&models.Model{DocType: "CertificadoLavado"})
	assert.False(t, store.IsAdrInfoExtracted)
	assert.True(t, store.IsDocInfoExtracted)
}

func TestExtractedPoints(t *testing.T) {
	store := NewParticularDocStore(DefaultWashingChecks())
	store.SetDocumentData(&models.Model{
		DocType: "CertificadoLavado",
		ExtractedFields: map[string]*string{
			"Nombre":    str("Lavados del Norte"),
			"Conductor": nil,
		},
	})

	points := store.ExtractedPoints()
	require.Len(t, points, len(WashingDocumentFields))
	assert.Equal(t, "ET", points[0].ExtractedFieldPoint)
	assert.Equal(t, "Lavados del Norte", *points[0].Value)
	assert.Nil(t, points[1].Value)

	adr := store.ADRPoints()
	require.Len(t, adr, 4)
	assert.Len(t, adr["section1"], 4)
	assert.Nil(t, adr["section1"][0].Value)
}

func TestProhibitedCodesFound(t *testing.T) {
	store := NewParticularDocStore(DefaultWashingChecks())
	assert.Empty(t, store.ProhibitedCodesFound())

	store.SetDocumentData(&models.Model{ExtractedFields: map[string]*string{
		"Codigos":  str("E35, c10 / F51"),
		"Producto": str("GASOLEO C01X"),
		"Vacio":    nil,
	}})

	assert.Equal(t, []string{"C10", "F51"}, store.ProhibitedCodesFound())
}

func TestProhibitedCodesFoundIgnoresChecklistCase(t *testing.T) {
	checks := DefaultWashingChecks()
	checks.ProhibitedCodes = []string{"c10", "Xy9"}
	store := NewParticularDocStore(checks)
	store.SetDocumentData(&models.Model{
		DocType:         "CertificadoLavado",
		ExtractedFields: map[string]*string{"Producto anterior": str("C10 / xy9")},
	})

	assert.Equal(t, []string{"c10", "Xy9"}, store.ProhibitedCodesFound())
}

func TestChecklistValidation(t *testing.T) {
	store := NewParticularDocStore(DefaultWashingChecks())
	pending := len(store.PendingRequired())
	require.Positive(t, pending)

	assert.True(t, store.SetValidated(1, 1, true))
	assert.Len(t, store.PendingRequired(), pending-1)
	assert.False(t, store.SetValidated(99, 1, true))

	store.Reset(DefaultWashingChecks())
	assert.Len(t, store.PendingRequired(), pending)
	assert.Nil(t, store.DocumentData)
}

func TestDefaultWashingChecksIsACopy(t *testing.T) {
	a := DefaultWashingChecks()
	a.Sections[0].ValidationPoints[0].Validated = true

	b := DefaultWashingChecks()
	assert.False(t, b.Sections[0].ValidationPoints[0].Validated)
	assert.Equal(t, ProhibitedCodes, b.ProhibitedCodes)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "GARCIA", CleanName("NAPGARCIA"))
	assert.Equal(t, "LOPEZ", CleanName("NAMLOPEZ"))
	assert.Equal(t, "ERUIZ", CleanName("NAMERUIZ"))
	assert.Equal(t, "MARIA", CleanName("MARIA"))
	assert.Equal(t, "", CleanName(""))
}

func TestOnboardingCleanedField(t *testing.T) {
	store := &OnboardingStore{}
	assert.Nil(t, store.CleanedField("Nombre"))

	store.SetIDData(&models.Model{ExtractedFields: map[string]*string{"Nombre": str("NAPJUAN")}})
	require.NotNil(t, store.CleanedField("Nombre"))
	assert.Equal(t, "JUAN", *store.CleanedField("Nombre"))

	store.Reset()
	assert.Nil(t, store.IDData)
}
