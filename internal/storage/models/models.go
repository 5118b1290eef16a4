package models

import "time"

// Model is the document-extraction result returned by the document
// intelligence backend.
type Model struct {
	LegibilityStatus bool               `json:"legibilityStatus"`
	Message          string             `json:"message"`
	DocType          string             `json:"docType"`
	ExtractedFields  map[string]*string `json:"extractedFields"`
}

// Field returns the extracted value for key, nil when absent or null.
func (m *Model) Field(key string) *string {
	if m == nil || m.ExtractedFields == nil {
		return nil
	}
	return m.ExtractedFields[key]
}

type PoCModel string

const (
	PoCRepsolCustom PoCModel = "RepsolCustom"
	PoCRepsolDocInt PoCModel = "RepsolDocInt"
	PoCCommon       PoCModel = "Common"
)

type DocType string

const (
	DocTypeWashingCertificate DocType = "CertificadoLavado"
	DocTypeADR                DocType = "ADR"
	DocTypeOthers             DocType = "Otros"
)

type Analysis struct {
	Model
	ErrorFields map[string]string `json:"errorFields"`
}

type ClassificationFile struct {
	Name     string   `json:"name"`
	Src      string   `json:"src"`
	Analysis Analysis `json:"analisys"`
}

type ValidationPoint struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Required  bool   `json:"required"`
	Validated bool   `json:"validated"`
}

type Section struct {
	ID               int               `json:"id"`
	Title            string            `json:"title"`
	ValidationPoints []ValidationPoint `json:"validationPoints"`
}

type WashingCertificate struct {
	Sections        []Section `json:"sections"`
	ProhibitedCodes []string  `json:"prohibitedCodes,omitempty"`
}

type ExtractedFieldPoint struct {
	ExtractedFieldPoint string  `json:"extractedFieldPoint"`
	Value               *string `json:"value"`
}

type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Prediction struct {
	Probability       float64     `json:"probability"`
	TagID             string      `json:"tagId"`
	TagName           string      `json:"tagName"`
	IsHighProbability bool        `json:"isHighProbability"`
	BoundingBox       BoundingBox `json:"boundingBox"`
}

type PredictionJSON struct {
	Predictions []Prediction `json:"predictions"`
}

type CartItem struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalAmount float64 `json:"totalAmount"`
}

type CartSummaryPrediction struct {
	TotalAmount float64        `json:"totalAmount"`
	Items       []CartItem     `json:"items"`
	Prediction  PredictionJSON `json:"prediction"`
}

type ManualOption struct {
	ID           string `json:"id"`
	Key          string `json:"key"`
	Image        string `json:"image"`
	Name         string `json:"name"`
	Total        int    `json:"total"`
	TotalSpected *int   `json:"totalSpected"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// BackendCall is one row of the backend call audit log.
type BackendCall struct {
	ID          string
	SessionID   string
	Backend     string
	Endpoint    string
	Method      string
	StatusCode  int
	Outcome     string
	PayloadHash string
	PayloadSize int64
	LatencyMS   int64
	CreatedAt   time.Time
}
