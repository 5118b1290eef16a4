package stores

import (
	"github.com/samber/lo"

	"github.com/ai-demos/gateway/internal/storage/models"
)

type ClassifiedDocuments map[string][]models.ClassificationFile

type ClassificationStore struct {
	UploadedDocument                    models.ClassificationFile   `json:"uploadedDocument"`
	AllUploadedDocuments                []models.ClassificationFile `json:"allUploadedDocuments"`
	CurrentDocument                     *models.ClassificationFile  `json:"currentDocument"`
	ShowClassificationSelectedFileModal bool                        `json:"showClasificationSelectedFileModal"`
}

func NewClassificationStore() *ClassificationStore {
	return &ClassificationStore{
		AllUploadedDocuments: []models.ClassificationFile{},
	}
}

// isOthers matches the sentinel "Otros" type and documents with no type.
func isOthers(doc models.ClassificationFile) bool {
	return doc.Analysis.DocType == string(models.DocTypeOthers) || doc.Analysis.DocType == ""
}

// AddUploadedDocument records a classified upload. The history is append-only
// until ResetAll.
func (s *ClassificationStore) AddUploadedDocument(doc models.ClassificationFile) {
	s.UploadedDocument = doc
	s.AllUploadedDocuments = append(s.AllUploadedDocuments, doc)
}

func (s *ClassificationStore) ClassifiedByDocType() ClassifiedDocuments {
	typed := lo.Reject(s.AllUploadedDocuments, func(doc models.ClassificationFile, _ int) bool {
		return isOthers(doc)
	})
	return lo.GroupBy(typed, func(doc models.ClassificationFile) string {
		return doc.Analysis.DocType
	})
}

func (s *ClassificationStore) ClassifiedAsOthers() []models.ClassificationFile {
	return lo.Filter(s.AllUploadedDocuments, func(doc models.ClassificationFile, _ int) bool {
		return isOthers(doc)
	})
}

// SelectDocument opens the detail modal on the last upload with this name.
func (s *ClassificationStore) SelectDocument(name string) bool {
	doc, _, ok := lo.FindLastIndexOf(s.AllUploadedDocuments, func(doc models.ClassificationFile) bool {
		return doc.Name == name
	})
	if !ok {
		return false
	}
	s.CurrentDocument = &doc
	s.ShowClassificationSelectedFileModal = true
	return true
}

func (s *ClassificationStore) CloseSelectedDocument() {
	s.CurrentDocument = nil
	s.ShowClassificationSelectedFileModal = false
}

func (s *ClassificationStore) ResetUploadedDocument() {
	s.UploadedDocument = models.ClassificationFile{}
}

func (s *ClassificationStore) ResetAll() {
	s.ResetUploadedDocument()
	s.AllUploadedDocuments = []models.ClassificationFile{}
	s.CloseSelectedDocument()
}
