package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/httpbase"
	"github.com/ai-demos/gateway/internal/metrics"
	"github.com/ai-demos/gateway/internal/session"
	"github.com/ai-demos/gateway/internal/storage/models"
	"github.com/ai-demos/gateway/internal/stores"
	"github.com/ai-demos/gateway/pkg/logger"
)

// DocumentService is the document intelligence backend.
type DocumentService interface {
	GetDocumentValidation(ctx context.Context, form *httpbase.Form) (*httpbase.Response, error)
	GetIdentityDocument(ctx context.Context, form *httpbase.Form) (*httpbase.Response, error)
	GetContractOrInvoiceDocument(ctx context.Context, form *httpbase.Form) (*httpbase.Response, error)
}

type DocIntHandler struct {
	docint   DocumentService
	sessions *session.Manager
}

func NewDocIntHandler(docint DocumentService, sessions *session.Manager) *DocIntHandler {
	return &DocIntHandler{
		docint:   docint,
		sessions: sessions,
	}
}

type backendCall func(ctx context.Context, form *httpbase.Form) (*httpbase.Response, error)

// extract forwards the upload and decodes the extraction. A nil model means
// the response was already written and err is the write result.
func (h *DocIntHandler) extract(c *fiber.Ctx, id, workflow string, call backendCall) (*upload, *models.Model, error) {
	up, err := readUpload(c)
	if err != nil {
		return nil, nil, uploadError(c, err)
	}
	metrics.UploadsTotal.WithLabelValues(workflow).Inc()

	resp, err := call(backendContext(c, id), up.form)
	if err != nil {
		return nil, nil, backendError(c, err)
	}
	if !resp.OK() {
		return nil, nil, passthrough(c, resp)
	}

	var model models.Model
	if err := resp.Decode(&model); err != nil {
		return nil, nil, decodeError(c, err)
	}

	logger.Info("Document extracted",
		zap.String("session_id", id),
		zap.String("workflow", workflow),
		zap.String("doc_type", model.DocType),
		zap.Int("fields", len(model.ExtractedFields)),
	)
	return up, &model, nil
}

func (h *DocIntHandler) Validation(c *fiber.Ctx) error {
	id := sessionID(c)
	_, model, err := h.extract(c, id, "validation", h.docint.GetDocumentValidation)
	if model == nil {
		return err
	}

	return updateView(c, h.sessions, id, func(s *stores.Session) fiber.Map {
		s.ParticularDoc.SetDocumentData(model)
		return particularView(s.ParticularDoc)
	})
}

func (h *DocIntHandler) Identity(c *fiber.Ctx) error {
	id := sessionID(c)
	_, model, err := h.extract(c, id, "identity", h.docint.GetIdentityDocument)
	if model == nil {
		return err
	}

	return updateView(c, h.sessions, id, func(s *stores.Session) fiber.Map {
		s.Onboarding.SetIDData(model)
		return onboardingView(s.Onboarding)
	})
}

func (h *DocIntHandler) Contract(c *fiber.Ctx) error {
	id := sessionID(c)
	up, model, err := h.extract(c, id, "classification", h.docint.GetContractOrInvoiceDocument)
	if model == nil {
		return err
	}

	file := models.ClassificationFile{
		Name:     up.name,
		Src:      dataURL(up.content),
		Analysis: models.Analysis{Model: *model},
	}

	return updateView(c, h.sessions, id, func(s *stores.Session) fiber.Map {
		s.Classification.AddUploadedDocument(file)
		return classificationView(s.Classification)
	})
}

func (h *DocIntHandler) GetClassification(c *fiber.Ctx) error {
	return h.view(c, func(s *stores.Session) fiber.Map {
		return classificationView(s.Classification)
	})
}

func (h *DocIntHandler) SelectDocument(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Document name is required",
		})
	}

	id := sessionID(c)
	var found bool
	var out []byte
	_, err := h.sessions.Update(c.UserContext(), id, func(s *stores.Session) error {
		found = s.Classification.SelectDocument(req.Name)
		var err error
		out, err = encodeView(classificationView(s.Classification))
		return err
	})
	if err != nil {
		return sessionError(c, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}
	return sendView(c, out)
}

func (h *DocIntHandler) ResetClassification(c *fiber.Ctx) error {
	return h.reset(c, func(s *stores.Session) fiber.Map {
		s.Classification.ResetAll()
		return classificationView(s.Classification)
	})
}

func (h *DocIntHandler) GetParticular(c *fiber.Ctx) error {
	return h.view(c, func(s *stores.Session) fiber.Map {
		return particularView(s.ParticularDoc)
	})
}

func (h *DocIntHandler) SetCheck(c *fiber.Ctx) error {
	var req struct {
		SectionID int  `json:"sectionId"`
		PointID   int  `json:"pointId"`
		Validated bool `json:"validated"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	id := sessionID(c)
	var found bool
	var out []byte
	_, err := h.sessions.Update(c.UserContext(), id, func(s *stores.Session) error {
		found = s.ParticularDoc.SetValidated(req.SectionID, req.PointID, req.Validated)
		var err error
		out, err = encodeView(particularView(s.ParticularDoc))
		return err
	})
	if err != nil {
		return sessionError(c, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Validation point not found",
		})
	}
	return sendView(c, out)
}

func (h *DocIntHandler) ResetParticular(c *fiber.Ctx) error {
	return h.reset(c, func(s *stores.Session) fiber.Map {
		s.ResetParticularDoc()
		return particularView(s.ParticularDoc)
	})
}

func (h *DocIntHandler) GetOnboarding(c *fiber.Ctx) error {
	return h.view(c, func(s *stores.Session) fiber.Map {
		return onboardingView(s.Onboarding)
	})
}

func (h *DocIntHandler) ResetOnboarding(c *fiber.Ctx) error {
	return h.reset(c, func(s *stores.Session) fiber.Map {
		s.Onboarding.Reset()
		return onboardingView(s.Onboarding)
	})
}

func (h *DocIntHandler) view(c *fiber.Ctx, render func(s *stores.Session) fiber.Map) error {
	return readView(c, h.sessions, sessionID(c), render)
}

func (h *DocIntHandler) reset(c *fiber.Ctx, apply func(s *stores.Session) fiber.Map) error {
	return updateView(c, h.sessions, sessionID(c), apply)
}

func classificationView(s *stores.ClassificationStore) fiber.Map {
	return fiber.Map{
		"uploadedDocument":                   s.UploadedDocument,
		"allUploadedDocuments":               s.AllUploadedDocuments,
		"currentDocument":                    s.CurrentDocument,
		"showClasificationSelectedFileModal": s.ShowClassificationSelectedFileModal,
		"byDocType":                          s.ClassifiedByDocType(),
		"others":                             s.ClassifiedAsOthers(),
	}
}

func particularView(s *stores.ParticularDocStore) fiber.Map {
	return fiber.Map{
		"documentData":         s.DocumentData,
		"washingDocChecks":     s.WashingDocChecks,
		"showDocumentChecks":   s.ShowDocumentChecks,
		"isDocInfoExtacted":    s.IsDocInfoExtracted,
		"isAdrInfoExtracted":   s.IsAdrInfoExtracted,
		"extractedPoints":      s.ExtractedPoints(),
		"adrPoints":            s.ADRPoints(),
		"prohibitedCodesFound": s.ProhibitedCodesFound(),
		"pendingRequired":      s.PendingRequired(),
	}
}

func onboardingView(s *stores.OnboardingStore) fiber.Map {
	return fiber.Map{
		"idData":  s.IDData,
		"name":    s.CleanedField("Nombre"),
		"surname": s.CleanedField("Apellidos"),
	}
}
