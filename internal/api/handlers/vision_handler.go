package handlers

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/httpbase"
	"github.com/ai-demos/gateway/internal/metrics"
	"github.com/ai-demos/gateway/internal/session"
	"github.com/ai-demos/gateway/internal/storage/models"
	"github.com/ai-demos/gateway/internal/stores"
	"github.com/ai-demos/gateway/pkg/logger"
)

// VisionService is the custom vision backend.
type VisionService interface {
	GetPrediction(ctx context.Context, upper, lower float64, form *httpbase.Form) (*httpbase.Response, error)
	GetInvoice(ctx context.Context, upper, lower float64, form *httpbase.Form) (*httpbase.Response, error)
}

type VisionHandler struct {
	vision   VisionService
	sessions *session.Manager
	validate *validator.Validate
}

func NewVisionHandler(vision VisionService, sessions *session.Manager) *VisionHandler {
	return &VisionHandler{
		vision:   vision,
		sessions: sessions,
		validate: validator.New(),
	}
}

type thresholdsRequest struct {
	Upper float64 `json:"upperProbabilityThreshold" validate:"gte=0,lte=1,gtefield=Lower"`
	Lower float64 `json:"lowerProbabilityThreshold" validate:"gte=0,lte=1"`
}

// thresholds reads the query overrides, falling back to the session store.
func (h *VisionHandler) thresholds(c *fiber.Ctx, sess *stores.Session) (thresholdsRequest, error) {
	var t thresholdsRequest
	_ = sess.WithLock(func(s *stores.Session) error {
		t.Upper = s.Prediction.UpperProbabilityThreshold
		t.Lower = s.Prediction.LowerProbabilityThreshold
		return nil
	})

	if v := c.Query("upperProbabilityThreshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return t, err
		}
		t.Upper = f
	}
	if v := c.Query("lowerProbabilityThreshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return t, err
		}
		t.Lower = f
	}

	return t, h.validate.Struct(t)
}

// detect forwards the image and returns the decoded body in out. It reports
// false when the response was already written.
func (h *VisionHandler) detect(c *fiber.Ctx, id, workflow string, out any,
	call func(ctx context.Context, upper, lower float64, form *httpbase.Form) (*httpbase.Response, error),
) (bool, error) {
	sess, err := h.sessions.Get(c.UserContext(), id)
	if err != nil {
		return false, sessionError(c, err)
	}

	t, err := h.thresholds(c, sess)
	if err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid probability thresholds",
		})
	}

	up, err := readUpload(c)
	if err != nil {
		return false, uploadError(c, err)
	}
	metrics.UploadsTotal.WithLabelValues(workflow).Inc()

	resp, err := call(backendContext(c, id), t.Upper, t.Lower, up.form)
	if err != nil {
		return false, backendError(c, err)
	}
	if !resp.OK() {
		return false, passthrough(c, resp)
	}
	if err := resp.Decode(out); err != nil {
		return false, decodeError(c, err)
	}
	return true, nil
}

func (h *VisionHandler) Detect(c *fiber.Ctx) error {
	id := sessionID(c)

	var prediction models.PredictionJSON
	ok, err := h.detect(c, id, "detect", &prediction, h.vision.GetPrediction)
	if !ok {
		return err
	}

	logger.Info("Image predicted",
		zap.String("session_id", id),
		zap.Int("predictions", len(prediction.Predictions)),
	)

	return updateView(c, h.sessions, id, func(s *stores.Session) fiber.Map {
		s.Prediction.SetImagePrediction(&prediction)
		return predictionView(s.Prediction)
	})
}

func (h *VisionHandler) Invoice(c *fiber.Ctx) error {
	id := sessionID(c)

	var cart models.CartSummaryPrediction
	ok, err := h.detect(c, id, "invoice", &cart, h.vision.GetInvoice)
	if !ok {
		return err
	}

	logger.Info("Invoice predicted",
		zap.String("session_id", id),
		zap.Int("items", len(cart.Items)),
		zap.Float64("total_amount", cart.TotalAmount),
	)

	return updateView(c, h.sessions, id, func(s *stores.Session) fiber.Map {
		s.Prediction.SetCartPrediction(&cart)
		return predictionView(s.Prediction)
	})
}

func (h *VisionHandler) Get(c *fiber.Ctx) error {
	return readView(c, h.sessions, sessionID(c), func(s *stores.Session) fiber.Map {
		return predictionView(s.Prediction)
	})
}

func (h *VisionHandler) SetThresholds(c *fiber.Ctx) error {
	var req thresholdsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid probability thresholds",
		})
	}

	var out fiber.Map
	_, err := h.sessions.Update(c.UserContext(), sessionID(c), func(s *stores.Session) error {
		if err := s.Prediction.SetThresholds(req.Upper, req.Lower); err != nil {
			return err
		}
		out = fiber.Map{
			"upperProbabilityThreshold": s.Prediction.UpperProbabilityThreshold,
			"lowerProbabilityThreshold": s.Prediction.LowerProbabilityThreshold,
		}
		return nil
	})
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(out)
}

func (h *VisionHandler) Review(c *fiber.Ctx) error {
	tagID := c.Params("tagId")

	sess, err := h.sessions.Get(c.UserContext(), sessionID(c))
	if err != nil {
		return sessionError(c, err)
	}

	var suggest bool
	_ = sess.WithLock(func(s *stores.Session) error {
		suggest = s.Prediction.ShouldSuggestReview(tagID)
		return nil
	})

	return c.JSON(fiber.Map{
		"tagId":         tagID,
		"suggestReview": suggest,
	})
}

func (h *VisionHandler) Reset(c *fiber.Ctx) error {
	return updateView(c, h.sessions, sessionID(c), func(s *stores.Session) fiber.Map {
		s.Prediction.ResetStore()
		return predictionView(s.Prediction)
	})
}

func predictionView(s *stores.PredictionStore) fiber.Map {
	return fiber.Map{
		"orderNumber":                s.OrderNumber,
		"imagePrediction":            s.ImagePrediction,
		"cartImagePrediction":        s.CartImagePrediction,
		"upperProbabilityThreshold":  s.UpperProbabilityThreshold,
		"lowerProbabilityThreshold":  s.LowerProbabilityThreshold,
		"originalGroupedPredictions": s.OriginalGroupedPredictions,
		"highProbabilityPredictions": s.HighProbabilityPredictions(),
		"manualOptions":              s.ManualOptions(),
	}
}
