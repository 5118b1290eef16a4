package handlers

import (
	"context"
	"encoding/json"
	"strings"

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

// ChatService is the RAG backend.
type ChatService interface {
	SendChatRequest(ctx context.Context, query string, brand, model *string, messages []models.Message) (*httpbase.Response, error)
}

type ChatRequest struct {
	Query string  `json:"query" validate:"required,max=5000"`
	Brand *string `json:"brand" validate:"omitempty,max=100"`
	Model *string `json:"model" validate:"omitempty,max=100"`
}

// chatResult is one settled turn. Response is nil when the backend call was
// rejected or passed through.
type chatResult struct {
	Response *httpbase.Response
	Answer   string
	Messages []models.Message
}

type ChatHandler struct {
	rag      ChatService
	sessions *session.Manager
	validate *validator.Validate
}

func NewChatHandler(rag ChatService, sessions *session.Manager) *ChatHandler {
	return &ChatHandler{
		rag:      rag,
		sessions: sessions,
		validate: validator.New(),
	}
}

// turn relays one user query with the conversation so far and records both
// sides of the exchange. A vehicle change only takes effect with a successful
// turn; failed calls leave the session untouched.
func (h *ChatHandler) turn(ctx context.Context, id string, req ChatRequest) (*chatResult, error) {
	sess, err := h.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switchVehicle := req.Brand != nil || req.Model != nil
	var brand, model *string
	var history []models.Message
	_ = sess.WithLock(func(s *stores.Session) error {
		if switchVehicle && s.Chat.ChangesVehicle(req.Brand, req.Model) {
			brand, model = req.Brand, req.Model
			history = []models.Message{}
			return nil
		}
		brand, model = s.Chat.Brand, s.Chat.Model
		history = s.Chat.History()
		return nil
	})

	resp, err := h.rag.SendChatRequest(httpbase.ContextWithSession(ctx, id), req.Query, brand, model, history)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &chatResult{Response: resp}, nil
	}
	metrics.ChatTurnsTotal.Inc()

	answer := answerText(resp.Body)
	result := &chatResult{Response: resp, Answer: answer}
	_, err = h.sessions.Update(ctx, id, func(s *stores.Session) error {
		if switchVehicle {
			s.Chat.SetVehicle(req.Brand, req.Model)
		}
		if err := s.Chat.AppendTurn(models.RoleUser, req.Query); err != nil {
			return err
		}
		if err := s.Chat.AppendTurn(models.RoleAssistant, answer); err != nil {
			return err
		}
		result.Messages = s.Chat.History()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Chat turn completed",
		zap.String("session_id", id),
		zap.Int("history", len(result.Messages)),
	)
	return result, nil
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	id := sessionID(c)
	result, err := h.turn(c.UserContext(), id, req)
	if err != nil {
		if _, ok := httpbase.AsRequestError(err); ok {
			return backendError(c, err)
		}
		return sessionError(c, err)
	}
	if !result.Response.OK() {
		return passthrough(c, result.Response)
	}

	return c.JSON(fiber.Map{
		"answer":   result.Answer,
		"response": json.RawMessage(rawJSON(result.Response.Body)),
		"messages": result.Messages,
	})
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c.UserContext(), sessionID(c))
	if err != nil {
		return sessionError(c, err)
	}

	var out fiber.Map
	_ = sess.WithLock(func(s *stores.Session) error {
		out = fiber.Map{
			"brand":    s.Chat.Brand,
			"model":    s.Chat.Model,
			"messages": s.Chat.History(),
		}
		return nil
	})
	return c.JSON(out)
}

func (h *ChatHandler) Reset(c *fiber.Ctx) error {
	_, err := h.sessions.Update(c.UserContext(), sessionID(c), func(s *stores.Session) error {
		s.Chat.Reset()
		return nil
	})
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(fiber.Map{
		"messages": []models.Message{},
	})
}

// answerText pulls the assistant reply out of a chat response. The backend
// may answer with a JSON string, an object carrying the text, or plain text.
func answerText(body []byte) string {
	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		return text
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"answer", "response", "message", "content"} {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &text); err == nil {
				return text
			}
		}
	}

	return strings.TrimSpace(string(body))
}

// rawJSON returns body when it is valid JSON, or body quoted as a string.
func rawJSON(body []byte) []byte {
	if json.Valid(body) {
		return body
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
