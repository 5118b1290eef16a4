package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/middleware/validation"
	"github.com/ai-demos/gateway/pkg/logger"
)

const sessionLocal = "session_id"

type WebSocketHandler struct {
	chat *ChatHandler
}

func NewWebSocketHandler(chat *ChatHandler) *WebSocketHandler {
	return &WebSocketHandler{
		chat: chat,
	}
}

// Upgrade rejects plain HTTP requests and pins the session id for the
// connection. Browsers cannot set headers on websocket requests, so the id
// may also come from the "session" query parameter.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	id := c.Query("session")
	if id == "" {
		id = sessionID(c)
	}
	c.Locals(sessionLocal, id)
	return c.Next()
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	id, _ := c.Locals(sessionLocal).(string)
	log := logger.GetLogger().With(zap.String("session_id", id))
	log.Info("WebSocket connection established")

	defer func() {
		c.Close()
		log.Info("WebSocket connection closed")
	}()

	h.sendSession(c, id)

	for {
		var msg struct {
			Type    string  `json:"type"`
			Content string  `json:"content"`
			Brand   *string `json:"brand"`
			Model   *string `json:"model"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "query" {
			continue
		}

		req := ChatRequest{
			Query: strings.TrimSpace(msg.Content),
			Brand: msg.Brand,
			Model: msg.Model,
		}
		if err := h.chat.validate.Struct(req); err != nil {
			h.sendError(c, "Query is required")
			continue
		}
		if validation.ContainsMarkup(req.Query) {
			log.Warn("Potential XSS attempt over WebSocket")
			h.sendError(c, "Invalid query content")
			continue
		}

		log.Debug("Processing WebSocket query", zap.Int("length", len(req.Query)))

		err = h.streamResponse(c, id, req)
		if err != nil {
			log.Error("Failed to stream response", zap.Error(err))
			c.WriteJSON(errorFrame(err))
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, id string, req ChatRequest) error {
	ctx := context.Background()

	h.sendChunk(c, "status", "Processing query...")

	result, err := h.chat.turn(ctx, id, req)
	if err != nil {
		return err
	}
	if !result.Response.OK() {
		return c.WriteJSON(map[string]interface{}{
			"type":   "error",
			"error":  "Backend refused the request",
			"status": result.Response.StatusCode,
		})
	}

	words := splitIntoWords(result.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}

		err := h.sendChunk(c, "chunk", chunk)
		if err != nil {
			return err
		}
	}

	return h.sendComplete(c, result)
}

func (h *WebSocketHandler) sendSession(c *websocket.Conn, id string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":       "session",
		"session_id": id,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	msg := map[string]interface{}{
		"type":    msgType,
		"content": content,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, result *chatResult) error {
	msg := map[string]interface{}{
		"type":     "complete",
		"answer":   result.Answer,
		"messages": result.Messages,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}

// errorFrame carries the same status and body a failed POST /chat answers
// with. The backend's own status, if any, moves to backendStatus.
func errorFrame(err error) map[string]interface{} {
	status, body := backendStatus(err)
	frame := map[string]interface{}{
		"type":   "error",
		"status": status,
	}
	for key, value := range body {
		if key == "status" {
			key = "backendStatus"
		}
		frame[key] = value
	}
	return frame
}

func splitIntoWords(text string) []string {
	words := []string{}
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, char := range text {
		switch char {
		case ' ':
			flush()
		case '\n':
			flush()
			words = append(words, "\n")
		default:
			current.WriteRune(char)
		}
	}
	flush()

	return words
}
