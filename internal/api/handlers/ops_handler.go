package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/routes"
	"github.com/ai-demos/gateway/internal/session"
	"github.com/ai-demos/gateway/internal/storage/models"
	"github.com/ai-demos/gateway/internal/stores"
	"github.com/ai-demos/gateway/pkg/logger"
)

const (
	defaultCallsLimit = 50
	maxCallsLimit     = 500
)

// CallLog is the read side of the backend call audit log.
type CallLog interface {
	RecentCalls(ctx context.Context, backend string, limit int) ([]models.BackendCall, error)
	OutcomeCounts(ctx context.Context, backend string) (map[string]int, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type OpsHandler struct {
	sessions *session.Manager
	calls    CallLog
	checks   map[string]Pinger
}

// NewOpsHandler wires the operational endpoints. calls may be nil when the
// audit log is disabled.
func NewOpsHandler(sessions *session.Manager, calls CallLog, checks map[string]Pinger) *OpsHandler {
	return &OpsHandler{
		sessions: sessions,
		calls:    calls,
		checks:   checks,
	}
}

func (h *OpsHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *OpsHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	failed := fiber.Map{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
			"failed": failed,
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
	})
}

func (h *OpsHandler) Views(c *fiber.Ctx) error {
	if path := c.Query("path"); path != "" {
		view, ok := routes.Lookup(path)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "View not found",
			})
		}
		return c.JSON(view)
	}

	return c.JSON(fiber.Map{
		"views": routes.All(),
	})
}

func (h *OpsHandler) Calls(c *fiber.Ctx) error {
	if h.calls == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Call log is disabled",
		})
	}

	limit := c.QueryInt("limit", defaultCallsLimit)
	if limit <= 0 || limit > maxCallsLimit {
		limit = defaultCallsLimit
	}
	backend := c.Query("backend")

	calls, err := h.calls.RecentCalls(c.UserContext(), backend, limit)
	if err != nil {
		logger.Error("Failed to list backend calls", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list backend calls",
		})
	}

	counts, err := h.calls.OutcomeCounts(c.UserContext(), backend)
	if err != nil {
		logger.Error("Failed to count backend calls", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count backend calls",
		})
	}

	return c.JSON(fiber.Map{
		"calls":    calls,
		"outcomes": counts,
	})
}

// Session returns the whole session snapshot.
func (h *OpsHandler) Session(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c.UserContext(), sessionID(c))
	if err != nil {
		return sessionError(c, err)
	}

	data, err := sess.Marshal()
	if err != nil {
		return sessionError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (h *OpsHandler) ResetSession(c *fiber.Ctx) error {
	id := sessionID(c)
	_, err := h.sessions.Update(c.UserContext(), id, func(s *stores.Session) error {
		s.ResetAll()
		return nil
	})
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(fiber.Map{
		"session_id": id,
		"status":     "reset",
	})
}

func (h *OpsHandler) DeleteSession(c *fiber.Ctx) error {
	id := sessionID(c)
	if err := h.sessions.Delete(c.UserContext(), id); err != nil {
		return sessionError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
