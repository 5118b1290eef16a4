package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/httpbase"
	"github.com/ai-demos/gateway/internal/session"
	"github.com/ai-demos/gateway/internal/stores"
	"github.com/ai-demos/gateway/pkg/logger"
)

// SessionHeader carries the gateway session id in both directions.
const SessionHeader = "X-Session-ID"

var errNoFile = errors.New("file is required")

// sessionID returns the caller's session id, minting one when absent. The id
// is echoed back so the front-end can keep it.
func sessionID(c *fiber.Ctx) string {
	id := strings.TrimSpace(c.Get(SessionHeader))
	if id == "" {
		id = session.NewID()
	}
	c.Set(SessionHeader, id)
	return id
}

func backendContext(c *fiber.Ctx, id string) context.Context {
	return httpbase.ContextWithSession(c.UserContext(), id)
}

type upload struct {
	name    string
	content []byte
	form    *httpbase.Form
}

// readUpload reads the multipart "file" field into a form ready to forward.
func readUpload(c *fiber.Ctx) (*upload, error) {
	header, err := c.FormFile(httpbase.DefaultFileField)
	if err != nil {
		return nil, errNoFile
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(content) == 0 {
		return nil, errNoFile
	}

	form, err := httpbase.NewFileForm(httpbase.DefaultFileField, header.Filename, content)
	if err != nil {
		return nil, err
	}

	return &upload{name: header.Filename, content: content, form: form}, nil
}

func uploadError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errNoFile) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}
	logger.Error("Failed to read upload", zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid upload",
	})
}

// dataURL renders content the way the browser's FileReader would.
func dataURL(content []byte) string {
	mime := mimetype.Detect(content).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// backendStatus maps a rejected backend call onto the gateway response.
func backendStatus(err error) (int, fiber.Map) {
	reqErr, ok := httpbase.AsRequestError(err)
	if !ok {
		if errors.Is(err, context.Canceled) {
			return fiber.StatusRequestTimeout, fiber.Map{"error": "Request canceled"}
		}
		return fiber.StatusInternalServerError, fiber.Map{"error": "Internal error"}
	}

	body := fiber.Map{
		"error":   reqErr.Kind.String(),
		"backend": reqErr.Backend,
	}
	if reqErr.StatusCode != 0 {
		body["status"] = reqErr.StatusCode
	}

	switch reqErr.Kind {
	case httpbase.KindBadRequest:
		return fiber.StatusBadRequest, body
	case httpbase.KindNotFound:
		return fiber.StatusNotFound, body
	case httpbase.KindBusiness:
		errs := reqErr.BusinessErrors
		if errs == nil {
			errs = []json.RawMessage{}
		}
		body["errors"] = errs
		return fiber.StatusConflict, body
	case httpbase.KindTimeout:
		return fiber.StatusGatewayTimeout, body
	case httpbase.KindUnauthorized:
		return reqErr.StatusCode, body
	default:
		return fiber.StatusBadGateway, body
	}
}

func backendError(c *fiber.Ctx, err error) error {
	status, body := backendStatus(err)
	logger.Error("Backend call failed", zap.Int("status", status), zap.Error(err))
	return c.Status(status).JSON(body)
}

// passthrough relays a non-2xx response the base client let through.
func passthrough(c *fiber.Ctx, resp *httpbase.Response) error {
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	return c.Status(resp.StatusCode).Send(resp.Body)
}

// encodeView marshals a view while the session lock is held. Views share
// slices with the stores, so they must not be encoded after unlocking.
func encodeView(view fiber.Map) ([]byte, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to encode view: %w", err)
	}
	return data, nil
}

func sendView(c *fiber.Ctx, data []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// updateView applies render to the session, persists it and answers with the
// view render returned.
func updateView(c *fiber.Ctx, sessions *session.Manager, id string, render func(s *stores.Session) fiber.Map) error {
	var out []byte
	_, err := sessions.Update(c.UserContext(), id, func(s *stores.Session) error {
		var err error
		out, err = encodeView(render(s))
		return err
	})
	if err != nil {
		return sessionError(c, err)
	}
	return sendView(c, out)
}

// readView answers with a view of the session without changing it.
func readView(c *fiber.Ctx, sessions *session.Manager, id string, render func(s *stores.Session) fiber.Map) error {
	sess, err := sessions.Get(c.UserContext(), id)
	if err != nil {
		return sessionError(c, err)
	}

	var out []byte
	err = sess.WithLock(func(s *stores.Session) error {
		var err error
		out, err = encodeView(render(s))
		return err
	})
	if err != nil {
		return sessionError(c, err)
	}
	return sendView(c, out)
}

func decodeError(c *fiber.Ctx, err error) error {
	logger.Error("Failed to decode backend response", zap.Error(err))
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error": "Invalid backend response",
	})
}

func sessionError(c *fiber.Ctx, err error) error {
	logger.Error("Session unavailable", zap.Error(err))
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "Session unavailable",
	})
}
