package validation

import (
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

const uploadField = "file"

type Config struct {
	MaxQueryLength      int
	MaxUploadSize       int64
	AllowedContentTypes []string
	// AllowedUploadTypes lists the sniffed MIME types accepted on upload
	// routes.
	AllowedUploadTypes []string
	Logger             *zap.Logger
}

// Middleware rejects malformed chat queries and uploads before they reach a
// backend.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 5000
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 20 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON, fiber.MIMEMultipartForm}
	}
	if len(cfg.AllowedUploadTypes) == 0 {
		cfg.AllowedUploadTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/tiff", "image/bmp", "image/webp"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get(fiber.HeaderContentType)
			if contentType != "" && !allowedContentType(contentType, cfg.AllowedContentTypes) {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Unsupported content type",
				})
			}
		}

		path := c.Path()

		if c.Method() == fiber.MethodPost && strings.HasSuffix(path, "/api/v1/chat") {
			if err := checkQuery(c, cfg); err != nil {
				return err
			}
		}

		if c.Method() == fiber.MethodPost && isUploadPath(path) {
			if err := checkUpload(c, cfg); err != nil {
				return err
			}
		}

		return c.Next()
	}
}

func checkQuery(c *fiber.Ctx, cfg Config) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON format",
		})
	}

	query := sanitizeString(req.Query)
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required and must be a string",
		})
	}

	if len(query) > cfg.MaxQueryLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query exceeds maximum length",
		})
	}

	if ContainsMarkup(query) {
		cfg.Logger.Warn("Potential XSS attempt",
			zap.String("ip", c.IP()),
			zap.String("query", query),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid query content",
		})
	}

	return nil
}

// checkUpload sniffs the uploaded file instead of trusting the part header.
// A missing file is left to the handler.
func checkUpload(c *fiber.Ctx, cfg Config) error {
	header, err := c.FormFile(uploadField)
	if err != nil {
		return nil
	}

	if header.Size > cfg.MaxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "File exceeds maximum size",
		})
	}

	f, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid upload",
		})
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid upload",
		})
	}

	for _, allowed := range cfg.AllowedUploadTypes {
		if detected.Is(allowed) {
			return nil
		}
	}

	cfg.Logger.Warn("Rejected upload",
		zap.String("ip", c.IP()),
		zap.String("filename", header.Filename),
		zap.String("mime", detected.String()),
	)
	return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
		"error": "Unsupported file type",
	})
}

func isUploadPath(path string) bool {
	switch {
	case strings.HasSuffix(path, "/docint/validation"),
		strings.HasSuffix(path, "/docint/identity"),
		strings.HasSuffix(path, "/docint/contract"),
		strings.HasSuffix(path, "/vision/detect"),
		strings.HasSuffix(path, "/vision/invoice"):
		return true
	}
	return false
}

func allowedContentType(contentType string, allowed []string) bool {
	for _, allowedType := range allowed {
		if strings.Contains(contentType, allowedType) {
			return true
		}
	}
	return false
}

// ContainsMarkup reports whether input carries script or event-handler markup.
// Chat queries arriving over other transports are checked with it too.
func ContainsMarkup(input string) bool {
	return xssPattern.MatchString(input)
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
