package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Set groups the handlers mounted under /api/v1.
type Set struct {
	DocInt    *DocIntHandler
	Vision    *VisionHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
	Ops       *OpsHandler
}

func Register(api fiber.Router, h Set) {
	api.Post("/docint/validation", h.DocInt.Validation)
	api.Post("/docint/identity", h.DocInt.Identity)
	api.Post("/docint/contract", h.DocInt.Contract)
	api.Get("/docint/classification", h.DocInt.GetClassification)
	api.Post("/docint/classification/select", h.DocInt.SelectDocument)
	api.Delete("/docint/classification", h.DocInt.ResetClassification)
	api.Get("/docint/particular", h.DocInt.GetParticular)
	api.Put("/docint/particular/checks", h.DocInt.SetCheck)
	api.Delete("/docint/particular", h.DocInt.ResetParticular)
	api.Get("/docint/onboarding", h.DocInt.GetOnboarding)
	api.Delete("/docint/onboarding", h.DocInt.ResetOnboarding)

	api.Get("/vision", h.Vision.Get)
	api.Post("/vision/detect", h.Vision.Detect)
	api.Post("/vision/invoice", h.Vision.Invoice)
	api.Put("/vision/thresholds", h.Vision.SetThresholds)
	api.Get("/vision/review/:tagId", h.Vision.Review)
	api.Delete("/vision", h.Vision.Reset)

	api.Post("/chat", h.Chat.Chat)
	api.Get("/chat", h.Chat.History)
	api.Delete("/chat", h.Chat.Reset)
	if h.WebSocket != nil {
		api.Get("/ws/chat", h.WebSocket.Upgrade, websocket.New(h.WebSocket.HandleConnection))
	}

	api.Get("/session", h.Ops.Session)
	api.Post("/session/reset", h.Ops.ResetSession)
	api.Delete("/session", h.Ops.DeleteSession)
	api.Get("/views", h.Ops.Views)
	api.Get("/calls", h.Ops.Calls)
	api.Get("/health", h.Ops.Health)
	api.Get("/ready", h.Ops.Ready)
}
