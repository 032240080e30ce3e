package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/fathima-sithara/conversation-service/internal/apperr"
	"github.com/fathima-sithara/conversation-service/internal/middleware"
)

// NewServer wires the HTTP surface. Identity comes from the upstream
// gateway as X-User-ID and is trusted as-is; this service does no
// authentication of its own.
func NewServer(h *Handlers, limiter *middleware.RateLimiter) *fiber.App {
	app := fiber.New()
	app.Use(fiberlogger.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/v1")

	api.Use(func(c *fiber.Ctx) error {
		uid := c.Get("X-User-ID")
		if uid == "" {
			return c.Status(401).JSON(Envelope{
				Success: false,
				Error:   "missing X-User-ID",
				Code:    string(apperr.KindUnauthenticated),
			})
		}
		c.Locals("user_id", uid)
		return c.Next()
	})

	if limiter != nil {
		api.Use(limiter.MiddlewareByKey(func(c *fiber.Ctx) string {
			if c.Method() == fiber.MethodGet {
				return ""
			}
			uid, _ := c.Locals("user_id").(string)
			return uid
		}))
	}

	api.Post("/conversations", h.createConversation)
	api.Get("/conversations", h.listConversations)
	api.Get("/conversations/:conv_id", h.getConversation)
	api.Patch("/conversations/:conv_id", h.updateConversation)
	api.Put("/conversations/:conv_id/status", h.setConversationStatus)
	api.Post("/conversations/:conv_id/participants", h.addParticipant)
	api.Delete("/conversations/:conv_id/participants/:user_id", h.removeParticipant)

	api.Post("/conversations/:conv_id/messages", h.sendMessage)
	api.Get("/conversations/:conv_id/messages", h.listMessages)
	api.Post("/conversations/:conv_id/read", h.markAsRead)
	api.Patch("/messages/:msg_id", h.editMessage)
	api.Delete("/messages/:msg_id", h.deleteMessage)
	api.Post("/messages/:msg_id/reactions", h.addReaction)
	api.Delete("/messages/:msg_id/reactions/:emoji", h.removeReaction)
	api.Post("/messages/:msg_id/report", h.reportMessage)

	api.Put("/conversations/:conv_id/typing", h.setTyping)
	api.Get("/conversations/:conv_id/typing", h.getTyping)
	api.Put("/presence", h.setOnline)
	api.Get("/presence/:user_id", h.getOnline)

	return app
}
