package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/conversation-service/internal/apperr"
	"github.com/fathima-sithara/conversation-service/internal/models"
)

// Envelope is the uniform result wrapper; callers check Success before
// trusting Data, and Code stays stable per error kind so UIs can react.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Data: data})
}

func fail(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	return c.Status(apperr.HTTPStatus(kind)).JSON(Envelope{
		Success: false,
		Error:   err.Error(),
		Code:    string(kind),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(400).JSON(Envelope{
		Success: false,
		Error:   msg,
		Code:    string(apperr.KindValidation),
	})
}

// pageResult carries a page plus the total match count for UI page counts.
type pageResult struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// messageView flattens the stored reaction map into the list-with-count
// wire shape.
type messageView struct {
	*models.Message
	Reactions []models.Reaction `json:"reactions"`
}

func viewMessage(m *models.Message) messageView {
	return messageView{Message: m, Reactions: m.ReactionView()}
}

func viewMessages(ms []models.Message) []messageView {
	out := make([]messageView, 0, len(ms))
	for i := range ms {
		out = append(out, viewMessage(&ms[i]))
	}
	return out
}
