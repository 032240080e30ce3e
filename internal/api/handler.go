package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/presence"
	"github.com/fathima-sithara/conversation-service/internal/query"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/service"
)

type Handlers struct {
	convs   *service.Conversations
	coord   *service.Coordinator
	tracker *presence.Tracker
}

func NewHandlers(convs *service.Conversations, coord *service.Coordinator, tracker *presence.Tracker) *Handlers {
	return &Handlers{convs: convs, coord: coord, tracker: tracker}
}

func callerID(c *fiber.Ctx) string {
	return c.Locals("user_id").(string)
}

func reqCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 5*time.Second)
}

// --- conversations ---

func (h *Handlers) createConversation(c *fiber.Ctx) error {
	var in service.CreateConversationInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	conv, err := h.convs.Create(ctx, callerID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 201, conv)
}

func (h *Handlers) getConversation(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	conv, err := h.convs.Get(ctx, callerID(c), c.Params("conv_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 200, conv)
}

func (h *Handlers) listConversations(c *fiber.Ctx) error {
	f := query.ConversationFilter{
		HasUnread: c.QueryBool("has_unread"),
		Priority:  models.Priority(c.Query("priority")),
	}
	if v := c.Query("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			f.Types = append(f.Types, models.ConversationType(t))
		}
	}
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			f.Statuses = append(f.Statuses, models.ConversationStatus(s))
		}
	}
	if v := c.Query("tags"); v != "" {
		f.Tags = strings.Split(v, ",")
	}
	f.CreatedAfter = queryTime(c, "created_after")
	f.CreatedBefore = queryTime(c, "created_before")

	p := pagination(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.convs.List(ctx, callerID(c), f, p)
	if err != nil {
		return fail(c, err)
	}
	p = p.Normalize("updated_at")
	return ok(c, 200, pageResult{Items: items, Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *Handlers) updateConversation(c *fiber.Ctx) error {
	var upd repository.ConversationUpdate
	if err := c.BodyParser(&upd); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	conv, err := h.convs.Update(ctx, callerID(c), c.Params("conv_id"), upd)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 200, conv)
}

func (h *Handlers) setConversationStatus(c *fiber.Ctx) error {
	var body struct {
		Status models.ConversationStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	conv, err := h.convs.SetStatus(ctx, callerID(c), c.Params("conv_id"), body.Status)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 200, conv)
}

func (h *Handlers) addParticipant(c *fiber.Ctx) error {
	var np service.NewParticipant
	if err := c.BodyParser(&np); err != nil {
		return badRequest(c, "invalid body")
	}
	perms := models.DefaultPermissions()
	if np.Permissions != nil {
		perms = *np.Permissions
	}
	p := models.Participant{
		UserID:      np.UserID,
		Role:        np.Role,
		Nickname:    np.Nickname,
		Permissions: perms,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.coord.AddParticipant(ctx, c.Params("conv_id"), callerID(c), p); err != nil {
		return fail(c, err)
	}
	return ok(c, 200, nil)
}

func (h *Handlers) removeParticipant(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.coord.RemoveParticipant(ctx, c.Params("conv_id"), callerID(c), c.Params("user_id")); err != nil {
		return fail(c, err)
	}
	return ok(c, 200, nil)
}

// --- messages ---

func (h *Handlers) sendMessage(c *fiber.Ctx) error {
	var in service.SendInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	in.ConversationID = c.Params("conv_id")
	in.SenderID = callerID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	msg, err := h.coord.Send(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 201, viewMessage(msg))
}

func (h *Handlers) listMessages(c *fiber.Ctx) error {
	f := query.MessageFilter{
		SenderID:       c.Query("sender_id"),
		Type:           models.MessageType(c.Query("type")),
		HasAttachments: c.QueryBool("has_attachments"),
		Text:           c.Query("text"),
		IncludeDeleted: c.QueryBool("include_deleted"),
		CreatedAfter:   queryTime(c, "created_after"),
		CreatedBefore:  queryTime(c, "created_before"),
	}
	p := pagination(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.coord.ListMessages(ctx, c.Params("conv_id"), callerID(c), f, p)
	if err != nil {
		return fail(c, err)
	}
	p = p.Normalize("created_at")
	return ok(c, 200, pageResult{Items: viewMessages(items), Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *Handlers) editMessage(c *fiber.Ctx) error {
	var body struct {
		Content models.Content `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	msg, err := h.coord.EditMessage(ctx, c.Params("msg_id"), callerID(c), body.Content)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 200, viewMessage(msg))
}

func (h *Handlers) deleteMessage(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.coord.DeleteMessage(ctx, c.Params("msg_id"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, 200, nil)
}

func (h *Handlers) addReaction(c *fiber.Ctx) error {
	var body struct {
		Emoji string `json:"emoji"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	msg, err := h.coord.React(ctx, c.Params("msg_id"), callerID(c), body.Emoji)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 200, viewMessage(msg))
}

func (h *Handlers) removeReaction(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	msg, err := h.coord.Unreact(ctx, c.Params("msg_id"), callerID(c), c.Params("emoji"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 200, viewMessage(msg))
}

func (h *Handlers) markAsRead(c *fiber.Ctx) error {
	var body struct {
		MessageIDs []string `json:"message_ids,omitempty"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.coord.MarkAsRead(ctx, c.Params("conv_id"), callerID(c), body.MessageIDs); err != nil {
		return fail(c, err)
	}
	return ok(c, 200, nil)
}

func (h *Handlers) reportMessage(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	msg, err := h.coord.Report(ctx, c.Params("msg_id"), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, 200, viewMessage(msg))
}

// --- presence ---

func (h *Handlers) setTyping(c *fiber.Ctx) error {
	var body struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	h.tracker.SetTyping(c.Params("conv_id"), callerID(c), body.IsTyping)
	h.coord.NotifyTyping(c.Params("conv_id"), callerID(c), body.IsTyping)
	return ok(c, 200, nil)
}

func (h *Handlers) getTyping(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	// Participants only, same as the conversation itself.
	if _, err := h.convs.Get(ctx, callerID(c), c.Params("conv_id")); err != nil {
		return fail(c, err)
	}
	users := h.tracker.GetTypingUsers(c.Params("conv_id"))
	return ok(c, 200, fiber.Map{"users": users})
}

func (h *Handlers) setOnline(c *fiber.Ctx) error {
	var body struct {
		IsOnline bool `json:"is_online"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	h.tracker.SetOnline(callerID(c), body.IsOnline)
	h.coord.NotifyPresence(callerID(c), body.IsOnline)
	return ok(c, 200, nil)
}

func (h *Handlers) getOnline(c *fiber.Ctx) error {
	status, found := h.tracker.GetOnline(c.Params("user_id"))
	if !found {
		status = presence.OnlineStatus{}
	}
	return ok(c, 200, status)
}

// --- helpers ---

func pagination(c *fiber.Ctx) query.Pagination {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "0"))
	return query.Pagination{
		Page:   page,
		Limit:  limit,
		SortBy: c.Query("sort_by"),
		Asc:    c.Query("order") == "asc",
	}
}

func queryTime(c *fiber.Ctx, key string) time.Time {
	v := c.Query(key)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
