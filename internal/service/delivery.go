package service

import (
	"context"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/conversation-service/internal/apperr"
	"github.com/fathima-sithara/conversation-service/internal/events"
	"github.com/fathima-sithara/conversation-service/internal/metrics"
	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/query"
)

// ConversationStore is the coordinator's view of conversation persistence.
// ApplyDelivery and ResetUnread are the only paths allowed to touch the
// denormalized last_message / unread_count fields.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
	ApplyDelivery(ctx context.Context, id string, last models.LastMessage, recipients []string) error
	ResetUnread(ctx context.Context, id, userID string) error
	AddParticipant(ctx context.Context, id string, p models.Participant) error
	RemoveParticipant(ctx context.Context, id, userID string) error
}

type MessageStore interface {
	Append(ctx context.Context, m *models.Message) (*models.Message, error)
	Get(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context, conversationID string, f query.MessageFilter, p query.Pagination) ([]models.Message, int64, error)
	Edit(ctx context.Context, id string, content models.Content) (*models.Message, error)
	SoftDelete(ctx context.Context, id string) error
	AddReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error)
	RemoveReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID string, messageIDs []string) (int64, error)
	IncrementReportCount(ctx context.Context, id string) (*models.Message, error)
}

// Sink receives fire-and-forget notifications after durable writes.
type Sink interface {
	Publish(ctx context.Context, key string, ev events.Envelope) error
}

// Coordinator owns the cross-record operations: a send touches the message
// store and the owning conversation, a mark-as-read touches read receipts
// and the caller's unread counter.
type Coordinator struct {
	convs ConversationStore
	msgs  MessageStore
	sink  Sink
	log   *zap.SugaredLogger
}

func NewCoordinator(convs ConversationStore, msgs MessageStore, sink Sink, log *zap.SugaredLogger) *Coordinator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Coordinator{convs: convs, msgs: msgs, sink: sink, log: log}
}

type SendInput struct {
	ConversationID string             `json:"conversation_id"`
	SenderID       string             `json:"-"`
	SenderInfo     models.SenderInfo  `json:"sender_info"`
	Type           models.MessageType `json:"type"`
	Content        models.Content     `json:"content"`
	ReplyToID      string             `json:"reply_to_id,omitempty"`
	ThreadID       string             `json:"thread_id,omitempty"`
}

// Send appends the message, then folds it into the conversation's
// denormalized state. Sending into a blocked conversation is rejected;
// sending into an archived one reactivates it.
func (c *Coordinator) Send(ctx context.Context, in SendInput) (*models.Message, error) {
	conv, err := c.convs.Get(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.StatusBlocked {
		return nil, apperr.Conflict("conversation %s is blocked", conv.ID)
	}

	p, ok := conv.FindParticipant(in.SenderID)
	if !ok {
		return nil, apperr.PermissionDenied("user %s is not a participant", in.SenderID)
	}
	if !p.IsActive {
		return nil, apperr.PermissionDenied("participant %s is inactive", in.SenderID)
	}
	if !p.Permissions.CanSendMessages {
		return nil, apperr.PermissionDenied("participant %s may not send messages", in.SenderID)
	}
	if len(in.Content.Media) > 0 && !p.Permissions.CanSendMedia {
		return nil, apperr.PermissionDenied("participant %s may not send media", in.SenderID)
	}

	if in.Content.Kind != in.Type {
		return nil, apperr.Validation("content kind %q does not match message type %q", in.Content.Kind, in.Type)
	}
	if err := in.Content.Validate(); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if err := checkRestrictions(conv.Settings.Restrictions, in.Content); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		SenderInfo:     in.SenderInfo,
		Type:           in.Type,
		Content:        in.Content,
		Status:         models.DeliverySent,
		ReplyToID:      in.ReplyToID,
		ThreadID:       in.ThreadID,
	}

	created, err := c.msgs.Append(ctx, msg)
	if err != nil {
		return nil, err
	}

	// The message is durable from here on. A conversation-side failure is
	// logged for the reconciliation job, never used to retract the message.
	recipients := conv.RecipientIDs(in.SenderID)
	if err := c.convs.ApplyDelivery(ctx, conv.ID, created.AsLastMessage(), recipients); err != nil {
		metrics.DenormFailures.Inc()
		c.log.Errorw("message appended but conversation update failed",
			"conversation_id", conv.ID, "message_id", created.ID, "err", err)
		return created, nil
	}

	metrics.MessagesSent.Inc()
	c.notify(events.Envelope{
		Event:          events.MessageCreated,
		ConversationID: conv.ID,
		UserID:         in.SenderID,
		Payload:        created,
	})
	return created, nil
}

// MarkAsRead adds read receipts for the target set and resets the caller's
// unread counter to zero. The reset is unconditional: read state is
// boundary-based, a caller is either caught up or behind.
func (c *Coordinator) MarkAsRead(ctx context.Context, conversationID, userID string, messageIDs []string) error {
	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsParticipant(userID) {
		return apperr.PermissionDenied("user %s is not a participant", userID)
	}

	if _, err := c.msgs.MarkRead(ctx, conversationID, userID, messageIDs); err != nil {
		return err
	}
	if err := c.convs.ResetUnread(ctx, conversationID, userID); err != nil {
		return err
	}

	metrics.MarkReads.Inc()
	c.notify(events.Envelope{
		Event:          events.ConversationRead,
		ConversationID: conversationID,
		UserID:         userID,
	})
	return nil
}

// EditMessage replaces the content wholesale. Only the author may edit,
// tombstoned messages stay tombstoned, and the message type is immutable:
// the new content must carry the same kind the message was created with.
func (c *Coordinator) EditMessage(ctx context.Context, messageID, userID string, content models.Content) (*models.Message, error) {
	msg, err := c.msgs.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, apperr.Conflict("message %s belongs to another user", messageID)
	}
	if msg.IsDeleted {
		return nil, apperr.Conflict("message %s is deleted", messageID)
	}
	if content.Kind != msg.Type {
		return nil, apperr.Validation("content kind %q does not match message type %q", content.Kind, msg.Type)
	}
	if err := content.Validate(); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	edited, err := c.msgs.Edit(ctx, messageID, content)
	if err != nil {
		return nil, err
	}
	c.notify(events.Envelope{
		Event:          events.MessageEdited,
		ConversationID: edited.ConversationID,
		UserID:         userID,
		Payload:        edited,
	})
	return edited, nil
}

// DeleteMessage soft-deletes; author-only, idempotent.
func (c *Coordinator) DeleteMessage(ctx context.Context, messageID, userID string) error {
	msg, err := c.msgs.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return apperr.Conflict("message %s belongs to another user", messageID)
	}
	if err := c.msgs.SoftDelete(ctx, messageID); err != nil {
		return err
	}
	c.notify(events.Envelope{
		Event:          events.MessageDeleted,
		ConversationID: msg.ConversationID,
		UserID:         userID,
	})
	return nil
}

// ListMessages returns a history page; participants only.
func (c *Coordinator) ListMessages(ctx context.Context, conversationID, userID string, f query.MessageFilter, p query.Pagination) ([]models.Message, int64, error) {
	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !conv.IsParticipant(userID) {
		return nil, 0, apperr.PermissionDenied("user %s is not a participant", userID)
	}
	return c.msgs.List(ctx, conversationID, f, p)
}

// React adds the caller to an emoji's reactor set.
func (c *Coordinator) React(ctx context.Context, messageID, userID, emoji string) (*models.Message, error) {
	if err := validateEmoji(emoji); err != nil {
		return nil, err
	}
	if err := c.requireParticipantOfMessage(ctx, messageID, userID); err != nil {
		return nil, err
	}
	m, err := c.msgs.AddReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	c.notify(events.Envelope{
		Event:          events.ReactionChanged,
		ConversationID: m.ConversationID,
		UserID:         userID,
		Payload:        m.ReactionView(),
	})
	return m, nil
}

// Unreact removes the caller from an emoji's reactor set; removing a
// reaction that was never added is a no-op.
func (c *Coordinator) Unreact(ctx context.Context, messageID, userID, emoji string) (*models.Message, error) {
	if err := validateEmoji(emoji); err != nil {
		return nil, err
	}
	if err := c.requireParticipantOfMessage(ctx, messageID, userID); err != nil {
		return nil, err
	}
	m, err := c.msgs.RemoveReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	c.notify(events.Envelope{
		Event:          events.ReactionChanged,
		ConversationID: m.ConversationID,
		UserID:         userID,
		Payload:        m.ReactionView(),
	})
	return m, nil
}

// Report bumps the moderation counter; any participant may report.
func (c *Coordinator) Report(ctx context.Context, messageID, userID string) (*models.Message, error) {
	if err := c.requireParticipantOfMessage(ctx, messageID, userID); err != nil {
		return nil, err
	}
	return c.msgs.IncrementReportCount(ctx, messageID)
}

// AddParticipant requires the caller to hold can_add_participants.
func (c *Coordinator) AddParticipant(ctx context.Context, conversationID, callerID string, p models.Participant) error {
	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	caller, ok := conv.FindParticipant(callerID)
	if !ok {
		return apperr.PermissionDenied("user %s is not a participant", callerID)
	}
	if !caller.Permissions.CanAddParticipants {
		return apperr.PermissionDenied("participant %s may not add participants", callerID)
	}
	if p.UserID == "" {
		return apperr.Validation("participant user_id required")
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	p.IsActive = true
	if err := c.convs.AddParticipant(ctx, conversationID, p); err != nil {
		return err
	}
	c.notify(events.Envelope{
		Event:          events.ParticipantChange,
		ConversationID: conversationID,
		UserID:         p.UserID,
	})
	return nil
}

// RemoveParticipant requires can_remove_participants, except that any
// participant may remove themselves.
func (c *Coordinator) RemoveParticipant(ctx context.Context, conversationID, callerID, userID string) error {
	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	caller, ok := conv.FindParticipant(callerID)
	if !ok {
		return apperr.PermissionDenied("user %s is not a participant", callerID)
	}
	if callerID != userID && !caller.Permissions.CanRemoveParticipants {
		return apperr.PermissionDenied("participant %s may not remove participants", callerID)
	}
	if err := c.convs.RemoveParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	c.notify(events.Envelope{
		Event:          events.ParticipantChange,
		ConversationID: conversationID,
		UserID:         userID,
	})
	return nil
}

// NotifyTyping broadcasts a typing transition. The state itself lives in
// the in-process tracker; only the transition goes on the wire.
func (c *Coordinator) NotifyTyping(conversationID, userID string, isTyping bool) {
	c.notify(events.Envelope{
		Event:          events.TypingChanged,
		ConversationID: conversationID,
		UserID:         userID,
		Payload:        map[string]bool{"is_typing": isTyping},
	})
}

// NotifyPresence broadcasts an online/offline transition.
func (c *Coordinator) NotifyPresence(userID string, online bool) {
	c.notify(events.Envelope{
		Event:   events.PresenceChanged,
		UserID:  userID,
		Payload: map[string]bool{"is_online": online},
	})
}

func (c *Coordinator) requireParticipantOfMessage(ctx context.Context, messageID, userID string) error {
	msg, err := c.msgs.Get(ctx, messageID)
	if err != nil {
		return err
	}
	conv, err := c.convs.Get(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	if !conv.IsParticipant(userID) {
		return apperr.PermissionDenied("user %s is not a participant", userID)
	}
	return nil
}

// notify publishes to the sink without blocking the caller. Failures are
// logged and dropped; notifications are not part of the durability contract.
func (c *Coordinator) notify(ev events.Envelope) {
	if c.sink == nil {
		return
	}
	ev.At = time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.sink.Publish(ctx, ev.ConversationID, ev); err != nil {
			c.log.Warnw("event publish failed", "event", ev.Event, "err", err)
		}
	}()
}

func checkRestrictions(r models.MessagingRestrictions, content models.Content) error {
	if r.MaxMessageLength > 0 && content.TextLength() > r.MaxMessageLength {
		return apperr.Validation("message exceeds max length %d", r.MaxMessageLength)
	}
	for _, item := range content.Media {
		if r.MaxFileSize > 0 && item.SizeBytes > r.MaxFileSize {
			return apperr.Validation("attachment %s exceeds max file size %d", item.FileName, r.MaxFileSize)
		}
		if len(r.AllowedMimeTypes) > 0 && !mimeAllowed(r.AllowedMimeTypes, item.MimeType) {
			return apperr.Validation("mime type %q is not allowed", item.MimeType)
		}
	}
	return nil
}

// validateEmoji rejects strings that could address other store fields:
// emojis become part of the reactions field path, so "." and "$" are out.
func validateEmoji(emoji string) error {
	if emoji == "" {
		return apperr.Validation("emoji required")
	}
	if strings.ContainsAny(emoji, ".$") {
		return apperr.Validation("emoji %q contains reserved characters", emoji)
	}
	return nil
}

// mimeAllowed matches patterns like "image/*" or exact types.
func mimeAllowed(patterns []string, mime string) bool {
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, mime); ok {
			return true
		}
	}
	return false
}
