package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/apperr"
	"github.com/fathima-sithara/conversation-service/internal/events"
	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/query"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/util"
)

// In-memory stores mirroring the repository contracts so coordinator
// behavior can be exercised without a running database.

type memConvStore struct {
	mu        sync.Mutex
	convs     map[string]*models.Conversation
	failApply error
}

func newMemConvStore() *memConvStore {
	return &memConvStore{convs: map[string]*models.Conversation{}}
}

func (s *memConvStore) put(c *models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.UnreadCount == nil {
		c.UnreadCount = map[string]int{}
	}
	if c.Status == "" {
		c.Status = models.StatusActive
	}
	if c.Settings.IsZero() {
		c.Settings = models.DefaultSettings()
	}
	s.convs[c.ID] = c
}

func (s *memConvStore) Get(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, apperr.NotFound("conversation %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *memConvStore) ApplyDelivery(_ context.Context, id string, last models.LastMessage, recipients []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failApply != nil {
		return s.failApply
	}
	c, ok := s.convs[id]
	if !ok {
		return apperr.NotFound("conversation %s not found", id)
	}
	lm := last
	c.LastMessage = &lm
	c.Status = models.StatusActive
	for _, uid := range recipients {
		c.UnreadCount[uid]++
	}
	c.UpdatedAt = util.Now()
	return nil
}

func (s *memConvStore) ResetUnread(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return apperr.NotFound("conversation %s not found", id)
	}
	c.UnreadCount[userID] = 0
	c.UpdatedAt = util.Now()
	return nil
}

func (s *memConvStore) AddParticipant(_ context.Context, id string, p models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return apperr.NotFound("conversation %s not found", id)
	}
	if c.IsParticipant(p.UserID) {
		return nil
	}
	c.Participants = append(c.Participants, p)
	c.UpdatedAt = util.Now()
	return nil
}

func (s *memConvStore) RemoveParticipant(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return apperr.NotFound("conversation %s not found", id)
	}
	out := c.Participants[:0]
	for _, p := range c.Participants {
		if p.UserID != userID {
			out = append(out, p)
		}
	}
	c.Participants = out
	delete(c.UnreadCount, userID)
	c.UpdatedAt = util.Now()
	return nil
}

// ConversationRepo surface, for the Conversations service tests.

func (s *memConvStore) Create(_ context.Context, conv *models.Conversation) (*models.Conversation, error) {
	if len(conv.Participants) == 0 {
		return nil, apperr.Validation("conversation requires at least one participant")
	}
	if !conv.Type.Valid() {
		return nil, apperr.Validation("unknown conversation type %q", conv.Type)
	}
	if conv.ID == "" {
		conv.ID = util.NewID()
	}
	conv.UnreadCount = map[string]int{}
	now := util.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	s.put(conv)
	return conv, nil
}

func (s *memConvStore) ListForUser(_ context.Context, userID string, f query.ConversationFilter, p query.Pagination) ([]models.Conversation, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Conversation{}
	for _, c := range s.convs {
		if !c.IsParticipant(userID) {
			continue
		}
		if f.HasUnread && c.UnreadCount[userID] == 0 {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (s *memConvStore) Update(_ context.Context, id string, upd repository.ConversationUpdate) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, apperr.NotFound("conversation %s not found", id)
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.Priority != nil {
		c.Priority = *upd.Priority
	}
	if upd.Tags != nil {
		c.Tags = *upd.Tags
	}
	if upd.Settings != nil {
		c.Settings = *upd.Settings
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	c.UpdatedAt = util.Now()
	cp := *c
	return &cp, nil
}

func (s *memConvStore) SetStatus(ctx context.Context, id string, status models.ConversationStatus) (*models.Conversation, error) {
	return s.Update(ctx, id, repository.ConversationUpdate{Status: &status})
}

type memMsgStore struct {
	mu    sync.Mutex
	msgs  map[string]*models.Message
	order []string
}

func newMemMsgStore() *memMsgStore {
	return &memMsgStore{msgs: map[string]*models.Message{}}
}

func (s *memMsgStore) Append(_ context.Context, m *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = util.NewID()
	}
	now := util.Now()
	m.Reactions = map[string][]string{}
	m.ReadBy = []models.ReadReceipt{{UserID: m.SenderID, ReadAt: now}}
	m.IsEdited = false
	m.IsDeleted = false
	m.ReportCount = 0
	m.CreatedAt = now
	m.UpdatedAt = nil
	if m.Status == "" {
		m.Status = models.DeliverySent
	}
	s.msgs[m.ID] = m
	s.order = append(s.order, m.ID)
	return m, nil
}

// List applies the filter in append order, counts the full match set, then
// slices out the requested page, mirroring the count-then-find store path.
func (s *memMsgStore) List(_ context.Context, conversationID string, f query.MessageFilter, p query.Pagination) ([]models.Message, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []models.Message{}
	for _, id := range s.order {
		m := s.msgs[id]
		if m.ConversationID != conversationID {
			continue
		}
		if m.IsDeleted && !f.IncludeDeleted {
			continue
		}
		if f.SenderID != "" && m.SenderID != f.SenderID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		matched = append(matched, *m)
	}
	total := int64(len(matched))

	p = p.Normalize("created_at")
	start := int(p.Skip())
	if start > len(matched) {
		start = len(matched)
	}
	end := start + p.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *memMsgStore) Get(_ context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, apperr.NotFound("message %s not found", id)
	}
	return m, nil
}

func (s *memMsgStore) Edit(_ context.Context, id string, content models.Content) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, apperr.NotFound("message %s not found", id)
	}
	m.Content = content
	m.IsEdited = true
	now := util.Now()
	m.UpdatedAt = &now
	return m, nil
}

func (s *memMsgStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return apperr.NotFound("message %s not found", id)
	}
	if m.IsDeleted {
		return nil
	}
	m.Content = models.TombstoneContent()
	m.IsDeleted = true
	now := util.Now()
	m.UpdatedAt = &now
	return nil
}

func (s *memMsgStore) AddReaction(_ context.Context, id, userID, emoji string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, apperr.NotFound("message %s not found", id)
	}
	users := m.Reactions[emoji]
	for _, u := range users {
		if u == userID {
			return m, nil
		}
	}
	m.Reactions[emoji] = append(users, userID)
	return m, nil
}

func (s *memMsgStore) RemoveReaction(_ context.Context, id, userID, emoji string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, apperr.NotFound("message %s not found", id)
	}
	users := m.Reactions[emoji]
	out := users[:0]
	for _, u := range users {
		if u != userID {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		delete(m.Reactions, emoji)
	} else {
		m.Reactions[emoji] = out
	}
	return m, nil
}

func (s *memMsgStore) MarkRead(_ context.Context, conversationID, userID string, messageIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := map[string]bool{}
	for _, id := range messageIDs {
		target[id] = true
	}
	var n int64
	for _, m := range s.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if len(target) > 0 && !target[m.ID] {
			continue
		}
		if m.ReadByUser(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, models.ReadReceipt{UserID: userID, ReadAt: util.Now()})
		n++
	}
	return n, nil
}

func (s *memMsgStore) IncrementReportCount(_ context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, apperr.NotFound("message %s not found", id)
	}
	m.ReportCount++
	return m, nil
}

// countForConversation is a test-side helper, not part of the store contract.
func (s *memMsgStore) countForConversation(conversationID string, includeDeleted bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if m.IsDeleted && !includeDeleted {
			continue
		}
		n++
	}
	return n
}

// memSink records published events.
type memSink struct {
	mu  sync.Mutex
	evs []events.Envelope
}

func (s *memSink) Publish(_ context.Context, _ string, ev events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, ev)
	return nil
}

func (s *memSink) waitFor(event string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		for _, ev := range s.evs {
			if ev.Event == event {
				s.mu.Unlock()
				return true
			}
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

var errStoreDown = errors.New("store unavailable")
