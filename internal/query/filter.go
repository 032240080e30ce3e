package query

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination is shared by every list operation. Totals are computed by a
// separate count over the same filter, never from the page slice.
type Pagination struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	SortBy string `json:"sort_by"`
	Asc    bool   `json:"asc"`
}

// Normalize clamps the page/limit and fills the default sort field.
func (p Pagination) Normalize(defaultSort string) Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.SortBy == "" {
		p.SortBy = defaultSort
	}
	return p
}

func (p Pagination) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// FindOptions translates the pagination into driver options.
func (p Pagination) FindOptions() *options.FindOptions {
	order := -1
	if p.Asc {
		order = 1
	}
	return options.Find().
		SetSort(bson.D{{Key: p.SortBy, Value: order}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
}

// ConversationFilter covers the ListForUser search surface.
type ConversationFilter struct {
	Types         []models.ConversationType
	Statuses      []models.ConversationStatus
	HasUnread     bool
	Tags          []string
	Priority      models.Priority
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// Build renders the filter as a store query scoped to the user's
// conversations. HasUnread addresses the caller's own counter.
func (f ConversationFilter) Build(userID string) bson.M {
	q := bson.M{"participants.user_id": userID}
	if len(f.Types) > 0 {
		q["type"] = bson.M{"$in": f.Types}
	}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	if f.HasUnread {
		q["unread_count."+userID] = bson.M{"$gt": 0}
	}
	if len(f.Tags) > 0 {
		q["tags"] = bson.M{"$in": f.Tags}
	}
	if f.Priority != "" {
		q["priority"] = f.Priority
	}
	if rng := dateRange(f.CreatedAfter, f.CreatedBefore); rng != nil {
		q["created_at"] = rng
	}
	return q
}

// MessageFilter covers the message list surface. Deleted messages are
// excluded unless IncludeDeleted is set.
type MessageFilter struct {
	SenderID       string
	Type           models.MessageType
	HasAttachments bool
	Text           string
	CreatedAfter   time.Time
	CreatedBefore  time.Time
	IncludeDeleted bool
}

func (f MessageFilter) Build(conversationID string) bson.M {
	q := bson.M{"conversation_id": conversationID}
	if !f.IncludeDeleted {
		q["is_deleted"] = false
	}
	if f.SenderID != "" {
		q["sender_id"] = f.SenderID
	}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if f.HasAttachments {
		q["content.media.0"] = bson.M{"$exists": true}
	}
	if f.Text != "" {
		q["content.text.body"] = bson.M{"$regex": regexp.QuoteMeta(f.Text), "$options": "i"}
	}
	if rng := dateRange(f.CreatedAfter, f.CreatedBefore); rng != nil {
		q["created_at"] = rng
	}
	return q
}

func dateRange(after, before time.Time) bson.M {
	if after.IsZero() && before.IsZero() {
		return nil
	}
	rng := bson.M{}
	if !after.IsZero() {
		rng["$gte"] = after
	}
	if !before.IsZero() {
		rng["$lte"] = before
	}
	return rng
}
