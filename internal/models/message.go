package models

import (
	"sort"
	"time"
)

type DeliveryStatus string

const (
	DeliverySending   DeliveryStatus = "sending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// SenderInfo is a snapshot of how the sender appeared at send time.
// It is intentionally not kept in sync with later profile edits.
type SenderInfo struct {
	Name      string `bson:"name" json:"name"`
	AvatarURL string `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	UserType  string `bson:"user_type,omitempty" json:"user_type,omitempty"`
	Verified  bool   `bson:"verified" json:"verified"`
}

type ReadReceipt struct {
	UserID string    `bson:"user_id" json:"user_id"`
	ReadAt time.Time `bson:"read_at" json:"read_at"`
}

// Reaction is the API view of one emoji's reactors. Count is derived from
// the stored user set, so count == len(users) holds by construction.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

type Message struct {
	ID             string         `bson:"_id" json:"id"`
	ConversationID string         `bson:"conversation_id" json:"conversation_id"`
	SenderID       string         `bson:"sender_id" json:"sender_id"`
	SenderInfo     SenderInfo     `bson:"sender_info" json:"sender_info"`
	Type           MessageType    `bson:"type" json:"type"`
	Content        Content        `bson:"content" json:"content"`
	Status         DeliveryStatus `bson:"status" json:"status"`
	ReplyToID      string         `bson:"reply_to_id,omitempty" json:"reply_to_id,omitempty"`
	ThreadID       string         `bson:"thread_id,omitempty" json:"thread_id,omitempty"`

	// Reactions persist as emoji -> user IDs so a single emoji's set can be
	// mutated atomically with $addToSet / $pull.
	Reactions map[string][]string `bson:"reactions" json:"-"`

	ReadBy      []ReadReceipt `bson:"read_by" json:"read_by"`
	IsEdited    bool          `bson:"is_edited" json:"is_edited"`
	IsDeleted   bool          `bson:"is_deleted" json:"is_deleted"`
	ReportCount int           `bson:"report_count" json:"report_count"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt   *time.Time    `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ReactionView flattens the stored reaction map into the wire shape,
// ordered by emoji for stable output. Empty entries are dropped.
func (m *Message) ReactionView() []Reaction {
	if len(m.Reactions) == 0 {
		return []Reaction{}
	}
	emojis := make([]string, 0, len(m.Reactions))
	for e, users := range m.Reactions {
		if len(users) > 0 {
			emojis = append(emojis, e)
		}
	}
	sort.Strings(emojis)
	out := make([]Reaction, 0, len(emojis))
	for _, e := range emojis {
		users := m.Reactions[e]
		out = append(out, Reaction{Emoji: e, Users: users, Count: len(users)})
	}
	return out
}

// ReadByUser reports whether userID already has a read receipt.
func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// AsLastMessage builds the denormalized pointer the conversation carries.
func (m *Message) AsLastMessage() LastMessage {
	return LastMessage{
		MessageID: m.ID,
		SenderID:  m.SenderID,
		Type:      m.Type,
		Preview:   m.Content.Preview(),
		SentAt:    m.CreatedAt,
	}
}
