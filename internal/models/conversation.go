package models

import "time"

type ConversationType string

const (
	ConversationDirect  ConversationType = "direct"
	ConversationGroup   ConversationType = "group"
	ConversationProject ConversationType = "project"
	ConversationSupport ConversationType = "support"
)

func (t ConversationType) Valid() bool {
	switch t {
	case ConversationDirect, ConversationGroup, ConversationProject, ConversationSupport:
		return true
	}
	return false
}

type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusArchived ConversationStatus = "archived"
	StatusBlocked  ConversationStatus = "blocked"
	StatusReported ConversationStatus = "reported"
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusBlocked, StatusReported:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleInfluencer Role = "influencer"
	RoleProvider   Role = "provider"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
)

// Permissions are independent booleans; no role implies any of them.
type Permissions struct {
	CanSendMessages        bool `bson:"can_send_messages" json:"can_send_messages"`
	CanSendMedia           bool `bson:"can_send_media" json:"can_send_media"`
	CanAddParticipants     bool `bson:"can_add_participants" json:"can_add_participants"`
	CanRemoveParticipants  bool `bson:"can_remove_participants" json:"can_remove_participants"`
	CanEditConversation    bool `bson:"can_edit_conversation" json:"can_edit_conversation"`
	CanArchiveConversation bool `bson:"can_archive_conversation" json:"can_archive_conversation"`
}

func DefaultPermissions() Permissions {
	return Permissions{
		CanSendMessages: true,
		CanSendMedia:    true,
	}
}

type Participant struct {
	UserID      string      `bson:"user_id" json:"user_id"`
	Role        Role        `bson:"role" json:"role"`
	JoinedAt    time.Time   `bson:"joined_at" json:"joined_at"`
	IsActive    bool        `bson:"is_active" json:"is_active"`
	Nickname    string      `bson:"nickname,omitempty" json:"nickname,omitempty"`
	LastReadAt  *time.Time  `bson:"last_read_at,omitempty" json:"last_read_at,omitempty"`
	Permissions Permissions `bson:"permissions" json:"permissions"`
}

type MessagingRestrictions struct {
	MaxFileSize      int64    `bson:"max_file_size" json:"max_file_size"`
	AllowedMimeTypes []string `bson:"allowed_mime_types" json:"allowed_mime_types"`
	MaxMessageLength int      `bson:"max_message_length" json:"max_message_length"`
}

type Settings struct {
	NotificationsEnabled bool                  `bson:"notifications_enabled" json:"notifications_enabled"`
	AutoArchive          bool                  `bson:"auto_archive" json:"auto_archive"`
	FileSharing          bool                  `bson:"file_sharing" json:"file_sharing"`
	LinkSharing          bool                  `bson:"link_sharing" json:"link_sharing"`
	Restrictions         MessagingRestrictions `bson:"restrictions" json:"restrictions"`
}

// IsZero reports whether the caller supplied no settings at all.
func (s Settings) IsZero() bool {
	return !s.NotificationsEnabled && !s.AutoArchive && !s.FileSharing && !s.LinkSharing &&
		s.Restrictions.MaxFileSize == 0 && s.Restrictions.MaxMessageLength == 0 &&
		len(s.Restrictions.AllowedMimeTypes) == 0
}

func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: true,
		FileSharing:          true,
		LinkSharing:          true,
		Restrictions: MessagingRestrictions{
			MaxFileSize:      25 << 20,
			AllowedMimeTypes: []string{"image/*", "video/*", "audio/*", "application/pdf"},
			MaxMessageLength: 10000,
		},
	}
}

// LastMessage is a denormalized copy of the most recently accepted message,
// written only by the delivery coordinator.
type LastMessage struct {
	MessageID string      `bson:"message_id" json:"message_id"`
	SenderID  string      `bson:"sender_id" json:"sender_id"`
	Type      MessageType `bson:"type" json:"type"`
	Preview   string      `bson:"preview" json:"preview"`
	SentAt    time.Time   `bson:"sent_at" json:"sent_at"`
}

type Conversation struct {
	ID           string             `bson:"_id" json:"id"`
	Participants []Participant      `bson:"participants" json:"participants"`
	Type         ConversationType   `bson:"type" json:"type"`
	Title        string             `bson:"title,omitempty" json:"title,omitempty"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	LastMessage  *LastMessage       `bson:"last_message,omitempty" json:"last_message,omitempty"`
	UnreadCount  map[string]int     `bson:"unread_count" json:"unread_count"`
	Status       ConversationStatus `bson:"status" json:"status"`
	Priority     Priority           `bson:"priority,omitempty" json:"priority,omitempty"`
	Tags         []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Settings     Settings           `bson:"settings" json:"settings"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// FindParticipant returns the participant entry for userID.
func (c *Conversation) FindParticipant(userID string) (*Participant, bool) {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

func (c *Conversation) IsParticipant(userID string) bool {
	_, ok := c.FindParticipant(userID)
	return ok
}

// RecipientIDs lists every participant except the sender. Inactive
// participants still receive unread counts; only removal stops tracking.
func (c *Conversation) RecipientIDs(senderID string) []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.UserID != senderID {
			out = append(out, p.UserID)
		}
	}
	return out
}
