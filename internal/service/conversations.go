package service

import (
	"context"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/apperr"
	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/query"
	"github.com/fathima-sithara/conversation-service/internal/repository"
)

// ConversationRepo is the read/CRUD surface the conversation service needs;
// the denormalization writes live on ConversationStore instead.
type ConversationRepo interface {
	Create(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	Get(ctx context.Context, id string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string, f query.ConversationFilter, p query.Pagination) ([]models.Conversation, int64, error)
	Update(ctx context.Context, id string, upd repository.ConversationUpdate) (*models.Conversation, error)
	SetStatus(ctx context.Context, id string, status models.ConversationStatus) (*models.Conversation, error)
}

// Conversations wraps the conversation repo with the permission checks the
// caller identity implies.
type Conversations struct {
	repo ConversationRepo
}

func NewConversations(repo ConversationRepo) *Conversations {
	return &Conversations{repo: repo}
}

type NewParticipant struct {
	UserID      string              `json:"user_id"`
	Role        models.Role         `json:"role"`
	Nickname    string              `json:"nickname,omitempty"`
	Permissions *models.Permissions `json:"permissions,omitempty"`
}

type CreateConversationInput struct {
	Type         models.ConversationType `json:"type"`
	Title        string                  `json:"title,omitempty"`
	Description  string                  `json:"description,omitempty"`
	Priority     models.Priority         `json:"priority,omitempty"`
	Tags         []string                `json:"tags,omitempty"`
	Settings     *models.Settings        `json:"settings,omitempty"`
	Participants []NewParticipant        `json:"participants"`
}

// Create builds the conversation with the caller as a participant. Callers
// who omit themselves from the list are added with default permissions.
func (s *Conversations) Create(ctx context.Context, callerID string, in CreateConversationInput) (*models.Conversation, error) {
	if len(in.Participants) == 0 {
		return nil, apperr.Validation("conversation requires at least one participant")
	}

	now := time.Now().UTC()
	parts := make([]models.Participant, 0, len(in.Participants)+1)
	hasCaller := false
	for _, np := range in.Participants {
		if np.UserID == "" {
			return nil, apperr.Validation("participant user_id required")
		}
		perms := models.DefaultPermissions()
		if np.Permissions != nil {
			perms = *np.Permissions
		}
		if np.UserID == callerID {
			hasCaller = true
		}
		parts = append(parts, models.Participant{
			UserID:      np.UserID,
			Role:        np.Role,
			JoinedAt:    now,
			IsActive:    true,
			Nickname:    np.Nickname,
			Permissions: perms,
		})
	}
	if !hasCaller {
		creator := models.DefaultPermissions()
		creator.CanAddParticipants = true
		creator.CanRemoveParticipants = true
		creator.CanEditConversation = true
		creator.CanArchiveConversation = true
		parts = append(parts, models.Participant{
			UserID:      callerID,
			JoinedAt:    now,
			IsActive:    true,
			Permissions: creator,
		})
	}

	conv := &models.Conversation{
		Participants: parts,
		Type:         in.Type,
		Title:        in.Title,
		Description:  in.Description,
		Priority:     in.Priority,
		Tags:         in.Tags,
	}
	if in.Settings != nil {
		conv.Settings = *in.Settings
	}
	return s.repo.Create(ctx, conv)
}

// Get returns the conversation to participants only.
func (s *Conversations) Get(ctx context.Context, callerID, id string) (*models.Conversation, error) {
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(callerID) {
		return nil, apperr.PermissionDenied("user %s is not a participant", callerID)
	}
	return conv, nil
}

func (s *Conversations) List(ctx context.Context, userID string, f query.ConversationFilter, p query.Pagination) ([]models.Conversation, int64, error) {
	return s.repo.ListForUser(ctx, userID, f, p)
}

// Update applies a partial update. Settings changes require
// can_edit_conversation; status changes require can_archive_conversation.
func (s *Conversations) Update(ctx context.Context, callerID, id string, upd repository.ConversationUpdate) (*models.Conversation, error) {
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	caller, ok := conv.FindParticipant(callerID)
	if !ok {
		return nil, apperr.PermissionDenied("user %s is not a participant", callerID)
	}
	if upd.Settings != nil && !caller.Permissions.CanEditConversation {
		return nil, apperr.PermissionDenied("participant %s may not edit conversation settings", callerID)
	}
	if upd.Status != nil && !caller.Permissions.CanArchiveConversation {
		return nil, apperr.PermissionDenied("participant %s may not change conversation status", callerID)
	}
	return s.repo.Update(ctx, id, upd)
}

// SetStatus is the archive/unarchive/block path.
func (s *Conversations) SetStatus(ctx context.Context, callerID, id string, status models.ConversationStatus) (*models.Conversation, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown conversation status %q", status)
	}
	return s.Update(ctx, callerID, id, repository.ConversationUpdate{Status: &status})
}
