package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/conversation-service/internal/apperr"
	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/query"
	"github.com/fathima-sithara/conversation-service/internal/util"
)

type ConversationRepository struct {
	coll *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	coll := db.Collection(conversationsColl)
	ensureIndexes(coll, conversationIndexes())
	return &ConversationRepository{coll: coll}
}

// ConversationUpdate is the partial-update surface. ID, type and createdAt
// are not represented here, so they cannot be smuggled through this path.
type ConversationUpdate struct {
	Title       *string                    `json:"title,omitempty"`
	Description *string                    `json:"description,omitempty"`
	Priority    *models.Priority           `json:"priority,omitempty"`
	Tags        *[]string                  `json:"tags,omitempty"`
	Settings    *models.Settings           `json:"settings,omitempty"`
	Status      *models.ConversationStatus `json:"status,omitempty"`
}

func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	if len(conv.Participants) == 0 {
		return nil, apperr.Validation("conversation requires at least one participant")
	}
	if !conv.Type.Valid() {
		return nil, apperr.Validation("unknown conversation type %q", conv.Type)
	}
	if conv.ID == "" {
		conv.ID = util.NewID()
	}
	if conv.Status == "" {
		conv.Status = models.StatusActive
	}
	if conv.Settings.IsZero() {
		conv.Settings = models.DefaultSettings()
	}
	conv.UnreadCount = map[string]int{}
	conv.LastMessage = nil
	now := util.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, conv); err != nil {
		return nil, wrapStoreErr(err, "conversation insert")
	}
	return conv, nil
}

func (r *ConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, wrapStoreErr(err, "conversation get")
	}
	return &conv, nil
}

// ListForUser returns the filtered page and the total match count over the
// same filter.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string, f query.ConversationFilter, p query.Pagination) ([]models.Conversation, int64, error) {
	filter := f.Build(userID)
	p = p.Normalize("updated_at")

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapStoreErr(err, "conversation count")
	}

	cur, err := r.coll.Find(ctx, filter, p.FindOptions())
	if err != nil {
		return nil, 0, wrapStoreErr(err, "conversation list")
	}
	defer cur.Close(ctx)

	out := []models.Conversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, wrapStoreErr(err, "conversation decode")
	}
	return out, total, nil
}

// Update merges the provided fields and bumps updated_at. Immutable fields
// are absent from ConversationUpdate by construction.
func (r *ConversationRepository) Update(ctx context.Context, id string, upd ConversationUpdate) (*models.Conversation, error) {
	set := bson.M{"updated_at": util.Now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	if upd.Tags != nil {
		set["tags"] = *upd.Tags
	}
	if upd.Settings != nil {
		set["settings"] = *upd.Settings
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, apperr.Validation("unknown conversation status %q", *upd.Status)
		}
		set["status"] = *upd.Status
	}

	var conv models.Conversation
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&conv)
	if err != nil {
		return nil, wrapStoreErr(err, "conversation update")
	}
	return &conv, nil
}

// SetStatus is the archive/unarchive/block transition path.
func (r *ConversationRepository) SetStatus(ctx context.Context, id string, status models.ConversationStatus) (*models.Conversation, error) {
	return r.Update(ctx, id, ConversationUpdate{Status: &status})
}

// ApplyDelivery is one of the two coordinator-only denormalization writes:
// a single update sets the last-message pointer, reactivates the
// conversation, and increments every recipient's unread counter atomically.
func (r *ConversationRepository) ApplyDelivery(ctx context.Context, id string, last models.LastMessage, recipients []string) error {
	inc := bson.M{}
	for _, uid := range recipients {
		inc["unread_count."+uid] = 1
	}
	update := bson.M{
		"$set": bson.M{
			"last_message": last,
			"status":       models.StatusActive,
			"updated_at":   util.Now(),
		},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return wrapStoreErr(err, "conversation delivery update")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("conversation %s not found", id)
	}
	return nil
}

// ResetUnread is the other coordinator-only write: a full reset of the
// caller's counter, not a decrement.
func (r *ConversationRepository) ResetUnread(ctx context.Context, id, userID string) error {
	now := util.Now()
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id, "participants.user_id": userID},
		bson.M{"$set": bson.M{
			"unread_count." + userID:      0,
			"participants.$.last_read_at": now,
			"updated_at":                  now,
		}},
	)
	if err != nil {
		return wrapStoreErr(err, "conversation unread reset")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("conversation %s not found for user %s", id, userID)
	}
	return nil
}

// AddParticipant appends a new entry; adding an existing user is a no-op.
func (r *ConversationRepository) AddParticipant(ctx context.Context, id string, p models.Participant) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id, "participants.user_id": bson.M{"$ne": p.UserID}},
		bson.M{
			"$push": bson.M{"participants": p},
			"$set":  bson.M{"updated_at": util.Now()},
		},
	)
	if err != nil {
		return wrapStoreErr(err, "participant add")
	}
	if res.MatchedCount == 0 {
		// Either the conversation is missing or the user is already in it.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// RemoveParticipant drops the entry and the user's unread counter; a user
// who leaves the conversation stops accumulating unread counts entirely.
func (r *ConversationRepository) RemoveParticipant(ctx context.Context, id, userID string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$pull":  bson.M{"participants": bson.M{"user_id": userID}},
		"$unset": bson.M{"unread_count." + userID: ""},
		"$set":   bson.M{"updated_at": util.Now()},
	})
	if err != nil {
		return wrapStoreErr(err, "participant remove")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("conversation %s not found", id)
	}
	return nil
}
