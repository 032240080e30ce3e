package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/query"
	"github.com/fathima-sithara/conversation-service/internal/util"
)

type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	coll := db.Collection(messagesColl)
	ensureIndexes(coll, messageIndexes())
	return &MessageRepository{coll: coll}
}

// Append creates the durable message record. Reactions, read receipts,
// edit/delete flags, the report counter and created_at are store-owned;
// whatever the caller put in those fields is overwritten.
func (r *MessageRepository) Append(ctx context.Context, m *models.Message) (*models.Message, error) {
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

	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return nil, wrapStoreErr(err, "message insert")
	}
	return m, nil
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, wrapStoreErr(err, "message get")
	}
	return &m, nil
}

// List returns the filtered page plus the total match count.
func (r *MessageRepository) List(ctx context.Context, conversationID string, f query.MessageFilter, p query.Pagination) ([]models.Message, int64, error) {
	filter := f.Build(conversationID)
	p = p.Normalize("created_at")

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapStoreErr(err, "message count")
	}

	cur, err := r.coll.Find(ctx, filter, p.FindOptions())
	if err != nil {
		return nil, 0, wrapStoreErr(err, "message list")
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, wrapStoreErr(err, "message decode")
	}
	return out, total, nil
}

// Edit replaces the content wholesale and flags the message as edited.
func (r *MessageRepository) Edit(ctx context.Context, id string, content models.Content) (*models.Message, error) {
	var m models.Message
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"content":    content,
			"is_edited":  true,
			"updated_at": util.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, wrapStoreErr(err, "message edit")
	}
	return &m, nil
}

// SoftDelete tombstones the content. Deleting an already-deleted message is
// a no-op success; the record is never physically removed.
func (r *MessageRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{
			"content":    models.TombstoneContent(),
			"is_deleted": true,
			"updated_at": util.Now(),
		}},
	)
	if err != nil {
		return wrapStoreErr(err, "message delete")
	}
	if res.MatchedCount == 0 {
		// Already deleted, or genuinely missing.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// AddReaction adds userID to the emoji's reactor set; re-reacting with the
// same emoji is a no-op thanks to $addToSet.
func (r *MessageRepository) AddReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error) {
	var m models.Message
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"reactions." + emoji: userID},
			"$set":      bson.M{"updated_at": util.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, wrapStoreErr(err, "reaction add")
	}
	return &m, nil
}

// RemoveReaction pulls userID from the emoji's set and drops the entry once
// it is empty, so no zero-count reactions linger.
func (r *MessageRepository) RemoveReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error) {
	field := "reactions." + emoji
	var m models.Message
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$pull": bson.M{field: userID},
			"$set":  bson.M{"updated_at": util.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, wrapStoreErr(err, "reaction remove")
	}
	if users, ok := m.Reactions[emoji]; ok && len(users) == 0 {
		// Guarded cleanup: only unsets while the set is still empty.
		_, err = r.coll.UpdateOne(
			ctx,
			bson.M{"_id": id, field: bson.M{"$size": 0}},
			bson.M{"$unset": bson.M{field: ""}},
		)
		if err != nil {
			return nil, wrapStoreErr(err, "reaction cleanup")
		}
		delete(m.Reactions, emoji)
	}
	return &m, nil
}

// MarkRead appends a read receipt for every targeted message that does not
// already carry one for this user. A nil messageIDs means the whole
// conversation. Returns how many receipts were added.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, userID string, messageIDs []string) (int64, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"read_by.user_id": bson.M{"$ne": userID},
	}
	if len(messageIDs) > 0 {
		filter["_id"] = bson.M{"$in": messageIDs}
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{
		"$push": bson.M{"read_by": models.ReadReceipt{UserID: userID, ReadAt: util.Now()}},
	})
	if err != nil {
		return 0, wrapStoreErr(err, "mark read")
	}
	return res.ModifiedCount, nil
}

// IncrementReportCount bumps the moderation counter.
func (r *MessageRepository) IncrementReportCount(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"report_count": 1},
			"$set": bson.M{"updated_at": util.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, wrapStoreErr(err, "report increment")
	}
	return &m, nil
}

// CountForConversation counts non-deleted messages.
func (r *MessageRepository) CountForConversation(ctx context.Context, conversationID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"conversation_id": conversationID, "is_deleted": false})
	if err != nil {
		return 0, wrapStoreErr(err, "message count")
	}
	return n, nil
}
