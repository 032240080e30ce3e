package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{}.Normalize("updated_at")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, "updated_at", p.SortBy)
	assert.EqualValues(t, 0, p.Skip())

	p = Pagination{Page: 3, Limit: 10}.Normalize("created_at")
	assert.EqualValues(t, 20, p.Skip())

	p = Pagination{Limit: 10_000}.Normalize("created_at")
	assert.Equal(t, MaxLimit, p.Limit)

	p = Pagination{Page: -4, SortBy: "priority"}.Normalize("created_at")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, "priority", p.SortBy)
}

func TestConversationFilterEmpty(t *testing.T) {
	q := ConversationFilter{}.Build("user-1")
	assert.Equal(t, bson.M{"participants.user_id": "user-1"}, q)
}

func TestConversationFilterFull(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f := ConversationFilter{
		Types:         []models.ConversationType{models.ConversationDirect, models.ConversationGroup},
		Statuses:      []models.ConversationStatus{models.StatusActive},
		HasUnread:     true,
		Tags:          []string{"vip", "billing"},
		Priority:      models.PriorityUrgent,
		CreatedAfter:  after,
		CreatedBefore: before,
	}
	q := f.Build("user-1")

	assert.Equal(t, bson.M{"$in": f.Types}, q["type"])
	assert.Equal(t, bson.M{"$in": f.Statuses}, q["status"])
	assert.Equal(t, bson.M{"$gt": 0}, q["unread_count.user-1"])
	assert.Equal(t, bson.M{"$in": []string{"vip", "billing"}}, q["tags"])
	assert.Equal(t, models.PriorityUrgent, q["priority"])
	assert.Equal(t, bson.M{"$gte": after, "$lte": before}, q["created_at"])
}

func TestMessageFilterDefaultsExcludeDeleted(t *testing.T) {
	q := MessageFilter{}.Build("c1")
	assert.Equal(t, "c1", q["conversation_id"])
	assert.Equal(t, false, q["is_deleted"])

	q = MessageFilter{IncludeDeleted: true}.Build("c1")
	_, present := q["is_deleted"]
	assert.False(t, present)
}

func TestMessageFilterShapes(t *testing.T) {
	f := MessageFilter{
		SenderID:       "A",
		Type:           models.TypeProposal,
		HasAttachments: true,
		Text:           "a+b (c)",
	}
	q := f.Build("c1")

	assert.Equal(t, "A", q["sender_id"])
	assert.Equal(t, models.TypeProposal, q["type"])
	assert.Equal(t, bson.M{"$exists": true}, q["content.media.0"])

	rx, ok := q["content.text.body"].(bson.M)
	require.True(t, ok)
	// Substring match is quoted so regex metacharacters stay literal.
	assert.Equal(t, `a\+b \(c\)`, rx["$regex"])
	assert.Equal(t, "i", rx["$options"])
}

func TestFindOptionsSortOrder(t *testing.T) {
	p := Pagination{Page: 2, Limit: 10, SortBy: "created_at"}.Normalize("created_at")
	opts := p.FindOptions()
	require.NotNil(t, opts.Sort)
	sort := opts.Sort.(bson.D)
	require.Len(t, sort, 1)
	assert.Equal(t, "created_at", sort[0].Key)
	assert.Equal(t, -1, sort[0].Value)
	assert.EqualValues(t, 10, *opts.Limit)
	assert.EqualValues(t, 10, *opts.Skip)

	p.Asc = true
	sort = p.FindOptions().Sort.(bson.D)
	assert.Equal(t, 1, sort[0].Value)
}
