package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentConstructorsValidate(t *testing.T) {
	cases := []Content{
		NewTextContent("hello"),
		NewMediaContent(TypeImage, []MediaItem{{URL: "u", MimeType: "image/png"}}),
		NewMediaContent(TypeFile, []MediaItem{{URL: "u", MimeType: "application/pdf"}}),
		NewProposalContent(ProposalContent{Title: "Campaign", AmountCents: 50000, Currency: "USD", State: "pending"}),
		NewPaymentContent(PaymentContent{AmountCents: 50000, Currency: "USD", State: "paid"}),
		NewMilestoneContent(MilestoneContent{Title: "Draft", AmountCents: 10000, Currency: "USD", State: "open"}),
		NewReviewContent(ReviewContent{Rating: 5, Comment: "great"}),
		NewContractContent(ContractContent{Title: "SOW", State: "signed"}),
		NewInvoiceContent(InvoiceContent{Number: "INV-1", AmountCents: 100, Currency: "USD"}),
		NewSystemContent(SystemEvent{Event: "participant_added", TargetID: "B"}),
	}
	for _, c := range cases {
		assert.NoError(t, c.Validate(), "kind %s", c.Kind)
	}
}

func TestContentMismatchRejected(t *testing.T) {
	// Declared payment, populated text.
	c := Content{Kind: TypePayment, Text: &TextContent{Body: "x"}}
	assert.Error(t, c.Validate())

	// Two payloads at once.
	c = NewTextContent("x")
	c.Review = &ReviewContent{Rating: 1}
	assert.Error(t, c.Validate())

	// No payload.
	assert.Error(t, Content{Kind: TypeText}.Validate())

	// Media payload under a non-media kind.
	c = Content{Kind: TypeText, Media: []MediaItem{{URL: "u"}}}
	assert.Error(t, c.Validate())

	// Unknown kind.
	assert.Error(t, Content{Kind: "sticker", Text: &TextContent{Body: "x"}}.Validate())
}

func TestContentPreview(t *testing.T) {
	assert.Equal(t, "hi", NewTextContent("hi").Preview())

	long := strings.Repeat("a", 200)
	p := NewTextContent(long).Preview()
	assert.Len(t, p, 120)
	assert.True(t, strings.HasSuffix(p, "..."))

	// Truncation never splits a multi-byte rune.
	p = NewTextContent(strings.Repeat("héllo 👍 ", 30)).Preview()
	assert.True(t, utf8.ValidString(p))
	assert.Equal(t, 120, utf8.RuneCountInString(p))
	assert.True(t, strings.HasSuffix(p, "..."))

	assert.Equal(t, "[image]", NewMediaContent(TypeImage, []MediaItem{{URL: "u"}}).Preview())
	assert.Equal(t, "[proposal] Campaign", NewProposalContent(ProposalContent{Title: "Campaign"}).Preview())
	assert.Equal(t, "[invoice] INV-9", NewInvoiceContent(InvoiceContent{Number: "INV-9"}).Preview())
	assert.Equal(t, DeletedMessageText, TombstoneContent().Preview())
}

func TestTombstoneIsValidContent(t *testing.T) {
	ts := TombstoneContent()
	assert.NoError(t, ts.Validate())
	assert.Equal(t, TypeSystem, ts.Kind)
}

func TestReactionViewDerivedCounts(t *testing.T) {
	m := &Message{Reactions: map[string][]string{
		"👍": {"A", "B"},
		"🎉": {"C"},
		"👀": {},
	}}
	view := m.ReactionView()
	require.Len(t, view, 2)
	for _, r := range view {
		assert.Equal(t, len(r.Users), r.Count)
	}
	// Sorted by emoji, empty entries dropped.
	assert.Equal(t, "🎉", view[0].Emoji)
	assert.Equal(t, "👍", view[1].Emoji)

	empty := &Message{}
	assert.Empty(t, empty.ReactionView())
}

func TestAsLastMessage(t *testing.T) {
	m := &Message{ID: "m1", SenderID: "A", Type: TypeText, Content: NewTextContent("yo")}
	lm := m.AsLastMessage()
	assert.Equal(t, "m1", lm.MessageID)
	assert.Equal(t, "A", lm.SenderID)
	assert.Equal(t, TypeText, lm.Type)
	assert.Equal(t, "yo", lm.Preview)
}

func TestSettingsIsZero(t *testing.T) {
	assert.True(t, Settings{}.IsZero())
	assert.False(t, DefaultSettings().IsZero())
	assert.False(t, Settings{AutoArchive: true}.IsZero())
}

func TestTextLength(t *testing.T) {
	assert.Equal(t, 5, NewTextContent("hello").TextLength())
	assert.Equal(t, 0, NewReviewContent(ReviewContent{Rating: 4}).TextLength())
}
