package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event names consumed by the notification/websocket tier.
const (
	MessageCreated    = "message.created"
	MessageEdited     = "message.edited"
	MessageDeleted    = "message.deleted"
	ConversationRead  = "conversation.read"
	ReactionChanged   = "reaction.changed"
	TypingChanged     = "typing.changed"
	PresenceChanged   = "presence.changed"
	ParticipantChange = "participant.changed"
)

type Envelope struct {
	Event          string    `json:"event"`
	ConversationID string    `json:"conversation_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	At             time.Time `json:"at"`
	Payload        any       `json:"payload,omitempty"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Publisher{writer: w}
}

// Publish writes one event keyed by conversation so per-conversation
// ordering is preserved across partitions.
func (p *Publisher) Publish(ctx context.Context, key string, ev Envelope) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
