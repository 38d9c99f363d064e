// Package events publishes flow outcomes to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"mobcash_portal/internal/wizard"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns an async writer; delivery errors are logged by the writer's completion hook
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logrus.WithFields(logrus.Fields{"messages": len(msgs), "error": err}).Warn("flow event delivery failed")
			}
		},
	}
}

// Publisher sends one message per flow outcome, keyed by session so a session's events stay ordered
type Publisher struct {
	w MessageWriter
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w}
}

func (p *Publisher) Observe(ctx context.Context, e wizard.Event) {
	b, err := json.Marshal(e)
	if err != nil {
		logrus.WithError(err).Error("encode flow event")
		return
	}
	msg := kafka.Message{Key: []byte(e.SessionID), Value: b, Time: e.At}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{"session": e.SessionID, "kind": e.Kind, "error": err}).Warn("publish flow event")
	}
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
