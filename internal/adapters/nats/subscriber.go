package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/rateplan/internal/core/domain"
)

// Subscriber consumes pipeline events from NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS for consuming events.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribePlanConverted delivers new plan conversions to handler. Messages
// that fail to decode or whose handler fails are redelivered up to three times.
func (s *Subscriber) SubscribePlanConverted(ctx context.Context, durable string, handler func(ctx context.Context, ev *domain.PlanConvertedEvent) error) error {
	return subscribe(ctx, s, SubjectPlanConverted, durable, handler)
}

// SubscribeProjectAssembled delivers completed project files to handler.
func (s *Subscriber) SubscribeProjectAssembled(ctx context.Context, durable string, handler func(ctx context.Context, ev *domain.ProjectAssembledEvent) error) error {
	return subscribe(ctx, s, SubjectProjectAssembled, durable, handler)
}

func subscribe[E any](ctx context.Context, s *Subscriber, subject, durable string, handler func(ctx context.Context, ev *E) error) error {
	opts := []nats.SubOpt{
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverNew(),
	}
	if durable != "" {
		opts = append(opts, nats.Durable(durable))
	}
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		var ev E
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, opts...)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains the connection.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
