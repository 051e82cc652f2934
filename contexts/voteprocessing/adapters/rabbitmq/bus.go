// Package rabbitmqadapter implements ports.MessageBus on top of RabbitMQ:
// durable queues, publisher confirms, manual ack/nack, and bounded prefetch
// carry the validation, aggregation, and review streams.
package rabbitmqadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainerrors "votepipeline/contexts/voteprocessing/domain/errors"
	"votepipeline/contexts/voteprocessing/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	messageTTL = 24 * time.Hour
)

// Bus owns one AMQP connection, one publish channel, and one channel per
// Consume call. Declares are idempotent, matching every stream the process touches being
// declared on first use rather than up front.
type Bus struct {
	conn        *amqp.Connection
	publishCh   *amqp.Channel
	logger      *slog.Logger
	queueMaxLen int
	declared    map[string]bool
}

func Connect(url string, queueMaxLen int, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	publishCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := publishCh.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return &Bus{
		conn:        conn,
		publishCh:   publishCh,
		logger:      logger,
		queueMaxLen: queueMaxLen,
		declared:    make(map[string]bool),
	}, nil
}

func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	if b.publishCh != nil {
		_ = b.publishCh.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *Bus) declare(ch *amqp.Channel, stream string) error {
	if b.declared[stream] {
		return nil
	}
	args := amqp.Table{
		"x-message-ttl": int64(messageTTL / time.Millisecond),
	}
	if b.queueMaxLen > 0 {
		args["x-max-length"] = int64(b.queueMaxLen)
	}
	_, err := ch.QueueDeclare(stream, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", stream, err)
	}
	b.declared[stream] = true
	return nil
}

// Publish sends envelope to stream via the default exchange (routing key =
// queue name) and blocks until the broker confirms delivery or
// confirmTimeout elapses.
func (b *Bus) Publish(ctx context.Context, stream string, envelope ports.EventEnvelope, confirmTimeout time.Duration) error {
	if err := b.declare(b.publishCh, stream); err != nil {
		return err
	}

	confirmation, err := b.publishCh.PublishWithDeferredConfirmWithContext(ctx, "", stream, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    envelope.MessageID,
		Body:         envelope.Data,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w: %v", stream, domainerrors.ErrBusUnavailable, err)
	}

	timer := time.NewTimer(confirmTimeout)
	defer timer.Stop()

	select {
	case <-confirmation.Done():
	case <-timer.C:
		return fmt.Errorf("publish to %s: %w", stream, domainerrors.ErrPublishTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if !confirmation.Acked() {
		return fmt.Errorf("publish to %s: broker nacked the message", stream)
	}
	return nil
}

// Consume opens a dedicated channel bound to prefetch and delivers every
// message to handler until ctx is cancelled. Acknowledgment is left to the
// handler via the Delivery's Ack/Nack closures.
func (b *Bus) Consume(ctx context.Context, stream string, prefetch int, handler func(ports.Delivery)) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel for %s: %w", stream, err)
	}
	defer ch.Close()

	if err := b.declare(ch, stream); err != nil {
		return err
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos for %s: %w", stream, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, stream, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", stream, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, open := <-deliveries:
			if !open {
				return fmt.Errorf("consume %s: delivery channel closed", stream)
			}
			delivery := d
			handler(ports.Delivery{
				Envelope: ports.EventEnvelope{MessageID: delivery.MessageId, Data: delivery.Body},
				Ack: func(_ context.Context) error {
					return delivery.Ack(false)
				},
				Nack: func(_ context.Context, requeue bool) error {
					return delivery.Nack(false, requeue)
				},
			})
		}
	}
}

var _ ports.MessageBus = (*Bus)(nil)
