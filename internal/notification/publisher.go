package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

const DefaultQueueName = "appointment_notifications"

// Publisher pushes events to other delivery channels (push, mail, chat).
type Publisher interface {
	Publish(ctx context.Context, ev appointment.NotificationEvent) error
}

// confirmation is the broker ack of one published message.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// confirmChannel publishes a message and hands back its own confirmation.
type confirmChannel interface {
	publish(ctx context.Context, queue string, msg amqp.Publishing) (confirmation, error)
	Close() error
}

type amqpChannel struct {
	*amqp.Channel
}

func (c amqpChannel) publish(ctx context.Context, queue string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return dc, nil
}

// AMQPPublisher publishes persistent JSON messages to a durable queue and
// waits for the broker confirm of each message.
type AMQPPublisher struct {
	ch    confirmChannel
	queue string
	log   *zap.Logger
}

func NewAMQPPublisher(conn *amqp.Connection, queue string, log *zap.Logger) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueueName
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	return newPublisher(amqpChannel{ch}, queue, log), nil
}

func newPublisher(ch confirmChannel, queue string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, queue: queue, log: log}
}

func encodeEvent(ev appointment.NotificationEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal notification: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         string(ev.Type),
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev appointment.NotificationEvent) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	confirm, err := p.ch.publish(ctx, p.queue, msg)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}
	if !acked {
		return fmt.Errorf("publish to %s: message not confirmed", p.queue)
	}

	p.log.Debug("notification published",
		zap.String("queue", p.queue),
		zap.String("type", string(ev.Type)),
		zap.String("user_id", ev.UserID.String()),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}
