package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/credo/internal/metrics"
)

// AMQPPublisher publishes task events to the task.events queue.  Each call
// opens its own connection, which is plenty for the event rate of a
// single marketplace instance.
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{url: url} }

// Publish sends ev as a persistent JSON message.  An empty ID is filled
// with a fresh UUID, which is also used as the AMQP message id.
func (p *AMQPPublisher) Publish(ctx context.Context, ev TaskEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	err := p.publish(ctx, ev)
	if err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("event", ev.Type).Msg("rabbitmq publish failed")
		return err
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, ev TaskEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(TaskEventsQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", TaskEventsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
