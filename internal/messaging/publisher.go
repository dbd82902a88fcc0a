package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/monitoring"
)

const publishTimeout = 10 * time.Second

// publishChannel is the part of *amqp091.Channel the publisher needs
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher sends change events to the events exchange. It satisfies
// events.Notifier, so services can fan their writes out to the broker.
type Publisher struct {
	logger  *logger.Logger
	channel func(ctx context.Context) (publishChannel, error)
}

// NewPublisher creates a new message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		logger: log,
		channel: func(ctx context.Context) (publishChannel, error) {
			if conn.IsClosed() {
				if err := conn.Reconnect(ctx); err != nil {
					return nil, fmt.Errorf("failed to reconnect: %w", err)
				}
			}
			return conn.Channel(), nil
		},
	}
}

// Notify publishes the event and logs failures. Publishing happens after the
// write has been committed, so a broker outage never fails the request.
func (p *Publisher) Notify(ctx context.Context, event *models.ChangeEvent) {
	_ = p.Publish(ctx, event)
}

// Publish sends one event with its type as the routing key
func (p *Publisher) Publish(ctx context.Context, event *models.ChangeEvent) error {
	err := p.publish(ctx, event)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		p.logger.Error("event_publish_failed", "Failed to publish change event", event.RequestID, err, map[string]interface{}{
			"exchange":    EventsExchange,
			"routing_key": string(event.Type),
			"entity_id":   event.EntityID,
		})
	}
	monitoring.EventsPublished.WithLabelValues(string(event.Type), outcome).Inc()
	return err
}

func (p *Publisher) publish(ctx context.Context, event *models.ChangeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp091.Persistent,
		Timestamp:     event.Timestamp,
		CorrelationId: event.RequestID,
		Type:          string(event.Type),
	}

	err = ch.PublishWithContext(
		ctx,
		EventsExchange,     // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("event_published", "Published change event", event.RequestID, map[string]interface{}{
		"exchange":     EventsExchange,
		"routing_key":  string(event.Type),
		"message_size": len(body),
	})
	return nil
}
