// Package notification consumes change events from the broker and drops the
// metric cache entries they made stale.
package notification

import (
	"context"
	"errors"
	"fmt"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/messaging"
	"restaurant-system/internal/models"
)

// Invalidator drops cached metric families
type Invalidator interface {
	Invalidate(ctx context.Context, requestID string, families ...models.MetricFamily) error
}

// EventSource delivers raw event bodies to a handler until ctx ends
type EventSource interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
}

// Subscriber applies change events to the metrics cache. A failed
// invalidation is returned to the consumer so the event is redelivered.
type Subscriber struct {
	source      EventSource
	invalidator Invalidator
	logger      *logger.Logger
}

func NewSubscriber(source EventSource, invalidator Invalidator, log *logger.Logger) *Subscriber {
	return &Subscriber{
		source:      source,
		invalidator: invalidator,
		logger:      log,
	}
}

// Start consumes events until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Event subscriber started", requestID, nil)

	err := s.source.StartConsuming(ctx, s.handleEvent)
	if errors.Is(err, context.Canceled) {
		s.logger.Info("graceful_shutdown", "Event subscriber stopped", requestID, nil)
		return nil
	}
	return err
}

func (s *Subscriber) handleEvent(ctx context.Context, body []byte) error {
	event, err := messaging.DecodeEvent(body)
	if err != nil {
		return err
	}

	requestID := event.RequestID
	if requestID == "" {
		requestID = logger.GenerateRequestID()
	}

	if len(event.Families) > 0 {
		if err := s.invalidator.Invalidate(ctx, requestID, event.Families...); err != nil {
			return fmt.Errorf("invalidate after %s: %w", event.Type, err)
		}
	}

	s.logger.Info("event_applied", describe(event), requestID, map[string]interface{}{
		"type":      event.Type,
		"entity_id": event.EntityID,
		"families":  event.Families,
	})
	return nil
}

// describe renders a one-line summary of the event for the log
func describe(event *models.ChangeEvent) string {
	switch event.Type {
	case models.EventOrderCreated:
		return fmt.Sprintf("Order %s opened on table %s", event.EntityID, event.TableID)
	case models.EventOrderStatusChanged:
		return fmt.Sprintf("Order %s is now %s", event.EntityID, event.Status)
	case models.EventOrderClosed:
		return fmt.Sprintf("Order %s billed on table %s, total %.2f", event.EntityID, event.TableID, event.Total)
	case models.EventOrderDeleted:
		return fmt.Sprintf("Order %s deleted", event.EntityID)
	default:
		return fmt.Sprintf("%s for %s", event.Type, event.EntityID)
	}
}
