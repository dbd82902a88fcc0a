package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func newTestPublisher(ch publishChannel, chErr error) *Publisher {
	return &Publisher{
		logger:  logger.Discard(),
		channel: func(context.Context) (publishChannel, error) { return ch, chErr },
	}
}

func TestPublishRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch, nil)

	event := models.NewOrderEvent(models.EventOrderClosed, &models.Order{ID: "o1", TableID: "t1", Status: models.StatusBilled, Total: 27.5},
		models.FamilySales, models.FamilyTables)
	event.RequestID = "req-1"

	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ch.exchange != EventsExchange || ch.key != "order.closed" {
		t.Fatalf("published to %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.DeliveryMode != amqp091.Persistent || ch.msg.CorrelationId != "req-1" {
		t.Fatalf("unexpected publishing %+v", ch.msg)
	}

	decoded, err := DecodeEvent(ch.msg.Body)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if decoded.EntityID != "o1" || decoded.Total != 27.5 || len(decoded.Families) != 2 {
		t.Fatalf("decoded %+v", decoded)
	}
}

func TestPublishErrors(t *testing.T) {
	event := models.NewEntityEvent(models.EventTableChanged, "t1", models.FamilyTables)

	brokerDown := errors.New("connection refused")
	if err := newTestPublisher(nil, brokerDown).Publish(context.Background(), event); !errors.Is(err, brokerDown) {
		t.Fatalf("expected channel error, got %v", err)
	}

	rejected := errors.New("channel closed")
	if err := newTestPublisher(&fakeChannel{err: rejected}, nil).Publish(context.Background(), event); !errors.Is(err, rejected) {
		t.Fatalf("expected publish error, got %v", err)
	}

	// Notify swallows the error
	newTestPublisher(&fakeChannel{err: rejected}, nil).Notify(context.Background(), event)
}

func TestDecodeEvent(t *testing.T) {
	valid, _ := json.Marshal(models.NewEntityEvent(models.EventProductChanged, "p1", models.FamilyProducts))

	tests := []struct {
		name    string
		body    []byte
		wantErr bool
	}{
		{"valid", valid, false},
		{"not json", []byte("{"), true},
		{"missing type", []byte(`{"entity_id":"p1"}`), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent(tt.body)
			if tt.wantErr && !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func (a *fakeAcknowledger) Reject(uint64, bool) error { return nil }

func TestProcessMessageAcknowledgement(t *testing.T) {
	tests := []struct {
		name        string
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{"success acks", nil, true, false},
		{"transient failure requeues", errors.New("redis unavailable"), false, true},
		{"malformed message is dropped", fmt.Errorf("%w: bad json", ErrMalformed), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Consumer{logger: logger.Discard(), queueName: InvalidationQueue}
			ack := &fakeAcknowledger{}
			d := amqp091.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: []byte("{}")}

			c.processMessage(context.Background(), d, func(context.Context, []byte) error { return tt.handlerErr })

			if ack.acked != tt.wantAck || ack.nacked == tt.wantAck {
				t.Fatalf("acked=%v nacked=%v", ack.acked, ack.nacked)
			}
			if ack.requeue != tt.wantRequeue {
				t.Fatalf("requeue=%v, want %v", ack.requeue, tt.wantRequeue)
			}
		})
	}
}

func TestDrainStopsOnContextAndClosedChannel(t *testing.T) {
	c := &Consumer{logger: logger.Discard(), queueName: InvalidationQueue}
	handler := func(context.Context, []byte) error { return nil }

	closed := make(chan amqp091.Delivery)
	close(closed)
	if err := c.drain(context.Background(), closed, handler); err != nil {
		t.Fatalf("closed channel should return nil, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.drain(ctx, make(chan amqp091.Delivery), handler); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
