package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/config"
	"github.com/fleet-console/fleet-console/internal/storage"
)

// Event is the payload published for every committed change.
type Event struct {
	ID       uuid.UUID `json:"id"`
	Entity   string    `json:"entity"`
	Action   string    `json:"action"`
	DeviceID string    `json:"deviceId,omitempty"`
	IDs      []string  `json:"ids"`
	At       time.Time `json:"at"`
}

// NewEvent wraps a storage change.
func NewEvent(change storage.Change, at time.Time) Event {
	ids := change.IDs
	if ids == nil {
		ids = []string{}
	}
	return Event{
		ID:       uuid.New(),
		Entity:   change.Entity,
		Action:   change.Action,
		DeviceID: change.DeviceID,
		IDs:      ids,
		At:       at.UTC(),
	}
}

func (e Event) payload() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// route joins prefix, entity and action with sep, skipping an empty prefix.
func route(sep, prefix string, e Event) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, e.Entity, e.Action)
	return strings.Join(parts, sep)
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, e Event) error { return nil }
func (NopPublisher) Close() error                              { return nil }

const (
	notifyQueueSize = 256
	publishTimeout  = 10 * time.Second
)

// Notifier forwards storage changes to a Publisher. Events are queued and
// published in commit order by one worker, off the caller's goroutine. Publish
// failures are logged, the committed change stands.
type Notifier struct {
	pub     Publisher
	now     func() time.Time
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// NewNotifier creates a notifier for pub and starts its worker. Close stops it.
func NewNotifier(pub Publisher) *Notifier {
	n := &Notifier{
		pub:     pub,
		now:     time.Now,
		timeout: publishTimeout,
		queue:   make(chan Event, notifyQueueSize),
		done:    make(chan struct{}),
	}
	go n.loop()
	return n
}

// Notify implements storage.Notifier. It never blocks: when the queue is full
// or the notifier is closed the event is dropped with a warning.
func (n *Notifier) Notify(ctx context.Context, change storage.Change) {
	e := NewEvent(change, n.now())

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		log.Warn().Str("entity", e.Entity).Str("action", e.Action).Msg("Notifier closed, change event dropped")
		return
	}
	select {
	case n.queue <- e:
	default:
		log.Warn().Str("entity", e.Entity).Str("action", e.Action).Msg("Event queue full, change event dropped")
	}
}

// Close stops accepting events and waits until the queued ones are published
// or ctx ends.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) loop() {
	defer close(n.done)
	for e := range n.queue {
		n.publish(e)
	}
}

func (n *Notifier) publish(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.pub.Publish(ctx, e); err != nil {
		log.Warn().
			Err(err).
			Str("entity", e.Entity).
			Str("action", e.Action).
			Msg("Failed to publish change event")
		return
	}
	log.Debug().
		Str("event_id", e.ID.String()).
		Str("entity", e.Entity).
		Str("action", e.Action).
		Msg("Change event published")
}

// New connects the publisher selected by cfg.Events.Driver.
func New(ctx context.Context, cfg *config.Config) (Publisher, error) {
	switch cfg.Events.Driver {
	case "", "none":
		return NopPublisher{}, nil
	case "nats":
		return DialNATS(cfg.NATS, cfg.Events.Prefix)
	case "mqtt":
		return DialMQTT(ctx, cfg.MQTT, cfg.Events.Prefix)
	case "webhook":
		return NewWebhookPublisher(cfg.Webhook), nil
	default:
		return nil, fmt.Errorf("unknown events driver: %s", cfg.Events.Driver)
	}
}
