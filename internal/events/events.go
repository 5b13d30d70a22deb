package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taskdeck/apiserver/config"
)

// Channel is the broker channel todo lifecycle events are published to.
const Channel = "todo-events"

// Event names.
const (
	TodoCreated = "todo.created"
	TodoUpdated = "todo.updated"
	TodoDeleted = "todo.deleted"
)

// TodoEvent is the payload published after a successful todo mutation.
type TodoEvent struct {
	Event   string    `json:"event"`
	TodoID  int       `json:"todo_id"`
	OwnerID int       `json:"owner_id"`
	At      time.Time `json:"at"`
}

// Backend defines the broker-agnostic publish operation used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher wraps a backend with a stable API for todo events.
type Publisher struct {
	backend Backend
}

// New constructs a Publisher for the provided backend.
func New(backend Backend) *Publisher {
	return &Publisher{backend: backend}
}

// NewFromConfig constructs a Publisher for the configured backend. With
// backend "none" (or empty) events are silently discarded.
func NewFromConfig(ctx context.Context, cfg config.EventsConfig) (*Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return New(noopBackend{}), nil
	case "rabbitmq":
		backend, err := NewRabbitMQBackend(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	case "pubsub":
		backend, err := NewPubSubBackend(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// PublishTodoEvent publishes a todo lifecycle event to the events channel.
func (p *Publisher) PublishTodoEvent(ctx context.Context, event TodoEvent) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, Channel, data, map[string]string{"event": event.Event})
	return err
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}

type noopBackend struct{}

func (noopBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return "", nil
}

func (noopBackend) Close() error { return nil }
