// Package mq carries inventory change events over RabbitMQ or Pub/Sub.
package mq

import (
	"context"
	"fmt"

	"github.com/itparc/inventory/config"
)

// Message is a broker-agnostic delivery.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. A non-nil error requeues it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker client.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// MQ binds a backend to the configured topic.
type MQ struct {
	backend Backend
	topic   string
}

func New(backend Backend, topic string) *MQ {
	return &MQ{backend: backend, topic: topic}
}

// Open connects to the broker selected by cfg. It returns nil when no broker
// is configured.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.MQBackendRabbitMQ:
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case config.MQBackendPubSub:
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Backend, err)
	}
	return New(backend, cfg.Topic), nil
}

func (m *MQ) Topic() string {
	return m.topic
}

// Publish sends data to the configured topic and returns the broker message id.
func (m *MQ) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, m.topic, data, attrs)
}

// Subscribe blocks consuming the configured topic until ctx is done.
func (m *MQ) Subscribe(ctx context.Context, handler Handler) error {
	return m.backend.Subscribe(ctx, m.topic, handler)
}

func (m *MQ) Close() error {
	return m.backend.Close()
}
