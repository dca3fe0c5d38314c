package mq

import (
	"context"
	"testing"

	"github.com/itparc/inventory/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	topic  string
	data   []byte
	attrs  map[string]string
	closed bool
}

func (r *recordingBackend) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	r.topic, r.data, r.attrs = topic, data, attrs
	return "msg-1", nil
}

func (r *recordingBackend) Subscribe(ctx context.Context, topic string, handler Handler) error {
	r.topic = topic
	return handler(ctx, Message{ID: "msg-1", Data: r.data})
}

func (r *recordingBackend) Close() error {
	r.closed = true
	return nil
}

func TestMQ_UsesConfiguredTopic(t *testing.T) {
	backend := &recordingBackend{}
	q := New(backend, "inventory-events")

	id, err := q.Publish(context.Background(), []byte(`{"type":"user.created"}`), map[string]string{"type": "user.created"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "inventory-events", backend.topic)
	assert.Equal(t, "user.created", backend.attrs["type"])

	var got Message
	err = q.Subscribe(context.Background(), func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"user.created"}`, string(got.Data))

	require.NoError(t, q.Close())
	assert.True(t, backend.closed)
}

func TestOpen(t *testing.T) {
	q, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.Nil(t, q)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.ErrorContains(t, err, "unknown mq backend")

	_, err = Open(context.Background(), config.MQConfig{Backend: config.MQBackendRabbitMQ})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(context.Background(), config.MQConfig{Backend: config.MQBackendPubSub})
	assert.ErrorContains(t, err, "pubsub project id is required")
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))

	attrs := headersToAttributes(amqp.Table{
		"type":  "equipment.updated",
		"raw":   []byte("bytes"),
		"actor": int32(4),
	})
	assert.Equal(t, map[string]string{
		"type":  "equipment.updated",
		"raw":   "bytes",
		"actor": "4",
	}, attrs)
}

func TestPubSubSubscriptionName(t *testing.T) {
	p := &PubSubClient{subscriptionSuffix: "-sub"}
	assert.Equal(t, "inventory-events-sub", p.subscriptionName("inventory-events"))
}
