// Package events publishes inventory change notifications to the configured
// message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/mq"
	"github.com/itparc/inventory/types"
)

const publishTimeout = 5 * time.Second

// Sender is the part of mq.MQ the publisher needs.
type Sender interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// Publisher encodes events and hands them to a Sender. A Publisher without a
// Sender drops every event.
type Publisher struct {
	sender Sender
	log    logging.Logger
	now    func() time.Time
}

func NewPublisher(sender Sender, log logging.Logger) *Publisher {
	return &Publisher{sender: sender, log: log, now: time.Now}
}

// FromMQ returns a Publisher bound to q, or a dropping Publisher when q is nil.
func FromMQ(q *mq.MQ, log logging.Logger) *Publisher {
	if q == nil {
		return NewPublisher(nil, log)
	}
	return NewPublisher(q, log)
}

// Publish sends one event. Failures are logged and never reach the caller,
// whose mutation has already been committed.
func (p *Publisher) Publish(ctx context.Context, eventType types.EventType, actorID, subjectID int, data any) {
	if p == nil || p.sender == nil {
		return
	}

	event, err := p.build(eventType, actorID, subjectID, data)
	if err != nil {
		p.log.Error(ctx, "encode event", "type", eventType, "subject", subjectID, "error", err)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error(ctx, "encode event", "type", eventType, "subject", subjectID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	messageID, err := p.sender.Publish(ctx, body, map[string]string{"type": string(eventType)})
	if err != nil {
		p.log.Error(ctx, "publish event", "type", eventType, "subject", subjectID, "error", err)
		return
	}
	p.log.Debug(ctx, "event published", "type", eventType, "subject", subjectID, "message_id", messageID)
}

func (p *Publisher) build(eventType types.EventType, actorID, subjectID int, data any) (types.Event, error) {
	event := types.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ActorID:    actorID,
		SubjectID:  subjectID,
		OccurredAt: p.now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return types.Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		event.Data = raw
	}
	return event, nil
}

// Decode parses a broker message produced by Publish.
func Decode(msg mq.Message) (types.Event, error) {
	var event types.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	if event.Type == "" {
		return types.Event{}, fmt.Errorf("decode event %s: missing type", msg.ID)
	}
	return event, nil
}
