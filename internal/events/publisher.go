// Package events appends portal lifecycle events to a redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nazir74680/Tumor-segmeantation/internal/models"
)

const (
	FieldType    = "type"
	FieldPayload = "payload"
)

type Publisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

func NewPublisher(client redis.UniversalClient, stream string, maxLen int64) *Publisher {
	return &Publisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *Publisher) Publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			FieldType:    string(event.Type),
			FieldPayload: string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Decode reads an event back from stream entry values.
func Decode(values map[string]interface{}) (models.Event, error) {
	raw, ok := values[FieldPayload].(string)
	if !ok {
		return models.Event{}, fmt.Errorf("missing %q field", FieldPayload)
	}

	var event models.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return models.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}
