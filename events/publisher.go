package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"

	"github.com/digineo/pingwatch"
)

// Publisher publishes events as JSON to a Redis channel. Emit only
// queues the event, Run performs the network calls.
type Publisher struct {
	Logger log.Logger

	client  redis.UniversalClient
	channel string
	queue   chan pingwatch.Event
}

// NewPublisher creates a Publisher queueing up to buffer events.
func NewPublisher(client redis.UniversalClient, channel string, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if channel == "" {
		channel = pingwatch.EventName
	}
	return &Publisher{
		Logger:  log.NewNopLogger(),
		client:  client,
		channel: channel,
		queue:   make(chan pingwatch.Event, buffer),
	}
}

// Emit queues the event of r, or fails with ErrDropped if the queue is full.
func (p *Publisher) Emit(r pingwatch.Result) error {
	select {
	case p.queue <- r.Event():
		return nil
	default:
		return fmt.Errorf("%w: publish queue full", ErrDropped)
	}
}

// Run publishes queued events until ctx is done. Failed publications are
// logged and skipped.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-p.queue:
			if err := p.publish(ctx, ev); err != nil {
				level.Warn(p.Logger).Log("msg", "failed to publish event", "host", ev.Host, "err", err)
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev pingwatch.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

// Listen subscribes to channel and hands every decoded event to fn until
// ctx is done. Undecodable messages are skipped.
func Listen(ctx context.Context, client redis.UniversalClient, channel string, fn func(pingwatch.Event)) error {
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var ev pingwatch.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			fn(ev)
		}
	}
}
