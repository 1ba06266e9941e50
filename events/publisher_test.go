package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/internal/redisconn"
	"github.com/digineo/pingwatch/internal/redisconn/redistest"
)

func TestPublisherQueueFull(t *testing.T) {
	client, err := redisconn.New("redis://127.0.0.1:1")
	require.NoError(t, err)
	defer client.Close()

	p := NewPublisher(client, "", 1)
	assert.Equal(t, pingwatch.EventName, p.channel)

	assert.NoError(t, p.Emit(pingwatch.Result{Host: "10.0.0.1", Time: now}))
	assert.ErrorIs(t, p.Emit(pingwatch.Result{Host: "10.0.0.1", Time: now}), ErrDropped)
}

func TestPublisherRun(t *testing.T) {
	client := redistest.Client(t)
	channel := "pingwatch-test:" + uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := NewPublisher(client, channel, 8)
	received := make(chan pingwatch.Event, 16)

	var g errgroup.Group
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error {
		return Listen(ctx, client, channel, func(ev pingwatch.Event) {
			received <- ev
		})
	})

	// the listener may subscribe after the first publications
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var got pingwatch.Event
loop:
	for {
		select {
		case got = <-received:
			break loop
		case <-ticker.C:
			p.Emit(pingwatch.Result{Host: "10.0.0.1", Time: now, RTT: 5 * time.Millisecond})
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}

	cancel()
	require.NoError(t, g.Wait())

	assert.Equal(t, pingwatch.Event{
		Host:      "10.0.0.1",
		Timestamp: now.UnixMilli(),
		Duration:  5,
		Status:    "success",
	}, got)
}
