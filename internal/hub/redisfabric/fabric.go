// Package redisfabric carries hub events between server instances over Redis Pub/Sub.
package redisfabric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/melodex/server/internal/hub"
)

const channelPattern = "room:*:events"

var ErrSubscriptionClosed = errors.New("subscription closed")

type Fabric struct {
	rc     *redis.Client
	logger *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

func New(rc *redis.Client, logger *slog.Logger) *Fabric {
	return &Fabric{
		rc:     rc,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

func channel(roomId string) string {
	return "room:" + roomId + ":events"
}

// Ready is closed once the subscription is confirmed by the server.
func (f *Fabric) Ready() <-chan struct{} {
	return f.ready
}

func (f *Fabric) Publish(ctx context.Context, ev *hub.Event) error {
	f.logger.DebugContext(ctx, "called", "room_id", ev.RoomId, "event", ev.Name)
	defer f.logger.DebugContext(ctx, "returned", "room_id", ev.RoomId, "event", ev.Name)

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return f.rc.Publish(ctx, channel(ev.RoomId), data).Err()
}

func (f *Fabric) Run(ctx context.Context, deliver func(*hub.Event)) error {
	pubsub := f.rc.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", channelPattern, err)
	}
	f.readyOnce.Do(func() { close(f.ready) })

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return ErrSubscriptionClosed
			}

			var ev hub.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.logger.Warn("dropping malformed event", "channel", msg.Channel, "error", err)
				continue
			}
			deliver(&ev)
		}
	}
}
