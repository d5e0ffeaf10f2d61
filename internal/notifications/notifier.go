package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "room:"

// Notifier publishes room events into Redis channels so multiple server
// instances see the same traffic. A nil Redis client makes every method a
// no-op, which keeps single-instance and test setups simple.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether the notifier has a Redis backend.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishRoom sends an event to a room's channel.
func (n *Notifier) PublishRoom(ctx context.Context, room string, event Event) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, RoomChannel(room), payload).Err()
}

// StartRoomSubscriber subscribes to pattern `room:*` and calls onMessage for
// each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartRoomSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in RoomSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// RoomChannel derives the Redis channel name for a room.
func RoomChannel(room string) string {
	return roomChannelPrefix + room
}
