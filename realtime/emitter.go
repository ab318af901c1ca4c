package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const EventNotification = "notification"

// DeliveryState distinguishes "delivered" from "delivery failed, logged" so
// callers (and tests) can assert on the outcome instead of inspecting logs.
type DeliveryState string

const (
	DeliveryStateDelivered = DeliveryState("DELIVERED")
	DeliveryStateFailed    = DeliveryState("FAILED")
	DeliveryStateSkipped   = DeliveryState("SKIPPED")
)

type DeliveryResult struct {
	UserId int
	State  DeliveryState
	Err    error
}

// Emitter pushes an event onto a per-user real-time channel.
type Emitter interface {
	Emit(ctx context.Context, userId int, event string, payload any) error
}

type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// RedisEmitter publishes events on Redis pub/sub channels, one channel per
// user. The websocket edge subscribes to these channels and forwards events
// to connected clients.
type RedisEmitter struct {
	rdb *redis.Client
}

func NewRedisEmitter(rdb *redis.Client) *RedisEmitter {
	return &RedisEmitter{rdb: rdb}
}

func UserChannel(userId int) string {
	return fmt.Sprintf("notification:user:%d", userId)
}

func (e *RedisEmitter) Emit(ctx context.Context, userId int, event string, payload any) error {
	if e == nil || e.rdb == nil {
		// Missing channel reference is a configuration gap, not a failure.
		return nil
	}
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, UserChannel(userId), data).Err()
}
