package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// AllIncidentsChannel is the Pub/Sub channel every event lands on.
	AllIncidentsChannel = "incidents:all"

	// eventQueueKey is the Redis list drained by the webhook worker.
	eventQueueKey = "notification_events"
)

// IncidentChannel returns the Pub/Sub channel for one incident's updates.
// Channel membership is a live-connection concept only; nothing is replayed
// for subscribers that join later.
func IncidentChannel(id string) string {
	return fmt.Sprintf("incidents:%s", id)
}

// EventPublisher is the notification sink contract consumed by the lifecycle
// engine. Delivery is best-effort: no acknowledgment, no retry at this level.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisEventPublisher fans events out over Redis Pub/Sub and enqueues them
// for the webhook worker.
type RedisEventPublisher struct {
	redisClient *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{
		redisClient: client,
	}
}

// Publish broadcasts the event to the all-incidents channel, to the
// per-incident channel for updates, and pushes it onto the delivery queue.
func (p *RedisEventPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.redisClient.Publish(ctx, AllIncidentsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to Redis: %w", err)
	}

	if event.Type == EventIncidentUpdate && event.IncidentID != nil {
		channel := IncidentChannel(event.IncidentID.String())
		if err := p.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish event to incident channel: %w", err)
		}
	}

	if err := p.redisClient.LPush(ctx, eventQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue event for webhook delivery: %w", err)
	}
	return nil
}
