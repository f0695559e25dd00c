package notifications

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream publishes intents to a redis stream.
type RedisStream struct {
	client streamAdder
	stream string
}

func NewRedisStream(client streamAdder, stream string) *RedisStream {
	return &RedisStream{client: client, stream: stream}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisStream) Enqueue(ctx context.Context, intent Intent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"template":     intent.Template,
			"recipientId":  intent.RecipientID,
			"assignmentId": intent.AssignmentID,
			"payload":      string(payload),
		},
	}).Err()
}
