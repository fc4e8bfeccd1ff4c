// Package queue carries portal events from the API to the worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKey is the Redis list that carries portal events.
const DefaultKey = "portal:events"

// ErrFull is returned by InMemory.Publish when the buffer has no room.
var ErrFull = errors.New("queue full")

const (
	popTimeout = 5 * time.Second
	maxBackoff = 30 * time.Second
)

// Message is one event. ID and PublishedAt are filled in on publish when empty.
type Message struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Body        json.RawMessage `json:"body"`
	PublishedAt time.Time       `json:"published_at"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

func stamp(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now().UTC()
	}
	return msg
}

// InMemory is a bounded channel queue for a single process.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a queue holding at most size undelivered messages.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues msg without blocking; a full buffer returns ErrFull.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- stamp(msg):
		return nil
	default:
		return ErrFull
	}
}

// Consume streams messages until ctx is done, then closes the channel.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Len reports the number of buffered messages.
func (q *InMemory) Len() int { return len(q.ch) }

// RedisQueue is a Redis list: LPUSH to publish, BRPOP to consume.
// Messages are stored as JSON.
type RedisQueue struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

// NewRedisQueue creates a queue on key. A nil logger discards consume errors.
func NewRedisQueue(client *redis.Client, key string, log *zap.Logger) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisQueue{client: client, key: key, log: log}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	b, err := json.Marshal(stamp(msg))
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

// Consume streams messages until ctx is done. Connection errors back off
// exponentially; undecodable entries are logged and dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		backoff := time.Second
		for {
			res, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, redis.Nil):
				continue
			case err != nil:
				q.log.Warn("queue pop failed", zap.String("key", q.key), zap.Duration("retry_in", backoff), zap.Error(err))
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			backoff = time.Second
			if len(res) != 2 {
				continue
			}
			var msg Message
			if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
				q.log.Warn("dropping undecodable message", zap.String("key", q.key), zap.Error(err))
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
