// Package redis provides the redis-backed repositories for the
// concurrency-sensitive storage concerns: identifier allocation, attempt
// completion, and the append-only score and history streams.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"classquest/internal/domain"
)

// CounterStore implements app.CounterRepository on a redis INCR per named
// counter. INCR is a single atomic increment-and-read on the server, so two
// concurrent callers can never observe the same value. An unseen key starts
// at 0 and the first call returns 1.
type CounterStore struct {
	client *redis.Client
}

func NewCounterStore(client *redis.Client) *CounterStore {
	return &CounterStore{client: client}
}

func (s *CounterStore) Next(ctx context.Context, name string) (int64, error) {
	value, err := s.client.Incr(ctx, "counter:"+name).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: incr counter %s: %v", domain.ErrStorageUnavailable, name, err)
	}
	return value, nil
}
