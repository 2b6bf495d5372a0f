package memory

import (
	"context"
	"sync"
)

// CounterStore is an in-memory implementation of app.CounterRepository. The
// mutex makes Next an atomic increment-and-read, mirroring what the redis
// implementation gets from INCR.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewCounterStore() *CounterStore {
	return &CounterStore{counters: make(map[string]int64)}
}

func (s *CounterStore) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}
