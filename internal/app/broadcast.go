package app

import "sync"

// Broadcaster fans out "scores changed" signals per class so websocket
// subscribers can refresh their ranking view. Signals carry no payload and
// coalesce: a slow subscriber sees at least one signal, not every event.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]map[chan struct{}]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]map[chan struct{}]struct{})}
}

// Subscribe returns a signal channel for the class. The caller must invoke
// the returned cancel function to avoid leaks.
func (b *Broadcaster) Subscribe(classID int) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.subs[classID] == nil {
		b.subs[classID] = make(map[chan struct{}]struct{})
	}
	b.subs[classID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[classID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, classID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish signals every subscriber of the class without blocking.
func (b *Broadcaster) Publish(classID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[classID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
