package manager

import "sync"

const defaultSubscriberBuffer = 256

// Broadcaster fans events out to live subscribers (log streaming). Slow
// subscribers lose events instead of blocking the supervisor.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	size int
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Broadcaster{subs: make(map[chan Event]struct{}), size: buffer}
}

func (b *Broadcaster) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called to release it; it closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
