package auth

import "sync"

// Status is the authentication state of a session.
type Status int

const (
	StatusLoggedOut Status = iota
	StatusLoggedIn
)

func (s Status) String() string {
	if s == StatusLoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// StatusBroadcaster fans status changes out to subscribers. A slow subscriber
// only ever misses intermediate values, never the latest one.
type StatusBroadcaster struct {
	mu     sync.Mutex
	status Status
	subs   map[int]chan Status
	nextID int
}

// NewStatusBroadcaster starts in initial.
func NewStatusBroadcaster(initial Status) *StatusBroadcaster {
	return &StatusBroadcaster{status: initial, subs: make(map[int]chan Status)}
}

// Current returns the latest status.
func (b *StatusBroadcaster) Current() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Set records s and notifies every subscriber, even when s is unchanged.
func (b *StatusBroadcaster) Set(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Subscribe returns a channel that receives the current status and every later
// change, and a function that ends the subscription.
func (b *StatusBroadcaster) Subscribe() (<-chan Status, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Status, 1)
	ch <- b.status
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
