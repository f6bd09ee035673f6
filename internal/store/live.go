package store

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Live is a continuous query. It emits the current result when created and a
// fresh result after every committed write to a table the query depends on.
// Results are coalesced: a slow reader skips intermediate states but always
// receives the latest one. Once writes stop, every open Live delivers a result
// that reflects the last of them. Each Live subscribes on its own, so one
// reader lagging never holds back another.
type Live[T any] struct {
	updates     chan T
	signal      <-chan struct{}
	done        chan struct{}
	once        sync.Once
	unsubscribe func()
}

// Watch starts a live query over tables. The query runs until Close is called
// or ctx is done, after which Updates is closed.
func Watch[T any](ctx context.Context, s *Store, tables []string, query func(db *gorm.DB) (T, error)) *Live[T] {
	l := &Live[T]{
		updates: make(chan T),
		done:    make(chan struct{}),
	}
	l.signal, l.unsubscribe = s.hub.subscribe(tables)
	go l.run(ctx, s, tables, query)
	return l
}

// Updates delivers query results.
func (l *Live[T]) Updates() <-chan T {
	return l.updates
}

// Close stops the query. It is safe to call more than once.
func (l *Live[T]) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Live[T]) run(ctx context.Context, s *Store, tables []string, query func(db *gorm.DB) (T, error)) {
	defer close(l.updates)
	defer l.unsubscribe()

	for {
		v, err := query(s.db.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warnw("live query failed", "tables", tables, "error", err)
		} else {
			select {
			case l.updates <- v:
			case <-l.done:
				return
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-l.signal:
		case <-l.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

type subscriber struct {
	tables map[string]struct{}
	signal chan struct{}
}

// hub fans change notifications out to live queries.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

func newHub() *hub {
	return &hub{subs: make(map[int]*subscriber)}
}

func (h *hub) subscribe(tables []string) (<-chan struct{}, func()) {
	sub := &subscriber{tables: make(map[string]struct{}, len(tables)), signal: make(chan struct{}, 1)}
	for _, t := range tables {
		sub.tables[t] = struct{}{}
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	return sub.signal, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *hub) publish(tables ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		for _, t := range tables {
			if _, ok := sub.tables[t]; ok {
				select {
				case sub.signal <- struct{}{}:
				default:
				}
				break
			}
		}
	}
}
