package feed

import (
	"context"
	"sync"

	"quiz-webapp/internal/app"
	"quiz-webapp/internal/domain"
)

// Hub multiplexes many local catalog subscribers onto one upstream subscription
// per query, so a backend connection is held per instance rather than per client.
type Hub struct {
	app.Store

	mu     sync.Mutex
	topics map[domain.CatalogQuery]*topic
}

type topic struct {
	subscribers map[chan domain.Snapshot]struct{}
	last        *domain.Snapshot
	cancel      func()
}

// Share wraps store so that Subscribe goes through a Hub.
func Share(store app.Store) *Hub {
	return &Hub{Store: store, topics: make(map[domain.CatalogQuery]*topic)}
}

func (h *Hub) Subscribe(ctx context.Context, query domain.CatalogQuery) (<-chan domain.Snapshot, func(), error) {
	ch := make(chan domain.Snapshot, Buffer)

	h.mu.Lock()
	t, ok := h.topics[query]
	if !ok {
		// upstream outlives the first subscriber's context
		updates, cancel, err := h.Store.Subscribe(context.WithoutCancel(ctx), query)
		if err != nil {
			h.mu.Unlock()
			return nil, nil, err
		}
		t = &topic{subscribers: make(map[chan domain.Snapshot]struct{}), cancel: cancel}
		h.topics[query] = t
		go h.relay(query, t, updates)
	}
	t.subscribers[ch] = struct{}{}
	if t.last != nil {
		Deliver(ch, *t.last)
	}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { h.unsubscribe(query, t, ch) })
	}
	stop := context.AfterFunc(ctx, unsubscribe)
	return ch, func() {
		stop()
		unsubscribe()
	}, nil
}

func (h *Hub) relay(query domain.CatalogQuery, t *topic, updates <-chan domain.Snapshot) {
	for snap := range updates {
		h.mu.Lock()
		s := snap
		t.last = &s
		for ch := range t.subscribers {
			Deliver(ch, snap)
		}
		h.mu.Unlock()
	}

	// upstream ended: close everyone so clients notice
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range t.subscribers {
		close(ch)
	}
	t.subscribers = nil
	if h.topics[query] == t {
		delete(h.topics, query)
	}
}

func (h *Hub) unsubscribe(query domain.CatalogQuery, t *topic, ch chan domain.Snapshot) {
	h.mu.Lock()
	if _, ok := t.subscribers[ch]; !ok {
		h.mu.Unlock()
		return
	}
	delete(t.subscribers, ch)
	close(ch)
	var cancel func()
	if len(t.subscribers) == 0 && h.topics[query] == t {
		delete(h.topics, query)
		cancel = t.cancel
	}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
