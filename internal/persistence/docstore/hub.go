package docstore

import "sync"

// Hub fans store changes out to in-process subscribers. Backends publish
// after each committed write.
type Hub struct {
	mu   sync.Mutex
	next uint64
	docs map[string]map[uint64]*Subscription[Event]
	cols map[string]map[uint64]*Subscription[CollectionEvent]
}

func NewHub() *Hub {
	return &Hub{
		docs: map[string]map[uint64]*Subscription[Event]{},
		cols: map[string]map[uint64]*Subscription[CollectionEvent]{},
	}
}

func (h *Hub) WatchDoc(path string) *Subscription[Event] {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	sub := NewSubscription[Event](func() { h.dropDoc(path, id) })
	if h.docs[path] == nil {
		h.docs[path] = map[uint64]*Subscription[Event]{}
	}
	h.docs[path][id] = sub
	return sub
}

func (h *Hub) WatchCollection(path string) *Subscription[CollectionEvent] {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	sub := NewSubscription[CollectionEvent](func() { h.dropCol(path, id) })
	if h.cols[path] == nil {
		h.cols[path] = map[uint64]*Subscription[CollectionEvent]{}
	}
	h.cols[path][id] = sub
	return sub
}

func (h *Hub) dropDoc(path string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.docs[path], id)
	if len(h.docs[path]) == 0 {
		delete(h.docs, path)
	}
}

func (h *Hub) dropCol(path string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cols[path], id)
	if len(h.cols[path]) == 0 {
		delete(h.cols, path)
	}
}

func (h *Hub) DocWatched(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.docs[path]) > 0
}

func (h *Hub) CollectionWatched(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cols[path]) > 0
}

func (h *Hub) PublishDoc(ev Event) {
	h.mu.Lock()
	subs := make([]*Subscription[Event], 0, len(h.docs[ev.Path]))
	for _, s := range h.docs[ev.Path] {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Offer(Event{Path: ev.Path, Doc: Clone(ev.Doc), Deleted: ev.Deleted})
	}
}

func (h *Hub) PublishCollection(ev CollectionEvent) {
	h.mu.Lock()
	subs := make([]*Subscription[CollectionEvent], 0, len(h.cols[ev.Path]))
	for _, s := range h.cols[ev.Path] {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		members := make(map[string]Document, len(ev.Members))
		for k, d := range ev.Members {
			members[k] = Clone(d)
		}
		s.Offer(CollectionEvent{Path: ev.Path, Members: members})
	}
}

// CloseAll ends every subscription, e.g. when the backend shuts down.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var docs []*Subscription[Event]
	var cols []*Subscription[CollectionEvent]
	for _, m := range h.docs {
		for _, s := range m {
			docs = append(docs, s)
		}
	}
	for _, m := range h.cols {
		for _, s := range m {
			cols = append(cols, s)
		}
	}
	h.mu.Unlock()
	for _, s := range docs {
		s.Close()
	}
	for _, s := range cols {
		s.Close()
	}
}

// WatchedPaths lists every document and collection with live subscribers.
func (h *Hub) WatchedPaths() (docs, cols []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.docs {
		docs = append(docs, p)
	}
	for p := range h.cols {
		cols = append(cols, p)
	}
	return docs, cols
}
