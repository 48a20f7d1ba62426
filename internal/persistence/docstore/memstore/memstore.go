// Package memstore is an in-process docstore.Store. The relay serves it by
// default and tests use it as the shared backend between controllers.
package memstore

import (
	"context"
	"sync"

	"acre.game/internal/persistence/docstore"
)

type Store struct {
	hub *docstore.Hub

	mu      sync.Mutex
	closed  bool
	docs    map[string]docstore.Document
	members map[string]map[string]struct{} // collection -> ids
}

func New() *Store {
	return &Store{
		hub:     docstore.NewHub(),
		docs:    map[string]docstore.Document{},
		members: map[string]map[string]struct{}{},
	}
}

func (s *Store) Set(ctx context.Context, path string, doc docstore.Document) error {
	if err := docstore.ValidPath(path); err != nil {
		return err
	}
	norm, err := docstore.Normalize(doc)
	if err != nil {
		return err
	}
	if norm == nil {
		norm = docstore.Document{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	s.putLocked(path, norm)
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	d, ok := s.docs[path]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return docstore.Clone(d), nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	cur, ok := s.docs[path]
	if !ok {
		return docstore.ErrNotFound
	}
	next := docstore.Clone(cur)
	if err := docstore.ApplyFields(next, fields); err != nil {
		return err
	}
	s.putLocked(path, next)
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	if _, ok := s.docs[path]; !ok {
		return nil
	}
	delete(s.docs, path)
	col, id := docstore.Split(path)
	delete(s.members[col], id)
	if len(s.members[col]) == 0 {
		delete(s.members, col)
	}
	s.hub.PublishDoc(docstore.Event{Path: path, Deleted: true})
	s.publishColLocked(col)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (*docstore.Subscription[docstore.Event], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	sub := s.hub.WatchDoc(path)
	if d, ok := s.docs[path]; ok {
		sub.Offer(docstore.Event{Path: path, Doc: docstore.Clone(d)})
	} else {
		sub.Offer(docstore.Event{Path: path, Deleted: true})
	}
	return sub, nil
}

func (s *Store) SubscribeCollection(ctx context.Context, path string) (*docstore.Subscription[docstore.CollectionEvent], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	sub := s.hub.WatchCollection(path)
	sub.Offer(docstore.CollectionEvent{Path: path, Members: s.membersLocked(path)})
	return sub, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.CloseAll()
	return nil
}

// Len is the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *Store) putLocked(path string, doc docstore.Document) {
	s.docs[path] = doc
	col, id := docstore.Split(path)
	if s.members[col] == nil {
		s.members[col] = map[string]struct{}{}
	}
	s.members[col][id] = struct{}{}
	s.hub.PublishDoc(docstore.Event{Path: path, Doc: doc})
	s.publishColLocked(col)
}

func (s *Store) publishColLocked(col string) {
	if !s.hub.CollectionWatched(col) {
		return
	}
	s.hub.PublishCollection(docstore.CollectionEvent{Path: col, Members: s.membersLocked(col)})
}

func (s *Store) membersLocked(col string) map[string]docstore.Document {
	out := make(map[string]docstore.Document, len(s.members[col]))
	for id := range s.members[col] {
		out[id] = docstore.Clone(s.docs[col+"/"+id])
	}
	return out
}
