// Package docstore is the document/collection store shared by every client of
// a world. Backends live in sub-packages; the relay client lives in
// internal/transport/ws.
package docstore

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrClosed   = errors.New("docstore: store closed")
	ErrBadPath  = errors.New("docstore: bad path")
)

// Document is a JSON-shaped value: maps, slices, strings, bools and numbers.
// Numbers may arrive as any numeric type depending on the backend.
type Document map[string]any

// Event is one observation of a single document.
type Event struct {
	Path    string   `json:"path"`
	Doc     Document `json:"doc,omitempty"`
	Deleted bool     `json:"deleted,omitempty"`
}

// CollectionEvent carries the full member list of a collection, keyed by the
// last path segment of each member.
type CollectionEvent struct {
	Path    string              `json:"path"`
	Members map[string]Document `json:"members"`
}

type Store interface {
	Set(ctx context.Context, path string, doc Document) error
	Get(ctx context.Context, path string) (Document, error)
	// Update merges dotted field paths into an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	// Subscriptions deliver the current state immediately.
	Subscribe(ctx context.Context, path string) (*Subscription[Event], error)
	SubscribeCollection(ctx context.Context, path string) (*Subscription[CollectionEvent], error)
	Close() error
}

func WorldPath(code string) string       { return "worlds/" + code }
func PlayersPath(code string) string     { return WorldPath(code) + "/players" }
func PlayerPath(code, uid string) string { return PlayersPath(code) + "/" + uid }

// Split returns the parent collection and the member id of a document path.
func Split(path string) (collection, id string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// ValidPath rejects empty segments and leading or trailing slashes.
func ValidPath(path string) error {
	if path == "" {
		return ErrBadPath
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.ContainsAny(seg, " \t\n") {
			return ErrBadPath
		}
	}
	return nil
}
