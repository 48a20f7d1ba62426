// Package sqlitestore keeps documents in a local SQLite file. Bodies are
// msgpack compressed with zstd; subscribers are served in-process.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"acre.game/internal/persistence/docstore"
)

type Store struct {
	db  *sql.DB
	hub *docstore.Hub
	log *zap.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder

	// mu serializes writes with their fan-out so subscribers never observe
	// publishes out of commit order.
	mu     sync.Mutex
	closed bool
}

func Open(path string, log *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, hub: docstore.NewHub(), log: log.Named("sqlitestore"), enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			body BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) encode(doc docstore.Document) ([]byte, error) {
	raw, err := msgpack.Marshal(map[string]any(doc))
	if err != nil {
		return nil, err
	}
	return s.enc.EncodeAll(raw, nil), nil
}

func (s *Store) decode(body []byte) (docstore.Document, error) {
	raw, err := s.dec.DecodeAll(body, nil)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return docstore.Document(m), nil
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
	if err := s.putLocked(ctx, s.db, path, norm); err != nil {
		return err
	}
	s.publishLocked(ctx, path, norm)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) putLocked(ctx context.Context, db execer, path string, doc docstore.Document) error {
	body, err := s.encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	col, _ := docstore.Split(path)
	_, err = db.ExecContext(ctx,
		`INSERT INTO documents(path, collection, body, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(path) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`,
		path, col, body, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	s.log.Debug("stored document", zap.String("path", path), zap.String("size", humanize.Bytes(uint64(len(body)))))
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	return s.getLocked(ctx, s.db, path)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getLocked(ctx context.Context, db queryer, path string) (docstore.Document, error) {
	var body []byte
	err := db.QueryRowContext(ctx, `SELECT body FROM documents WHERE path = ?`, path).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.decode(body)
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.getLocked(ctx, tx, path)
	if err != nil {
		return err
	}
	if err := docstore.ApplyFields(cur, fields); err != nil {
		return err
	}
	if err := s.putLocked(ctx, tx, path, cur); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.publishLocked(ctx, path, cur)
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	s.publishLocked(ctx, path, nil)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (*docstore.Subscription[docstore.Event], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	doc, err := s.getLocked(ctx, s.db, path)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	sub := s.hub.WatchDoc(path)
	sub.Offer(docstore.Event{Path: path, Doc: doc, Deleted: doc == nil})
	return sub, nil
}

func (s *Store) SubscribeCollection(ctx context.Context, path string) (*docstore.Subscription[docstore.CollectionEvent], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	members, err := s.membersLocked(ctx, path)
	if err != nil {
		return nil, err
	}
	sub := s.hub.WatchCollection(path)
	sub.Offer(docstore.CollectionEvent{Path: path, Members: members})
	return sub, nil
}

func (s *Store) membersLocked(ctx context.Context, col string) (map[string]docstore.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, body FROM documents WHERE collection = ?`, col)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]docstore.Document{}
	for rows.Next() {
		var path string
		var body []byte
		if err := rows.Scan(&path, &body); err != nil {
			return nil, err
		}
		doc, err := s.decode(body)
		if err != nil {
			s.log.Warn("skipping undecodable document", zap.String("path", path), zap.Error(err))
			continue
		}
		_, id := docstore.Split(path)
		out[id] = doc
	}
	return out, rows.Err()
}

func (s *Store) publishLocked(ctx context.Context, path string, doc docstore.Document) {
	s.hub.PublishDoc(docstore.Event{Path: path, Doc: doc, Deleted: doc == nil})
	col, _ := docstore.Split(path)
	if !s.hub.CollectionWatched(col) {
		return
	}
	members, err := s.membersLocked(ctx, col)
	if err != nil {
		s.log.Warn("collection fan-out failed", zap.String("collection", col), zap.Error(err))
		return
	}
	s.hub.PublishCollection(docstore.CollectionEvent{Path: col, Members: members})
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.hub.CloseAll()
	_ = s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}
