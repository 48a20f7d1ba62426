// Package pgstore keeps documents in PostgreSQL as JSONB. Every write issues
// NOTIFY so subscribers in other processes observe it too.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"acre.game/internal/persistence/docstore"
)

const channel = "docstore"

type Config struct {
	DSN             string
	MaxConns        int
	ConnMaxLifetime time.Duration
}

type Store struct {
	pool *pgxpool.Pool
	hub  *docstore.Hub
	log  *zap.Logger

	// mu orders subscription snapshots against listener republishes.
	mu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	lctx, lcancel := context.WithCancel(context.Background())
	s := &Store{pool: pool, hub: docstore.NewHub(), log: log.Named("pgstore"), cancel: lcancel}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.listen(lctx)
	}()
	return s, nil
}

func (s *Store) Set(ctx context.Context, path string, doc docstore.Document) error {
	if err := docstore.ValidPath(path); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if string(body) == "null" {
		body = []byte("{}")
	}
	col, _ := docstore.Split(path)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO documents (path, collection, body, updated_at)
			 VALUES ($1, $2, $3::jsonb, now())
			 ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
			path, col, string(body))
		if err != nil {
			return err
		}
		return notify(ctx, tx, path)
	})
}

func notify(ctx context.Context, tx pgx.Tx, path string) error {
	_, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, path)
	return err
}

func (s *Store) Get(ctx context.Context, path string) (docstore.Document, error) {
	return getDoc(ctx, s.pool, path, "")
}

type rowQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getDoc(ctx context.Context, q rowQueryer, path, suffix string) (docstore.Document, error) {
	var body []byte
	err := q.QueryRow(ctx, `SELECT body::text FROM documents WHERE path = $1`+suffix, path).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc docstore.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if doc == nil {
		doc = docstore.Document{}
	}
	return doc, nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := getDoc(ctx, tx, path, " FOR UPDATE")
		if err != nil {
			return err
		}
		if err := docstore.ApplyFields(cur, fields); err != nil {
			return err
		}
		body, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE documents SET body = $2::jsonb, updated_at = now() WHERE path = $1`,
			path, string(body)); err != nil {
			return err
		}
		return notify(ctx, tx, path)
	})
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		return notify(ctx, tx, path)
	})
}

func (s *Store) Subscribe(ctx context.Context, path string) (*docstore.Subscription[docstore.Event], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := getDoc(ctx, s.pool, path, "")
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
	members, err := s.members(ctx, path)
	if err != nil {
		return nil, err
	}
	sub := s.hub.WatchCollection(path)
	sub.Offer(docstore.CollectionEvent{Path: path, Members: members})
	return sub, nil
}

func (s *Store) members(ctx context.Context, col string) (map[string]docstore.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT path, body::text FROM documents WHERE collection = $1`, col)
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
		var doc docstore.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			s.log.Warn("skipping undecodable document", zap.String("path", path), zap.Error(err))
			continue
		}
		_, id := docstore.Split(path)
		out[id] = doc
	}
	return out, rows.Err()
}

func (s *Store) listen(ctx context.Context) {
	for ctx.Err() == nil {
		if err := s.listenOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("listener dropped, reconnecting", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return err
	}
	// Anything may have changed while the listener was down.
	docs, cols := s.hub.WatchedPaths()
	for _, p := range docs {
		s.republish(ctx, p)
	}
	for _, c := range cols {
		s.republishCollection(ctx, c)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.republish(ctx, n.Payload)
	}
}

func (s *Store) republish(ctx context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hub.DocWatched(path) {
		doc, err := getDoc(ctx, s.pool, path, "")
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			s.hub.PublishDoc(docstore.Event{Path: path, Deleted: true})
		case err != nil:
			s.log.Warn("republish failed", zap.String("path", path), zap.Error(err))
		default:
			s.hub.PublishDoc(docstore.Event{Path: path, Doc: doc})
		}
	}
	col, _ := docstore.Split(path)
	s.republishCollectionLocked(ctx, col)
}

func (s *Store) republishCollection(ctx context.Context, col string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.republishCollectionLocked(ctx, col)
}

func (s *Store) republishCollectionLocked(ctx context.Context, col string) {
	if !s.hub.CollectionWatched(col) {
		return
	}
	members, err := s.members(ctx, col)
	if err != nil {
		s.log.Warn("collection republish failed", zap.String("collection", col), zap.Error(err))
		return
	}
	s.hub.PublishCollection(docstore.CollectionEvent{Path: col, Members: members})
}

func (s *Store) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.hub.CloseAll()
		s.pool.Close()
	})
	return nil
}
