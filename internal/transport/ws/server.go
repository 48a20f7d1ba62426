package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"acre.game/internal/persistence/docstore"
	journal "acre.game/internal/persistence/log"
	"acre.game/internal/protocol"
	"acre.game/internal/sim/catalogs"
)

// Journal records accepted writes. *journal.Journal satisfies it.
type Journal interface {
	Record(e journal.Entry) error
}

// Server exposes a docstore.Store to websocket clients.
type Server struct {
	store     docstore.Store
	validator *protocol.Validator
	journal   Journal
	backend   string
	log       *zap.Logger

	upgrader websocket.Upgrader
	connSeq  atomic.Uint64
	live     atomic.Int64
}

type ServerOptions struct {
	Validator *protocol.Validator
	Journal   Journal
	Backend   string
}

func NewServer(store docstore.Store, opts ServerOptions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:     store,
		validator: opts.Validator,
		journal:   opts.Journal,
		backend:   opts.Backend,
		log:       logger.Named("relay"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// Live is the number of connected clients.
func (s *Server) Live() int64 { return s.live.Load() }

type conn struct {
	id  string
	out chan []byte
	log *zap.Logger

	mu   sync.Mutex
	subs map[string]func()
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer wsConn.Close()

		c, ok := s.handshake(wsConn)
		if !ok {
			return
		}
		s.live.Add(1)
		defer s.live.Add(-1)
		c.log.Info("client connected")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-c.out:
					_ = wsConn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := wsConn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = wsConn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := wsConn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || !protocol.IsRequest(base.Type) {
				continue
			}
			var req protocol.RequestMsg
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			res := s.handle(ctx, c, req)
			if !c.send(ctx, res) {
				break
			}
		}

		// Cleanup.
		c.closeSubs()
		c.log.Info("client disconnected")
	}
}

func (s *Server) handshake(wsConn *websocket.Conn) (*conn, bool) {
	_ = wsConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := wsConn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = wsConn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = wsConn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, false
	}

	id := fmt.Sprintf("C%d", s.connSeq.Add(1))
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ConnID:          id,
		CatalogDigest:   catalogs.Digest(),
		Backend:         s.backend,
	}
	if err := writeJSON(wsConn, welcome); err != nil {
		return nil, false
	}
	return &conn{
		id:   id,
		out:  make(chan []byte, 256),
		log:  s.log.With(zap.String("conn", id), zap.String("client", hello.ClientName), zap.String("session", hello.SessionID)),
		subs: map[string]func(){},
	}, true
}

func (s *Server) handle(ctx context.Context, c *conn, req protocol.RequestMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{Type: protocol.TypeResult, ID: req.ID, OK: true}
	fail := func(code string, err error) protocol.ResultMsg {
		res.OK = false
		res.Code = code
		res.Message = err.Error()
		return res
	}
	if req.Type != protocol.TypeUnsub {
		if err := docstore.ValidPath(req.Path); err != nil {
			return fail(protocol.ErrBadRequest, err)
		}
	}

	switch req.Type {
	case protocol.TypeSet:
		if s.validator != nil {
			if err := s.validator.Validate(req.Path, req.Doc); err != nil {
				return fail(protocol.ErrSchema, err)
			}
		}
		if err := s.store.Set(ctx, req.Path, docstore.Document(req.Doc)); err != nil {
			return fail(codeFor(err), err)
		}
		s.record(c, req)
	case protocol.TypeUpdate:
		if s.validator != nil && s.validator.SchemaFor(req.Path) != nil {
			cur, err := s.store.Get(ctx, req.Path)
			if err != nil {
				return fail(codeFor(err), err)
			}
			if err := docstore.ApplyFields(cur, req.Fields); err != nil {
				return fail(protocol.ErrBadRequest, err)
			}
			if err := s.validator.Validate(req.Path, cur); err != nil {
				return fail(protocol.ErrSchema, err)
			}
		}
		if err := s.store.Update(ctx, req.Path, req.Fields); err != nil {
			return fail(codeFor(err), err)
		}
		s.record(c, req)
	case protocol.TypeDelete:
		if err := s.store.Delete(ctx, req.Path); err != nil {
			return fail(codeFor(err), err)
		}
		s.record(c, req)
	case protocol.TypeGet:
		doc, err := s.store.Get(ctx, req.Path)
		if err != nil {
			return fail(codeFor(err), err)
		}
		res.Doc = doc
	case protocol.TypeSub:
		sub, err := s.store.Subscribe(ctx, req.Path)
		if err != nil {
			return fail(codeFor(err), err)
		}
		c.track(req.ID, sub.Close)
		go pump(ctx, c, sub.C(), func(ev docstore.Event) any {
			return protocol.EventMsg{Type: protocol.TypeEvent, SubID: req.ID, Path: ev.Path, Doc: ev.Doc, Deleted: ev.Deleted}
		})
	case protocol.TypeSubCol:
		sub, err := s.store.SubscribeCollection(ctx, req.Path)
		if err != nil {
			return fail(codeFor(err), err)
		}
		c.track(req.ID, sub.Close)
		go pump(ctx, c, sub.C(), func(ev docstore.CollectionEvent) any {
			members := make(map[string]map[string]any, len(ev.Members))
			for k, d := range ev.Members {
				members[k] = d
			}
			return protocol.CollectionMsg{Type: protocol.TypeCollection, SubID: req.ID, Path: ev.Path, Members: members}
		})
	case protocol.TypeUnsub:
		c.untrack(req.SubID)
	}
	return res
}

func (s *Server) record(c *conn, req protocol.RequestMsg) {
	if s.journal == nil {
		return
	}
	e := journal.Entry{Conn: c.id, Op: req.Type, Path: req.Path, Fields: req.Fields}
	if req.Doc != nil {
		if b, err := json.Marshal(req.Doc); err == nil {
			e.Bytes = len(b)
		}
	}
	if err := s.journal.Record(e); err != nil {
		c.log.Warn("journal write failed", zap.Error(err))
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, docstore.ErrBadPath):
		return protocol.ErrBadRequest
	case errors.Is(err, docstore.ErrClosed):
		return protocol.ErrClosed
	}
	return protocol.ErrInternal
}

// pump forwards subscription values until the subscription or connection ends.
func pump[T any](ctx context.Context, c *conn, ch <-chan T, wrap func(T) any) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			if !c.send(ctx, wrap(v)) {
				return
			}
		}
	}
}

func (c *conn) send(ctx context.Context, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("encode failed", zap.Error(err))
		return true
	}
	select {
	case c.out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *conn) track(id string, closeFn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.subs[id]; ok {
		prev()
	}
	c.subs[id] = closeFn
}

func (c *conn) untrack(id string) {
	c.mu.Lock()
	fn, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if ok {
		fn()
	}
}

func (c *conn) closeSubs() {
	c.mu.Lock()
	subs := c.subs
	c.subs = map[string]func(){}
	c.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
