package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"acre.game/internal/persistence/docstore"
	"acre.game/internal/protocol"
)

// Client is a docstore.Store backed by a relay connection.
type Client struct {
	conn    *websocket.Conn
	log     *zap.Logger
	welcome protocol.WelcomeMsg

	wmu sync.Mutex // serializes writes on conn

	seq atomic.Uint64

	mu       sync.Mutex
	closed   bool
	pending  map[string]chan protocol.ResultMsg
	docSubs  map[string]*docstore.Subscription[docstore.Event]
	colSubs  map[string]*docstore.Subscription[docstore.CollectionEvent]
	readDone chan struct{}
}

type DialOptions struct {
	ClientName string
	SessionID  string
}

func Dial(ctx context.Context, url string, opts DialOptions, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      opts.ClientName,
		SessionID:       opts.SessionID,
	}
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	} else {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("expected WELCOME")
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &Client{
		conn:     conn,
		log:      logger.Named("relay-client").With(zap.String("conn", welcome.ConnID)),
		welcome:  welcome,
		pending:  map[string]chan protocol.ResultMsg{},
		docSubs:  map[string]*docstore.Subscription[docstore.Event]{},
		colSubs:  map[string]*docstore.Subscription[docstore.CollectionEvent]{},
		readDone: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Welcome() protocol.WelcomeMsg { return c.welcome }

func (c *Client) readLoop() {
	defer close(c.readDone)
	defer c.shutdown()
	defer c.conn.Close()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.log.Warn("relay connection lost", zap.Error(err))
			}
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			c.mu.Lock()
			ch := c.pending[res.ID]
			delete(c.pending, res.ID)
			c.mu.Unlock()
			if ch != nil {
				ch <- res
			}
		case protocol.TypeEvent:
			var ev protocol.EventMsg
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			c.mu.Lock()
			sub := c.docSubs[ev.SubID]
			c.mu.Unlock()
			if sub != nil {
				sub.Offer(docstore.Event{Path: ev.Path, Doc: ev.Doc, Deleted: ev.Deleted})
			}
		case protocol.TypeCollection:
			var ev protocol.CollectionMsg
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			c.mu.Lock()
			sub := c.colSubs[ev.SubID]
			c.mu.Unlock()
			if sub != nil {
				members := make(map[string]docstore.Document, len(ev.Members))
				for k, d := range ev.Members {
					members[k] = d
				}
				sub.Offer(docstore.CollectionEvent{Path: ev.Path, Members: members})
			}
		}
	}
}

// shutdown fails pending requests and ends every subscription.
func (c *Client) shutdown() {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = map[string]chan protocol.ResultMsg{}
	docSubs := c.docSubs
	colSubs := c.colSubs
	c.docSubs = map[string]*docstore.Subscription[docstore.Event]{}
	c.colSubs = map[string]*docstore.Subscription[docstore.CollectionEvent]{}
	c.mu.Unlock()
	for id, ch := range pending {
		ch <- protocol.ResultMsg{Type: protocol.TypeResult, ID: id, Code: protocol.ErrClosed, Message: "connection closed"}
	}
	for _, s := range docSubs {
		s.Close()
	}
	for _, s := range colSubs {
		s.Close()
	}
}

func (c *Client) nextID() string {
	return "R" + strconv.FormatUint(c.seq.Add(1), 10)
}

func (c *Client) write(req protocol.RequestMsg) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(req)
}

func (c *Client) roundTrip(ctx context.Context, req protocol.RequestMsg) (protocol.ResultMsg, error) {
	ch := make(chan protocol.ResultMsg, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.ResultMsg{}, docstore.ErrClosed
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err := c.write(req); err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return protocol.ResultMsg{}, err
	}
	select {
	case res := <-ch:
		if !res.OK {
			return res, resultErr(res)
		}
		return res, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return protocol.ResultMsg{}, ctx.Err()
	}
}

func resultErr(res protocol.ResultMsg) error {
	switch res.Code {
	case protocol.ErrNotFound:
		return docstore.ErrNotFound
	case protocol.ErrClosed:
		return docstore.ErrClosed
	case protocol.ErrBadRequest:
		return fmt.Errorf("%w: %s", docstore.ErrBadPath, res.Message)
	}
	return fmt.Errorf("relay %s: %s", res.Code, res.Message)
}

func (c *Client) Set(ctx context.Context, path string, doc docstore.Document) error {
	_, err := c.roundTrip(ctx, protocol.RequestMsg{Type: protocol.TypeSet, ID: c.nextID(), Path: path, Doc: doc})
	return err
}

func (c *Client) Get(ctx context.Context, path string) (docstore.Document, error) {
	res, err := c.roundTrip(ctx, protocol.RequestMsg{Type: protocol.TypeGet, ID: c.nextID(), Path: path})
	if err != nil {
		return nil, err
	}
	if res.Doc == nil {
		return docstore.Document{}, nil
	}
	return res.Doc, nil
}

func (c *Client) Update(ctx context.Context, path string, fields map[string]any) error {
	_, err := c.roundTrip(ctx, protocol.RequestMsg{Type: protocol.TypeUpdate, ID: c.nextID(), Path: path, Fields: fields})
	return err
}

func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.roundTrip(ctx, protocol.RequestMsg{Type: protocol.TypeDelete, ID: c.nextID(), Path: path})
	return err
}

func (c *Client) Subscribe(ctx context.Context, path string) (*docstore.Subscription[docstore.Event], error) {
	id := c.nextID()
	sub := docstore.NewSubscription[docstore.Event](func() { c.unsubscribe(id) })
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, docstore.ErrClosed
	}
	c.docSubs[id] = sub
	c.mu.Unlock()
	if _, err := c.roundTrip(ctx, protocol.RequestMsg{Type: protocol.TypeSub, ID: id, Path: path}); err != nil {
		c.mu.Lock()
		delete(c.docSubs, id)
		c.mu.Unlock()
		return nil, err
	}
	return sub, nil
}

func (c *Client) SubscribeCollection(ctx context.Context, path string) (*docstore.Subscription[docstore.CollectionEvent], error) {
	id := c.nextID()
	sub := docstore.NewSubscription[docstore.CollectionEvent](func() { c.unsubscribe(id) })
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, docstore.ErrClosed
	}
	c.colSubs[id] = sub
	c.mu.Unlock()
	if _, err := c.roundTrip(ctx, protocol.RequestMsg{Type: protocol.TypeSubCol, ID: id, Path: path}); err != nil {
		c.mu.Lock()
		delete(c.colSubs, id)
		c.mu.Unlock()
		return nil, err
	}
	return sub, nil
}

// unsubscribe is fire-and-forget; late events for id are dropped locally.
func (c *Client) unsubscribe(id string) {
	c.mu.Lock()
	_, d := c.docSubs[id]
	_, col := c.colSubs[id]
	delete(c.docSubs, id)
	delete(c.colSubs, id)
	closed := c.closed
	c.mu.Unlock()
	if closed || (!d && !col) {
		return
	}
	if err := c.write(protocol.RequestMsg{Type: protocol.TypeUnsub, ID: c.nextID(), SubID: id}); err != nil {
		c.log.Debug("unsubscribe not sent", zap.String("sub", id), zap.Error(err))
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.readDone
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	err := c.conn.Close()
	<-c.readDone
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
