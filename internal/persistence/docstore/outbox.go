package docstore

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type OpKind int

const (
	OpSet OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Op is one queued fire-and-forget write.
type Op struct {
	Kind   OpKind
	Path   string
	Doc    Document
	Fields map[string]any
}

// Outbox decouples gameplay writes from store latency. Writes are dropped
// when the queue is full and failures are logged, never retried.
type Outbox struct {
	store   Store
	ch      chan Op
	timeout time.Duration
	log     *zap.Logger

	dropped atomic.Int64
	failed  atomic.Int64
	applied atomic.Int64
}

func NewOutbox(store Store, size int, timeout time.Duration, log *zap.Logger) *Outbox {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Outbox{store: store, ch: make(chan Op, size), timeout: timeout, log: log}
}

func (o *Outbox) Enqueue(op Op) bool {
	select {
	case o.ch <- op:
		return true
	default:
		n := o.dropped.Add(1)
		o.log.Warn("outbox full, dropping write",
			zap.Stringer("op", op.Kind), zap.String("path", op.Path), zap.Int64("dropped_total", n))
		return false
	}
}

func (o *Outbox) Set(path string, doc Document) bool {
	return o.Enqueue(Op{Kind: OpSet, Path: path, Doc: doc})
}

func (o *Outbox) Update(path string, fields map[string]any) bool {
	return o.Enqueue(Op{Kind: OpUpdate, Path: path, Fields: fields})
}

func (o *Outbox) Delete(path string) bool {
	return o.Enqueue(Op{Kind: OpDelete, Path: path})
}

// Run applies queued writes until ctx is cancelled.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-o.ch:
			o.apply(ctx, op)
		}
	}
}

// Drain applies everything currently queued and returns.
func (o *Outbox) Drain(ctx context.Context) {
	for {
		select {
		case op := <-o.ch:
			o.apply(ctx, op)
		default:
			return
		}
	}
}

// TryNext removes the oldest queued write without applying it.
func (o *Outbox) TryNext() (Op, bool) {
	select {
	case op := <-o.ch:
		return op, true
	default:
		return Op{}, false
	}
}

func (o *Outbox) Pending() int { return len(o.ch) }

type OutboxStats struct {
	Applied int64
	Failed  int64
	Dropped int64
}

func (o *Outbox) Stats() OutboxStats {
	return OutboxStats{Applied: o.applied.Load(), Failed: o.failed.Load(), Dropped: o.dropped.Load()}
}

func (o *Outbox) apply(ctx context.Context, op Op) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	var err error
	switch op.Kind {
	case OpSet:
		err = o.store.Set(ctx, op.Path, op.Doc)
	case OpUpdate:
		err = o.store.Update(ctx, op.Path, op.Fields)
	case OpDelete:
		err = o.store.Delete(ctx, op.Path)
	}
	if err != nil {
		o.failed.Add(1)
		o.log.Warn("store write failed", zap.Stringer("op", op.Kind), zap.String("path", op.Path), zap.Error(err))
		return
	}
	o.applied.Add(1)
}
