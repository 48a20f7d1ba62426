// Package rostersync mirrors players to and from the world's player
// collection. Physics state of the local player is never taken from the
// store; every other field is.
package rostersync

import (
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"

	"acre.game/internal/persistence/docstore"
	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/world/feature/economy/inventory"
	"acre.game/internal/sim/world/kernel/model"
)

// PlayerDoc is the stored shape of a player.
type PlayerDoc struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Avatar    model.Avatar            `json:"avatar"`
	X         float64                 `json:"x"`
	Y         float64                 `json:"y"`
	Health    int                     `json:"health"`
	MaxHealth int                     `json:"max_health,omitempty"`
	Inventory map[catalogs.ItemID]int `json:"inventory"`
	Hotbar    []*inventory.Slot       `json:"hotbar"`
	Selected  int                     `json:"selected"`
	UpdatedAt int64                   `json:"updated_at"`
}

func DocFor(p *model.Player, now time.Time) PlayerDoc {
	return PlayerDoc{
		ID:        p.ID,
		Name:      p.Name,
		Avatar:    p.Avatar,
		X:         p.Pos.X,
		Y:         p.Pos.Y,
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		Inventory: p.Inventory.Counts(),
		Hotbar:    p.Inventory.Hotbar(),
		Selected:  p.Selected,
		UpdatedAt: now.UnixMilli(),
	}
}

func (d PlayerDoc) Document() (docstore.Document, error) {
	return docstore.Normalize(d)
}

func ParseDoc(doc docstore.Document) (PlayerDoc, error) {
	var d PlayerDoc
	err := docstore.Decode(doc, &d)
	return d, err
}

// Writer queues fire-and-forget document writes. *docstore.Outbox
// satisfies it.
type Writer interface {
	Set(path string, doc docstore.Document) bool
}

type Options struct {
	PushProbability float64
	Rand            *rand.Rand
	Now             func() time.Time
}

type Adapter struct {
	code string
	self string
	out  Writer
	log  *zap.Logger

	prob float64
	rng  *rand.Rand
	now  func() time.Time

	remote map[string]PlayerDoc

	// State as of the last write of the local player.
	pushedVersion  uint64
	pushedSelected int
	pushedHealth   int
	pushedAt       int64

	pushes  int
	skipped int
}

func NewAdapter(code, self string, out Writer, opts Options, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	return &Adapter{
		code:   code,
		self:   self,
		out:    out,
		log:    log.Named("rostersync").With(zap.String("world", code)),
		prob:   opts.PushProbability,
		rng:    opts.Rand,
		now:    opts.Now,
		remote: map[string]PlayerDoc{},
	}
}

// Synced records p as already written, e.g. by the join handshake.
func (a *Adapter) Synced(p *model.Player, at time.Time) {
	a.pushedVersion = p.Inventory.Version()
	a.pushedSelected = p.Selected
	a.pushedHealth = p.Health
	a.pushedAt = at.UnixMilli()
}

// Dirty reports shareable changes not yet written.
func (a *Adapter) Dirty(p *model.Player) bool {
	return p.Inventory.Version() != a.pushedVersion ||
		p.Selected != a.pushedSelected ||
		p.Health != a.pushedHealth
}

// MaybePush writes the local player with the configured probability, or
// unconditionally when inventory, selection or health changed since the
// last write.
func (a *Adapter) MaybePush(p *model.Player) bool {
	if !a.Dirty(p) && a.rng.Float64() >= a.prob {
		return false
	}
	return a.Push(p)
}

func (a *Adapter) Push(p *model.Player) bool {
	now := a.now()
	doc, err := DocFor(p, now).Document()
	if err != nil {
		a.log.Warn("encode player", zap.Error(err))
		return false
	}
	if !a.out.Set(docstore.PlayerPath(a.code, p.ID), doc) {
		return false
	}
	a.Synced(p, now)
	a.pushes++
	return true
}

// Apply replaces the remote cache with members and merges the local entry's
// non-physics fields into local. Local edits not yet written win over the
// store, as do snapshots older than the last write.
func (a *Adapter) Apply(members map[string]docstore.Document, local *model.Player) {
	next := make(map[string]PlayerDoc, len(members))
	var mine *PlayerDoc
	for id, doc := range members {
		d, err := ParseDoc(doc)
		if err != nil {
			a.skipped++
			a.log.Warn("skipping player document", zap.String("player", id), zap.Error(err))
			continue
		}
		if d.ID == "" {
			d.ID = id
		}
		if id == a.self {
			mine = &d
			continue
		}
		next[id] = d
	}
	a.remote = next

	if mine == nil || local == nil || a.Dirty(local) || mine.UpdatedAt < a.pushedAt {
		return
	}
	MergeLocal(local, *mine)
	a.Synced(local, time.UnixMilli(mine.UpdatedAt))
}

// MergeLocal copies the remote-authoritative fields of d into p. Position,
// velocity and grounded are left alone.
func MergeLocal(p *model.Player, d PlayerDoc) {
	if d.Avatar.Valid() {
		p.Avatar = d.Avatar
	}
	if d.MaxHealth > 0 {
		p.MaxHealth = d.MaxHealth
	}
	p.SetHealth(d.Health)
	p.Inventory.Replace(d.Inventory)
	if !p.Select(d.Selected) {
		p.Select(0)
	}
}

// Remote returns a copy of the peer cache.
func (a *Adapter) Remote() map[string]PlayerDoc {
	out := make(map[string]PlayerDoc, len(a.remote))
	for k, v := range a.remote {
		out[k] = v
	}
	return out
}

func (a *Adapter) Peer(id string) (PlayerDoc, bool) {
	d, ok := a.remote[id]
	return d, ok
}

// PeerIDs lists cached peers in sorted order.
func (a *Adapter) PeerIDs() []string {
	ids := make([]string, 0, len(a.remote))
	for id := range a.remote {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type Stats struct {
	Pushes  int
	Skipped int
	Peers   int
}

func (a *Adapter) Stats() Stats {
	return Stats{Pushes: a.pushes, Skipped: a.skipped, Peers: len(a.remote)}
}
