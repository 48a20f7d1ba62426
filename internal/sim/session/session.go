// Package session drives one local player through character selection,
// hosting or joining a shared world, the per-frame simulation and exit.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"acre.game/internal/identity"
	"acre.game/internal/persistence/docstore"
	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/frame"
	"acre.game/internal/sim/sync/rostersync"
	"acre.game/internal/sim/sync/worldsync"
	"acre.game/internal/sim/tuning"
	"acre.game/internal/sim/world/feature/movement/kinematics"
	"acre.game/internal/sim/world/feature/session/lifecycle"
	"acre.game/internal/sim/world/feature/survival/respawn"
	"acre.game/internal/sim/world/feature/work/mining"
	"acre.game/internal/sim/world/kernel/model"
	"acre.game/internal/sim/world/terrain/gen"
	"acre.game/internal/sim/world/terrain/grid"
)

var (
	ErrInvalidCode   = errors.New("session: world code must be 6 characters")
	ErrWorldNotFound = errors.New("session: world not found")
	ErrWrongState    = errors.New("session: not allowed in the current state")
	ErrNoFreeCode    = errors.New("session: could not find a free world code")
)

const codeAttempts = 8

type State int

const (
	StateMenuSelect State = iota
	StateCharacterChosen
	StateHosting
	StateJoining
	StateInWorld
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateMenuSelect:
		return "menu_select"
	case StateCharacterChosen:
		return "character_chosen"
	case StateHosting:
		return "hosting"
	case StateJoining:
		return "joining"
	case StateInWorld:
		return "in_world"
	case StateExiting:
		return "exiting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type NoticeKind int

const (
	NoticeEvicted NoticeKind = iota + 1
	NoticeCatalogMismatch
	NoticeRespawned
)

// Notice is a user-facing message raised by the controller.
type Notice struct {
	Kind    NoticeKind
	World   string
	Message string
}

type Config struct {
	Store    docstore.Store
	Identity identity.Identity
	// Zero value means tuning.Defaults().
	Tuning tuning.Tuning
	// Seed for hosted worlds. Zero draws one from Rand.
	Seed int64
	Rand *rand.Rand
	Now  func() time.Time
	Log  *zap.Logger

	OnNotice func(Notice)
	OnRedraw func(*grid.Grid)
}

// Cell addresses one grid cell.
type Cell struct {
	X, Y int
}

// Input is the player's intent for one frame.
type Input struct {
	Move  kinematics.Input
	Mine  *Cell
	Place *Cell
}

type Controller struct {
	cfg   Config
	store docstore.Store
	tun   tuning.Tuning
	kin   kinematics.Params
	rng   *rand.Rand
	now   func() time.Time
	log   *zap.Logger

	state   State
	paused  bool
	invOpen bool

	player *model.Player
	code   string
	seed   int64
	spawn  model.Vec2

	world     *worldsync.Adapter
	roster    *rostersync.Adapter
	outbox    *docstore.Outbox
	worldSub  *docstore.Subscription[docstore.Event]
	rosterSub *docstore.Subscription[docstore.CollectionEvent]
	stopOut   context.CancelFunc
	outDone   chan struct{}

	runner *frame.Runner
	input  Input
	mining mining.Progress
}

func New(cfg Config) *Controller {
	if cfg.Tuning.TileSize == 0 {
		cfg.Tuning = tuning.Defaults()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xac2e))
	}
	c := &Controller{
		cfg:   cfg,
		store: cfg.Store,
		tun:   cfg.Tuning,
		kin:   kinematics.ParamsFrom(cfg.Tuning),
		rng:   cfg.Rand,
		now:   cfg.Now,
		log:   cfg.Log.Named("session").With(zap.String("player", cfg.Identity.ID)),
	}
	c.runner = c.buildRunner()
	return c
}

func (c *Controller) State() State          { return c.state }
func (c *Controller) Code() string          { return c.code }
func (c *Controller) Seed() int64           { return c.seed }
func (c *Controller) Player() *model.Player { return c.player }
func (c *Controller) Spawn() model.Vec2     { return c.spawn }
func (c *Controller) Paused() bool          { return c.paused }
func (c *Controller) InventoryOpen() bool   { return c.invOpen }

// Grid is the local copy of the shared world, nil outside a world.
func (c *Controller) Grid() *grid.Grid {
	if c.world == nil {
		return nil
	}
	return c.world.Grid()
}

// Peers returns the cached remote players keyed by id.
func (c *Controller) Peers() map[string]rostersync.PlayerDoc {
	if c.roster == nil {
		return nil
	}
	return c.roster.Remote()
}

// MiningFraction is the progress of the cell currently being mined.
func (c *Controller) MiningFraction() float64 {
	if c.world == nil || c.player == nil {
		return 0
	}
	return c.mining.Fraction(c.breakTime(c.mining.X, c.mining.Y))
}

// ChooseCharacter creates the local player. It is only valid from the menu.
func (c *Controller) ChooseCharacter(avatar model.Avatar, name string) error {
	if c.state != StateMenuSelect && c.state != StateCharacterChosen {
		return ErrWrongState
	}
	if !avatar.Valid() {
		return fmt.Errorf("session: unknown avatar %q", avatar)
	}
	c.player = model.NewPlayer(
		c.cfg.Identity.ID,
		identity.DisplayName(name, c.cfg.Identity),
		avatar,
		c.tun.Player.MaxHealth,
		c.tun.Player.HotbarSize,
	)
	c.state = StateCharacterChosen
	c.log.Info("character chosen", zap.String("avatar", string(avatar)), zap.String("name", c.player.Name))
	return nil
}

// Host generates a new world under a free code and enters it.
func (c *Controller) Host(ctx context.Context) (string, error) {
	if c.state != StateCharacterChosen {
		return "", ErrWrongState
	}
	seed := c.cfg.Seed
	if seed == 0 {
		seed = c.rng.Int64()
	}
	g := gen.Generate(gen.ParamsFrom(c.tun, seed))
	return c.host(ctx, g, seed)
}

// HostFrom publishes an existing grid, e.g. a restored snapshot, under a new
// code and enters it.
func (c *Controller) HostFrom(ctx context.Context, g *grid.Grid, seed int64) (string, error) {
	if c.state != StateCharacterChosen {
		return "", ErrWrongState
	}
	if g == nil || g.Width() == 0 || g.Height() == 0 {
		return "", fmt.Errorf("session: empty world")
	}
	return c.host(ctx, g.Clone(), seed)
}

func (c *Controller) host(ctx context.Context, g *grid.Grid, seed int64) (string, error) {
	c.state = StateHosting
	code, err := c.freeCode(ctx)
	if err != nil {
		c.state = StateCharacterChosen
		return "", err
	}
	doc := worldsync.WorldDoc(worldsync.Meta{
		Code:      code,
		Seed:      seed,
		Host:      c.player.ID,
		CreatedAt: c.now().UnixMilli(),
	}, g)
	if err := c.store.Set(ctx, docstore.WorldPath(code), doc); err != nil {
		c.state = StateCharacterChosen
		return "", fmt.Errorf("host world %s: %w", code, err)
	}
	c.log.Info("world created",
		zap.String("world", code),
		zap.Int64("seed", seed),
		zap.String("size", worldsync.WireSize(doc)),
	)
	if err := c.enter(ctx, code, seed, g); err != nil {
		c.state = StateCharacterChosen
		if derr := c.store.Delete(ctx, docstore.WorldPath(code)); derr != nil {
			c.log.Warn("remove abandoned world", zap.String("world", code), zap.Error(derr))
		}
		return "", fmt.Errorf("host world %s: %w", code, err)
	}
	return code, nil
}

func (c *Controller) freeCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := lifecycle.NewWorldCode(c.rng)
		_, err := c.store.Get(ctx, docstore.WorldPath(code))
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			return code, nil
		case err != nil:
			return "", fmt.Errorf("check world code %s: %w", code, err)
		}
		c.log.Debug("world code taken", zap.String("world", code))
	}
	return "", ErrNoFreeCode
}

// Join reads an existing world and enters it.
func (c *Controller) Join(ctx context.Context, raw string) error {
	if c.state != StateCharacterChosen {
		return ErrWrongState
	}
	code := lifecycle.NormalizeCode(raw)
	if !lifecycle.ValidCodeLength(code) {
		return ErrInvalidCode
	}
	c.state = StateJoining
	doc, err := c.store.Get(ctx, docstore.WorldPath(code))
	if err != nil {
		c.state = StateCharacterChosen
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("join world %s: %w", code, ErrWorldNotFound)
		}
		return fmt.Errorf("join world %s: %w", code, err)
	}
	g, meta, err := worldsync.GridFromDoc(doc)
	if err != nil {
		c.state = StateCharacterChosen
		return fmt.Errorf("join world %s: %w", code, err)
	}
	if meta.CatalogDigest != "" && meta.CatalogDigest != catalogs.Digest() {
		c.log.Warn("catalog digest differs from host",
			zap.String("world", code),
			zap.String("remote", meta.CatalogDigest),
			zap.String("local", catalogs.Digest()),
		)
		c.notify(Notice{Kind: NoticeCatalogMismatch, World: code, Message: "this world was created with different game data"})
	}
	if err := c.enter(ctx, code, meta.Seed, g); err != nil {
		c.state = StateCharacterChosen
		return fmt.Errorf("join world %s: %w", code, err)
	}
	return nil
}

// enter writes the player document, subscribes to the world and roster, and
// starts the outbox worker.
func (c *Controller) enter(ctx context.Context, code string, seed int64, g *grid.Grid) error {
	c.spawn = respawn.SpawnPoint(g, c.kin.TileSize, c.kin.Width, c.kin.Height)
	respawn.Apply(c.player, c.spawn)

	now := c.now()
	pdoc, err := rostersync.DocFor(c.player, now).Document()
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, docstore.PlayerPath(code, c.player.ID), pdoc); err != nil {
		return err
	}

	timeout := time.Duration(c.tun.Sync.WriteTimeoutMs) * time.Millisecond
	c.outbox = docstore.NewOutbox(c.store, c.tun.Sync.OutboxSize, timeout, c.log)
	c.world = worldsync.NewAdapter(code, g, c.outbox, c.log)
	c.world.OnChange(c.redraw)
	c.roster = rostersync.NewAdapter(code, c.player.ID, c.outbox, rostersync.Options{
		PushProbability: c.tun.Sync.PushProbability,
		Rand:            c.rng,
		Now:             c.now,
	}, c.log)
	c.roster.Synced(c.player, now)

	c.worldSub, err = c.store.Subscribe(ctx, docstore.WorldPath(code))
	if err != nil {
		c.abandon(ctx, code)
		return fmt.Errorf("subscribe world: %w", err)
	}
	c.rosterSub, err = c.store.SubscribeCollection(ctx, docstore.PlayersPath(code))
	if err != nil {
		c.abandon(ctx, code)
		return fmt.Errorf("subscribe roster: %w", err)
	}

	wctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.outbox.Run(wctx)
	}()
	c.stopOut, c.outDone = cancel, done

	c.code, c.seed = code, seed
	c.paused, c.invOpen = false, false
	c.mining.Reset()
	c.state = StateInWorld
	c.log.Info("entered world", zap.String("world", code), zap.Stringer("spawn", c.spawn))
	c.redraw(g)
	return nil
}

// abandon undoes a partial enter.
func (c *Controller) abandon(ctx context.Context, code string) {
	if c.worldSub != nil {
		c.worldSub.Close()
	}
	c.worldSub, c.world, c.roster, c.outbox = nil, nil, nil, nil
	if err := c.store.Delete(ctx, docstore.PlayerPath(code, c.player.ID)); err != nil {
		c.log.Warn("remove player doc", zap.String("world", code), zap.Error(err))
	}
}

// Exit leaves the current world and returns to the menu.
func (c *Controller) Exit(ctx context.Context) error {
	if c.state != StateInWorld {
		return ErrWrongState
	}
	c.state = StateExiting
	code := c.code
	c.teardown(ctx, false)
	c.state = StateMenuSelect
	c.log.Info("left world", zap.String("world", code))
	return nil
}

// teardown closes both subscriptions, stops the outbox worker and removes
// the player document. Queued writes are flushed unless the world is gone.
func (c *Controller) teardown(ctx context.Context, evicted bool) {
	code := c.code
	c.code = ""
	if c.worldSub != nil {
		c.worldSub.Close()
		c.worldSub = nil
	}
	if c.rosterSub != nil {
		c.rosterSub.Close()
		c.rosterSub = nil
	}
	if c.stopOut != nil {
		c.stopOut()
		<-c.outDone
		c.stopOut, c.outDone = nil, nil
	}
	if c.outbox != nil {
		if evicted {
			for {
				if _, ok := c.outbox.TryNext(); !ok {
					break
				}
			}
		} else {
			c.outbox.Drain(ctx)
		}
		st := c.outbox.Stats()
		c.log.Debug("outbox closed",
			zap.Int64("applied", st.Applied),
			zap.Int64("dropped", st.Dropped),
			zap.Int64("failed", st.Failed),
		)
	}
	if err := c.store.Delete(ctx, docstore.PlayerPath(code, c.player.ID)); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		c.log.Warn("remove player doc", zap.String("world", code), zap.Error(err))
	}
	c.world, c.roster, c.outbox = nil, nil, nil
	c.paused, c.invOpen = false, false
	c.mining.Reset()
}

func (c *Controller) evict() {
	code := c.code
	c.state = StateExiting
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.tun.Sync.WriteTimeoutMs)*time.Millisecond)
	defer cancel()
	c.teardown(ctx, true)
	c.state = StateMenuSelect
	c.log.Warn("world removed by host", zap.String("world", code))
	c.notify(Notice{Kind: NoticeEvicted, World: code, Message: "the host closed this world"})
}

func (c *Controller) notify(n Notice) {
	if c.cfg.OnNotice != nil {
		c.cfg.OnNotice(n)
	}
}

func (c *Controller) redraw(g *grid.Grid) {
	if c.cfg.OnRedraw != nil {
		c.cfg.OnRedraw(g)
	}
}

// TogglePause flips the pause overlay.
func (c *Controller) TogglePause() bool {
	if c.state != StateInWorld {
		return false
	}
	c.paused = !c.paused
	if c.paused {
		c.mining.Reset()
	}
	return c.paused
}

func (c *Controller) ToggleInventory() bool {
	if c.state != StateInWorld || c.paused {
		return false
	}
	c.invOpen = !c.invOpen
	if c.invOpen {
		c.mining.Reset()
	}
	return c.invOpen
}
