package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"acre.game/internal/config"
	"acre.game/internal/identity"
	"acre.game/internal/logging"
	"acre.game/internal/persistence/docstore/backend"
	"acre.game/internal/persistence/snapshot"
	"acre.game/internal/scripting"
	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/frame"
	"acre.game/internal/sim/session"
	"acre.game/internal/sim/sync/worldsync"
	"acre.game/internal/sim/tuning"
	"acre.game/internal/sim/world/kernel/model"
	"acre.game/internal/transport/ws"
)

var errFramesDone = errors.New("frame budget reached")

func main() {
	var (
		configPath = flag.String("config", "acre.toml", "path to the TOML config (defaults apply when absent)")
		name       = flag.String("name", "bot", "display name")
		avatar     = flag.String("avatar", "male", "avatar: male, female, alien, skeleton, zombie or gnome")
		join       = flag.String("join", "", "world code to join (hosts a new world when empty)")
		seed       = flag.Int64("seed", 0, "world seed when hosting (0 = random)")
		script     = flag.String("script", "", "Lua script defining on_tick(state)")
		frames     = flag.Int("frames", 0, "stop after this many frames (0 = until interrupted)")
		loadPath   = flag.String("load", "", "host the world stored in this snapshot file")
		savePath   = flag.String("save", "", "write the world to this snapshot file before leaving")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log, options{
		name:     *name,
		avatar:   *avatar,
		join:     *join,
		seed:     *seed,
		script:   *script,
		frames:   *frames,
		loadPath: *loadPath,
		savePath: *savePath,
	}); err != nil {
		log.Fatal("bot stopped", zap.Error(err))
	}
}

type options struct {
	name, avatar, join string
	seed               int64
	script             string
	frames             int
	loadPath, savePath string
}

func run(cfg *config.Config, log *zap.Logger, opts options) error {
	ctx, cancel := signalContext()
	defer cancel()

	tun := tuning.Defaults()
	if p := strings.TrimSpace(cfg.Game.TuningPath); p != "" {
		t, err := tuning.Load(p)
		if err != nil {
			return err
		}
		tun = t
	}
	av, err := model.ParseAvatar(opts.avatar)
	if err != nil {
		return err
	}

	id, err := identity.Anonymous{}.SignIn(ctx)
	if err != nil {
		return err
	}
	store, err := backend.Open(ctx, cfg.Store, ws.DialOptions{ClientName: opts.name, SessionID: id.ID}, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctrl := session.New(session.Config{
		Store:    store,
		Identity: id,
		Tuning:   tun,
		Seed:     opts.seed,
		Log:      log,
		OnNotice: func(n session.Notice) {
			log.Warn("notice", zap.String("world", n.World), zap.String("message", n.Message))
		},
	})
	if err := ctrl.ChooseCharacter(av, opts.name); err != nil {
		return err
	}

	switch {
	case opts.loadPath != "":
		snap, err := snapshot.ReadSnapshot(opts.loadPath)
		if err != nil {
			return fmt.Errorf("read snapshot %s: %w", opts.loadPath, err)
		}
		g, err := snapshot.Restore(snap)
		if err != nil {
			return fmt.Errorf("restore snapshot %s: %w", opts.loadPath, err)
		}
		if _, err := ctrl.HostFrom(ctx, g, snap.Seed); err != nil {
			return err
		}
	case opts.join != "":
		if err := ctrl.Join(ctx, opts.join); err != nil {
			return err
		}
	default:
		if _, err := ctrl.Host(ctx); err != nil {
			return err
		}
	}
	log.Info("in world", zap.String("world", ctrl.Code()), zap.String("player", ctrl.Player().Name))

	var eng *scripting.Engine
	if opts.script != "" {
		eng = scripting.NewEngine(log)
		defer eng.Close()
		if err := eng.LoadFile(opts.script); err != nil {
			return err
		}
	}

	n := 0
	loop := frame.NewLoop(cfg.Game.FrameRate)
	err = loop.Run(ctx, func(dt float64) error {
		n++
		in := session.Input{}
		if eng != nil {
			in = drive(ctrl, eng, n)
		}
		if err := ctrl.Tick(dt, in); err != nil {
			return err
		}
		if opts.frames > 0 && n >= opts.frames {
			return errFramesDone
		}
		return nil
	})
	switch {
	case errors.Is(err, worldsync.ErrWorldDeleted):
		log.Warn("world closed by host", zap.Int("frames", n))
		return nil
	case errors.Is(err, errFramesDone), errors.Is(err, context.Canceled):
	default:
		return err
	}

	if opts.savePath != "" {
		snap := snapshot.Capture(ctrl.Code(), ctrl.Seed(), ctrl.Grid())
		if err := snapshot.WriteSnapshot(opts.savePath, snap); err != nil {
			log.Error("save snapshot", zap.String("path", opts.savePath), zap.Error(err))
		} else {
			log.Info("saved world", zap.String("path", opts.savePath), zap.String("world", ctrl.Code()))
		}
	}

	exitCtx, cancelExit := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExit()
	return ctrl.Exit(exitCtx)
}

// drive asks the script for this frame's input and applies its instant
// actions.
func drive(ctrl *session.Controller, eng *scripting.Engine, n int) session.Input {
	p := ctrl.Player()
	cx, cy := ctrl.PlayerCell()
	eng.SetTerrain(ctrl.Grid())
	act, err := eng.OnTick(scripting.State{
		Frame:     n,
		X:         p.Pos.X,
		Y:         p.Pos.Y,
		CellX:     cx,
		CellY:     cy,
		Grounded:  p.Grounded,
		Health:    p.Health,
		Selected:  p.Selected,
		Peers:     len(ctrl.Peers()),
		Paused:    ctrl.Paused(),
		Inventory: p.Inventory.Counts(),
	})
	if err != nil {
		return session.Input{}
	}
	if act.Select != nil {
		ctrl.SelectSlot(*act.Select)
	}
	if act.Craft != catalogs.ItemNone {
		ctrl.Craft(act.Craft)
	}
	return act.Input
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
