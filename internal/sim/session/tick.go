package session

import (
	"errors"

	"go.uber.org/zap"

	"acre.game/internal/persistence/docstore"
	"acre.game/internal/sim/frame"
	"acre.game/internal/sim/sync/worldsync"
	"acre.game/internal/sim/world/feature/movement/kinematics"
	"acre.game/internal/sim/world/feature/survival/respawn"
)

func (c *Controller) buildRunner() *frame.Runner {
	r := frame.NewRunner()
	r.Register(frame.Func{P: frame.PhaseSync, Fn: c.syncWorld})
	r.Register(frame.Func{P: frame.PhaseSync, Fn: c.syncRoster})
	r.Register(frame.Func{P: frame.PhaseSimulate, Fn: c.simulate})
	r.Register(frame.Func{P: frame.PhaseSimulate, Fn: c.act})
	r.Register(frame.Func{P: frame.PhaseOutput, Fn: c.push})
	r.SkipWhen(func(p frame.Phase) bool {
		return p != frame.PhaseSync && (c.paused || c.invOpen)
	})
	return r
}

// Tick advances one frame. Outside a world it does nothing. When the shared
// world has been deleted the controller returns to the menu and the error
// wraps worldsync.ErrWorldDeleted.
func (c *Controller) Tick(dt float64, in Input) error {
	if c.state != StateInWorld {
		return nil
	}
	c.input = in
	err := c.runner.Tick(dt)
	if errors.Is(err, worldsync.ErrWorldDeleted) {
		c.evict()
	}
	return err
}

func (c *Controller) syncWorld(float64) error {
	if c.worldSub == nil {
		return nil
	}
	select {
	case ev, ok := <-c.worldSub.C():
		if !ok {
			c.log.Warn("world subscription ended", zap.String("world", c.code))
			c.worldSub = nil
			return nil
		}
		if c.world == nil || ev.Path != docstore.WorldPath(c.code) {
			return nil
		}
		changed, err := c.world.ApplyEvent(ev)
		if errors.Is(err, worldsync.ErrWorldDeleted) {
			return err
		}
		if err != nil {
			c.log.Warn("remote world rejected", zap.Error(err))
			return nil
		}
		if changed && !c.inVoid() {
			kinematics.Depenetrate(&c.player.Body, c.kin, c.world.Grid(), c.world.Grid().Height())
		}
	default:
	}
	return nil
}

func (c *Controller) syncRoster(float64) error {
	if c.rosterSub == nil {
		return nil
	}
	select {
	case ev, ok := <-c.rosterSub.C():
		if !ok {
			c.log.Warn("roster subscription ended", zap.String("world", c.code))
			c.rosterSub = nil
			return nil
		}
		if c.roster == nil || ev.Path != docstore.PlayersPath(c.code) {
			return nil
		}
		c.roster.Apply(ev.Members, c.player)
	default:
	}
	return nil
}

func (c *Controller) simulate(dt float64) error {
	p := c.player
	g := c.world.Grid()
	kinematics.Step(&p.Body, c.input.Move, dt, c.kin, g)
	if c.inVoid() {
		c.respawn("fell out of the world")
		return nil
	}
	kinematics.Depenetrate(&p.Body, c.kin, g, g.Height())

	dmg := kinematics.ContactDamage(p.Pos, c.kin, g)
	if respawn.Hurt(p, dmg, c.tun.Player.DamageCooldown, dt) {
		c.respawn("died")
	}
	return nil
}

// inVoid reports whether the player has dropped past the bottom of the world
// by the respawn margin. Such a body must not be lifted back onto terrain.
func (c *Controller) inVoid() bool {
	h := float64(c.world.Grid().Height()) * c.kin.TileSize
	return respawn.Fell(c.player.Pos.Y, h, c.tun.Physics.RespawnMargin)
}

func (c *Controller) respawn(reason string) {
	g := c.world.Grid()
	c.spawn = respawn.SpawnPoint(g, c.kin.TileSize, c.kin.Width, c.kin.Height)
	respawn.Apply(c.player, c.spawn)
	c.mining.Reset()
	c.log.Info("respawned", zap.String("reason", reason), zap.Stringer("at", c.spawn))
	c.notify(Notice{Kind: NoticeRespawned, World: c.code, Message: reason})
}

func (c *Controller) act(dt float64) error {
	in := c.input
	if in.Mine != nil {
		c.Mine(in.Mine.X, in.Mine.Y, dt)
	} else {
		c.mining.Reset()
	}
	if in.Place != nil {
		c.Place(in.Place.X, in.Place.Y)
	}
	return nil
}

func (c *Controller) push(float64) error {
	c.roster.MaybePush(c.player)
	return nil
}
