package session

import (
	"math"

	"go.uber.org/zap"

	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/world/feature/movement/kinematics"
	"acre.game/internal/sim/world/feature/work/mining"
)

// playable is true when world input is accepted.
func (c *Controller) playable() bool {
	return c.state == StateInWorld && !c.paused && !c.invOpen
}

func (c *Controller) center() (float64, float64) {
	return c.player.Pos.X + c.kin.Width/2, c.player.Pos.Y + c.kin.Height/2
}

// PlayerCell is the cell under the centre of the player's box.
func (c *Controller) PlayerCell() (int, int) {
	cx, cy := c.center()
	return int(math.Floor(cx / c.kin.TileSize)), int(math.Floor(cy / c.kin.TileSize))
}

// InReach reports whether the centre of cell (x,y) is within reach of the
// player's centre.
func (c *Controller) InReach(x, y int) bool {
	if c.player == nil {
		return false
	}
	t := c.kin.TileSize
	cx, cy := c.center()
	dx := (float64(x)+0.5)*t - cx
	dy := (float64(y)+0.5)*t - cy
	r := float64(c.tun.Player.ReachTiles) * t
	return dx*dx+dy*dy <= r*r
}

// Break clears a cell and adds its drop to the inventory. It returns the tile
// that was removed.
func (c *Controller) Break(x, y int) (catalogs.TileID, bool) {
	if !c.playable() {
		return catalogs.TileAir, false
	}
	prev, ok := c.world.BreakTile(x, y)
	if !ok {
		return catalogs.TileAir, false
	}
	if def, ok := catalogs.Tile(prev); ok && def.Drop != catalogs.ItemNone {
		c.player.Inventory.Add(def.Drop, 1)
	}
	if c.mining.X == x && c.mining.Y == y {
		c.mining.Reset()
	}
	c.log.Debug("tile broken", zap.Int("x", x), zap.Int("y", y), zap.Stringer("tile", prev))
	return prev, true
}

func (c *Controller) breakTime(x, y int) float64 {
	id := c.world.Grid().TileAt(x, y)
	family := mining.ToolFamilyForTile(id)
	power := mining.BestToolPower(c.player.Inventory.Counts(), family, c.tun.Player.HandPower)
	return mining.BreakTime(id, power)
}

// Mine accumulates dt of work on (x,y) and breaks it once the tile's break
// time is reached. Changing target restarts the progress.
func (c *Controller) Mine(x, y int, dt float64) bool {
	if !c.playable() || !c.InReach(x, y) || c.world.Grid().TileAt(x, y) == catalogs.TileAir {
		c.mining.Reset()
		return false
	}
	if !c.mining.Advance(x, y, dt, c.breakTime(x, y)) {
		return false
	}
	c.mining.Reset()
	_, ok := c.Break(x, y)
	return ok
}

// Place puts one item from the selected hotbar slot into an empty cell in
// reach. Solid tiles may not be placed inside the player's own box.
func (c *Controller) Place(x, y int) bool {
	if !c.playable() || !c.InReach(x, y) {
		return false
	}
	slot, ok := c.player.SelectedSlot()
	if !ok {
		return false
	}
	def, ok := catalogs.Item(slot.Item)
	if !ok || !def.Placeable() {
		return false
	}
	if catalogs.Solid(def.PlaceAs) && kinematics.OverlapsCell(c.player.Pos, c.kin, x, y) {
		return false
	}
	if c.world.Grid().TileAt(x, y) != catalogs.TileAir {
		return false
	}
	if !c.player.Inventory.Remove(slot.Item, 1) {
		return false
	}
	if !c.world.PlaceTile(x, y, def.PlaceAs) {
		c.player.Inventory.Add(slot.Item, 1)
		return false
	}
	return true
}

// StationNearby reports whether a crafting table is within the station
// radius of the player.
func (c *Controller) StationNearby() bool {
	if c.world == nil {
		return false
	}
	x, y := c.PlayerCell()
	return c.world.Grid().Near(x, y, c.tun.Player.StationRadius, catalogs.TileCraftingTable)
}

// Craft applies the recipe for item once. Crafting works with the inventory
// open but not while paused.
func (c *Controller) Craft(item catalogs.ItemID) bool {
	if c.state != StateInWorld || c.paused {
		return false
	}
	r, ok := catalogs.RecipeFor(item)
	if !ok {
		return false
	}
	if !c.player.Inventory.Craft(r, c.StationNearby()) {
		return false
	}
	c.log.Debug("crafted", zap.Stringer("item", item), zap.Int("quantity", r.Quantity))
	return true
}

func (c *Controller) SelectSlot(i int) bool {
	if c.state != StateInWorld || c.paused {
		return false
	}
	return c.player.Select(i)
}
