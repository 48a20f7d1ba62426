package catalogs

import "fmt"

// TileID is a dense tile type identifier. Id 0 is air.
type TileID uint8

const (
	TileAir TileID = iota
	TileGrass
	TileDirt
	TileStone
	TileSand
	TileSandstone
	TileCoalOre
	TileIronOre
	TileGoldOre
	TileDiamondOre
	TileLog
	TileLeaves
	TileCactus
	TilePlanks
	TileCraftingTable
	TileTorch

	tileCount
)

// TileBoundary is returned for coordinates outside the grid. It is never stored.
const TileBoundary TileID = 0xFF

type Sound string

const (
	SoundNone  Sound = ""
	SoundDirt  Sound = "dirt"
	SoundStone Sound = "stone"
	SoundSand  Sound = "sand"
	SoundWood  Sound = "wood"
	SoundLeaf  Sound = "leaf"
)

type TileDef struct {
	Name     string  `json:"name"`
	Solid    bool    `json:"solid"`
	Hardness float64 `json:"hardness"`
	Damage   int     `json:"damage,omitempty"`
	Drop     ItemID  `json:"drop,omitempty"`
	Sound    Sound   `json:"sound,omitempty"`
}

var tiles = [tileCount]TileDef{
	TileAir:           {Name: "air"},
	TileGrass:         {Name: "grass", Solid: true, Hardness: 0.6, Drop: ItemDirt, Sound: SoundDirt},
	TileDirt:          {Name: "dirt", Solid: true, Hardness: 0.5, Drop: ItemDirt, Sound: SoundDirt},
	TileStone:         {Name: "stone", Solid: true, Hardness: 1.5, Drop: ItemStone, Sound: SoundStone},
	TileSand:          {Name: "sand", Solid: true, Hardness: 0.5, Drop: ItemSand, Sound: SoundSand},
	TileSandstone:     {Name: "sandstone", Solid: true, Hardness: 1.2, Drop: ItemSandstone, Sound: SoundStone},
	TileCoalOre:       {Name: "coal_ore", Solid: true, Hardness: 2.0, Drop: ItemCoal, Sound: SoundStone},
	TileIronOre:       {Name: "iron_ore", Solid: true, Hardness: 3.0, Drop: ItemIronOre, Sound: SoundStone},
	TileGoldOre:       {Name: "gold_ore", Solid: true, Hardness: 3.0, Drop: ItemGoldOre, Sound: SoundStone},
	TileDiamondOre:    {Name: "diamond_ore", Solid: true, Hardness: 4.0, Drop: ItemDiamond, Sound: SoundStone},
	TileLog:           {Name: "log", Hardness: 1.0, Drop: ItemWood, Sound: SoundWood},
	TileLeaves:        {Name: "leaves", Hardness: 0.2, Drop: ItemStick, Sound: SoundLeaf},
	TileCactus:        {Name: "cactus", Hardness: 0.4, Damage: 1, Drop: ItemCactus, Sound: SoundLeaf},
	TilePlanks:        {Name: "planks", Solid: true, Hardness: 1.0, Drop: ItemWoodPlanks, Sound: SoundWood},
	TileCraftingTable: {Name: "crafting_table", Hardness: 1.0, Drop: ItemCraftingTable, Sound: SoundWood},
	TileTorch:         {Name: "torch", Hardness: 0.1, Drop: ItemTorch, Sound: SoundWood},
}

var boundaryDef = TileDef{Name: "boundary", Solid: true}

// Tile returns the registry entry for id. Unknown ids report ok=false.
func Tile(id TileID) (TileDef, bool) {
	if id == TileBoundary {
		return boundaryDef, true
	}
	if int(id) >= len(tiles) {
		return TileDef{}, false
	}
	return tiles[id], true
}

// Registered reports whether id may be stored in a grid cell.
func Registered(id TileID) bool {
	return int(id) < len(tiles)
}

// Solid treats unknown ids as solid.
func Solid(id TileID) bool {
	def, ok := Tile(id)
	if !ok {
		return true
	}
	return def.Solid
}

func TileCount() int { return len(tiles) }

func (id TileID) String() string {
	if def, ok := Tile(id); ok {
		return def.Name
	}
	return fmt.Sprintf("tile(%d)", uint8(id))
}
