package catalogs

import "fmt"

// ItemID is a dense item type identifier. Id 0 means "no item".
type ItemID uint8

const (
	ItemNone ItemID = iota
	ItemDirt
	ItemStone
	ItemSand
	ItemSandstone
	ItemCoal
	ItemIronOre
	ItemGoldOre
	ItemDiamond
	ItemWood
	ItemWoodPlanks
	ItemStick
	ItemCactus
	ItemCraftingTable
	ItemTorch
	ItemWoodPickaxe
	ItemStonePickaxe
	ItemIronPickaxe
	ItemWoodAxe
	ItemStoneAxe
	ItemWoodShovel
	ItemStoneShovel

	itemCount
)

type ToolFamily int

const (
	ToolFamilyNone ToolFamily = iota
	ToolFamilyPickaxe
	ToolFamilyAxe
	ToolFamilyShovel
)

type ItemDef struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	PlaceAs     TileID     `json:"place_as,omitempty"`
	Tool        ToolFamily `json:"tool,omitempty"`
	Power       float64    `json:"power,omitempty"`
}

func (d ItemDef) Placeable() bool { return d.PlaceAs != TileAir }

var items = [itemCount]ItemDef{
	ItemNone:          {Name: "none", DisplayName: "Nothing"},
	ItemDirt:          {Name: "dirt", DisplayName: "Dirt", PlaceAs: TileDirt},
	ItemStone:         {Name: "stone", DisplayName: "Stone", PlaceAs: TileStone},
	ItemSand:          {Name: "sand", DisplayName: "Sand", PlaceAs: TileSand},
	ItemSandstone:     {Name: "sandstone", DisplayName: "Sandstone", PlaceAs: TileSandstone},
	ItemCoal:          {Name: "coal", DisplayName: "Coal"},
	ItemIronOre:       {Name: "iron_ore", DisplayName: "Iron Ore"},
	ItemGoldOre:       {Name: "gold_ore", DisplayName: "Gold Ore"},
	ItemDiamond:       {Name: "diamond", DisplayName: "Diamond"},
	ItemWood:          {Name: "wood", DisplayName: "Wood", PlaceAs: TileLog},
	ItemWoodPlanks:    {Name: "wood_planks", DisplayName: "Wood Planks", PlaceAs: TilePlanks},
	ItemStick:         {Name: "stick", DisplayName: "Stick"},
	ItemCactus:        {Name: "cactus", DisplayName: "Cactus", PlaceAs: TileCactus},
	ItemCraftingTable: {Name: "crafting_table", DisplayName: "Crafting Table", PlaceAs: TileCraftingTable},
	ItemTorch:         {Name: "torch", DisplayName: "Torch", PlaceAs: TileTorch},
	ItemWoodPickaxe:   {Name: "wood_pickaxe", DisplayName: "Wooden Pickaxe", Tool: ToolFamilyPickaxe, Power: 2},
	ItemStonePickaxe:  {Name: "stone_pickaxe", DisplayName: "Stone Pickaxe", Tool: ToolFamilyPickaxe, Power: 3},
	ItemIronPickaxe:   {Name: "iron_pickaxe", DisplayName: "Iron Pickaxe", Tool: ToolFamilyPickaxe, Power: 5},
	ItemWoodAxe:       {Name: "wood_axe", DisplayName: "Wooden Axe", Tool: ToolFamilyAxe, Power: 2},
	ItemStoneAxe:      {Name: "stone_axe", DisplayName: "Stone Axe", Tool: ToolFamilyAxe, Power: 3},
	ItemWoodShovel:    {Name: "wood_shovel", DisplayName: "Wooden Shovel", Tool: ToolFamilyShovel, Power: 2},
	ItemStoneShovel:   {Name: "stone_shovel", DisplayName: "Stone Shovel", Tool: ToolFamilyShovel, Power: 3},
}

var itemsByName = func() map[string]ItemID {
	m := make(map[string]ItemID, len(items))
	for i, d := range items {
		m[d.Name] = ItemID(i)
	}
	return m
}()

func Item(id ItemID) (ItemDef, bool) {
	if id == ItemNone || int(id) >= len(items) {
		return ItemDef{}, false
	}
	return items[id], true
}

func ItemByName(name string) (ItemID, bool) {
	id, ok := itemsByName[name]
	if !ok || id == ItemNone {
		return ItemNone, false
	}
	return id, true
}

// ItemCount is the number of registered ids including ItemNone.
func ItemCount() int { return len(items) }

func (id ItemID) String() string {
	if int(id) < len(items) {
		return items[id].Name
	}
	return fmt.Sprintf("item(%d)", uint8(id))
}

// MarshalText lets item ids key JSON objects by name ("wood": 3).
func (id ItemID) MarshalText() ([]byte, error) {
	if id == ItemNone || int(id) >= len(items) {
		return nil, fmt.Errorf("unknown item id %d", uint8(id))
	}
	return []byte(items[id].Name), nil
}

func (id *ItemID) UnmarshalText(b []byte) error {
	v, ok := ItemByName(string(b))
	if !ok {
		return fmt.Errorf("unknown item %q", string(b))
	}
	*id = v
	return nil
}
