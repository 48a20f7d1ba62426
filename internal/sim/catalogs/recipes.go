package catalogs

import "sort"

type Recipe struct {
	Output   ItemID         `json:"output"`
	Inputs   map[ItemID]int `json:"inputs"`
	Quantity int            `json:"quantity"`
	Station  bool           `json:"station,omitempty"`
}

var recipes = map[ItemID]Recipe{
	ItemWoodPlanks:    {Output: ItemWoodPlanks, Inputs: map[ItemID]int{ItemWood: 1}, Quantity: 4},
	ItemStick:         {Output: ItemStick, Inputs: map[ItemID]int{ItemWoodPlanks: 2}, Quantity: 4},
	ItemCraftingTable: {Output: ItemCraftingTable, Inputs: map[ItemID]int{ItemWoodPlanks: 4}, Quantity: 1},
	ItemTorch:         {Output: ItemTorch, Inputs: map[ItemID]int{ItemCoal: 1, ItemStick: 1}, Quantity: 4},
	ItemSandstone:     {Output: ItemSandstone, Inputs: map[ItemID]int{ItemSand: 4}, Quantity: 1},
	ItemWoodPickaxe:   {Output: ItemWoodPickaxe, Inputs: map[ItemID]int{ItemWoodPlanks: 3, ItemStick: 2}, Quantity: 1, Station: true},
	ItemStonePickaxe:  {Output: ItemStonePickaxe, Inputs: map[ItemID]int{ItemStone: 3, ItemStick: 2}, Quantity: 1, Station: true},
	ItemIronPickaxe:   {Output: ItemIronPickaxe, Inputs: map[ItemID]int{ItemIronOre: 3, ItemCoal: 3, ItemStick: 2}, Quantity: 1, Station: true},
	ItemWoodAxe:       {Output: ItemWoodAxe, Inputs: map[ItemID]int{ItemWoodPlanks: 3, ItemStick: 2}, Quantity: 1, Station: true},
	ItemStoneAxe:      {Output: ItemStoneAxe, Inputs: map[ItemID]int{ItemStone: 3, ItemStick: 2}, Quantity: 1, Station: true},
	ItemWoodShovel:    {Output: ItemWoodShovel, Inputs: map[ItemID]int{ItemWoodPlanks: 1, ItemStick: 2}, Quantity: 1, Station: true},
	ItemStoneShovel:   {Output: ItemStoneShovel, Inputs: map[ItemID]int{ItemStone: 1, ItemStick: 2}, Quantity: 1, Station: true},
}

// RecipeFor returns the recipe producing out.
func RecipeFor(out ItemID) (Recipe, bool) {
	r, ok := recipes[out]
	if !ok {
		return Recipe{}, false
	}
	return r, true
}

// Recipes lists every recipe in ascending output order.
func Recipes() []Recipe {
	out := make([]Recipe, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Output < out[j].Output })
	return out
}
