package automation

import "strings"

// Grid is the crafting grid a screen exposes.
type Grid int

const (
	// Grid2x2 is the player inventory screen: result 0, grid 1..4,
	// main inventory 9..35, hotbar 36..44.
	Grid2x2 Grid = iota
	// Grid3x3 is the crafting table screen: result 0, grid 1..9,
	// main inventory 10..36, hotbar 37..45.
	Grid3x3
)

func (g Grid) String() string {
	if g == Grid3x3 {
		return "3x3"
	}
	return "2x2"
}

// HandlerSlot translates a player inventory index (0..8 hotbar, 9..35 main)
// to the handler slot index on a screen with this grid.
func (g Grid) HandlerSlot(playerIndex int) int {
	hotbarBase := 36
	mainOffset := 0
	if g == Grid3x3 {
		hotbarBase = 37
		mainOffset = 1
	}
	switch {
	case playerIndex >= 0 && playerIndex <= 8:
		return hotbarBase + playerIndex
	case playerIndex >= 9 && playerIndex <= 35:
		return playerIndex + mainOffset
	}
	return playerIndex
}

type input struct {
	match func(id string) bool
	cells []int
}

// layout is a fixed click pattern for one output on one grid. It only
// places items; the host decides what the grid produces.
type layout struct {
	item    string
	inputs  []input
	missing string
}

func isLog(id string) bool    { return strings.HasSuffix(id, "_log") || strings.HasSuffix(id, "_stem") }
func isPlanks(id string) bool { return strings.HasSuffix(id, "_planks") }
func isStick(id string) bool  { return id == "minecraft:stick" }

var layouts = map[Grid]map[string]layout{
	Grid2x2: {
		"minecraft:oak_planks": {
			item:    "oak_planks",
			inputs:  []input{{match: isLog, cells: []int{1}}},
			missing: "missing input: log",
		},
		"minecraft:stick": {
			item:    "stick",
			inputs:  []input{{match: isPlanks, cells: []int{1, 3}}},
			missing: "missing input: planks",
		},
		"minecraft:crafting_table": {
			item:    "crafting_table",
			inputs:  []input{{match: isPlanks, cells: []int{1, 2, 3, 4}}},
			missing: "missing input: planks",
		},
	},
	Grid3x3: {
		"minecraft:wooden_pickaxe": {
			item: "wooden_pickaxe",
			inputs: []input{
				{match: isPlanks, cells: []int{1, 2, 3}},
				{match: isStick, cells: []int{5, 8}},
			},
			missing: "missing inputs: planks or sticks",
		},
		"minecraft:oak_planks": {
			item:    "oak_planks",
			inputs:  []input{{match: isLog, cells: []int{1}}},
			missing: "missing input: log",
		},
		"minecraft:stick": {
			item:    "stick",
			inputs:  []input{{match: isPlanks, cells: []int{5, 8}}},
			missing: "missing input: planks",
		},
	},
}

// Supports reports whether a click layout exists for recipeID on grid.
func Supports(grid Grid, recipeID string) bool {
	_, ok := layouts[grid][recipeID]
	return ok
}
