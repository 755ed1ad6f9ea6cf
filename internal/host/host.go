// Package host declares the capabilities the bridge needs from the game
// client and ships a headless in-memory implementation of them.
package host

import "strings"

type ItemStack struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func (s ItemStack) Empty() bool {
	return s.ID == "" || s.Count <= 0
}

// PlayerState is what the host exposes about the local player while a
// world is loaded.
type PlayerState struct {
	UUID       string
	Name       string
	Pos        [3]float64
	Dim        string
	Yaw        float32
	Pitch      float32
	Health     int
	Hunger     int
	Saturation float64
	Air        int
	XPLevel    int
	Time       int64
	HotbarSlot int
	Biome      string
	// LookingAt is the targeted block, if any.
	LookingAt *[3]int
	// Inventory is indexed by player inventory slot: 0..8 hotbar, 9..35 main.
	Inventory []ItemStack
}

// Container describes the open handled screen.
type Container struct {
	SyncID int
	// Kind is the host's name for the screen handler, e.g. "chest".
	Kind   string
	Dim    string
	Pos    [3]int
	HasPos bool
	Slots  []ItemStack
}

type Route int

const (
	// RouteDirect submits the text as a normal chat line.
	RouteDirect Route = iota
	// RouteIntercepted submits through the input path other client mods
	// listen on, so their command prefixes are honored.
	RouteIntercepted
)

func (r Route) String() string {
	if r == RouteIntercepted {
		return "intercepted"
	}
	return "direct"
}

type ClickAction int

const (
	ClickPickup ClickAction = iota
	ClickQuickMove
)

type StateProvider interface {
	Player() (PlayerState, bool)
}

type ScreenProvider interface {
	OpenContainer() (Container, bool)
	CraftingTableOpen() bool
	InventoryScreenOpen() bool
}

type SlotClicker interface {
	ClickSlot(slot, button int, action ClickAction)
	PlayerInventory() []ItemStack
}

type ChatSubmitter interface {
	SubmitChat(text string, route Route)
}

type HUD interface {
	ShowLocal(text string)
}

type BlockInteractor interface {
	InteractNearby(block string, radius int) bool
	PlaceFromHotbar(item string) bool
}

// Host bundles every capability; the headless host implements it.
type Host interface {
	StateProvider
	ScreenProvider
	SlotClicker
	ChatSubmitter
	HUD
	BlockInteractor
}

var storageKinds = []string{"chest", "furnace", "smoker", "blastfurnace", "ender", "barrel", "shulker"}

// IsStorageContainer is the default eligibility predicate for inventory
// tracking. The player's own inventory screen never qualifies.
func IsStorageContainer(kind string) bool {
	n := strings.ToLower(strings.ReplaceAll(kind, "_", ""))
	if n == "" || strings.Contains(n, "playerinventory") {
		return false
	}
	for _, k := range storageKinds {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}
