package host

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

type screenKind int

const (
	screenNone screenKind = iota
	screenInventory
	screenCrafting
	screenContainer
)

const (
	playerInventorySize = 36
	hotbarSize          = 9
)

// SubmittedChat is one line handed to the chat primitive.
type SubmittedChat struct {
	Text  string
	Route Route
}

// Click records one slot operation.
type Click struct {
	Slot   int
	Button int
	Action ClickAction
}

type HeadlessOptions struct {
	PlayerUUID string
	PlayerName string
	// Out receives HUD and chat lines. Nil discards them.
	Out io.Writer
}

// Headless is an in-memory host. It simulates just enough of a game client
// for the bridge to run without one: a player with an inventory, handled
// screens with a crafting grid, nearby blocks, and chat.
//
// All methods are safe for concurrent use.
type Headless struct {
	mu sync.Mutex

	out     io.Writer
	player  PlayerState
	inWorld bool

	screen     screenKind
	container  Container
	grid       [9]ItemStack
	cursor     ItemStack
	nextSyncID int
	screenGen  uint64

	nearby map[string]int

	hud    []string
	chat   []SubmittedChat
	clicks []Click

	onGameMessage func(string)
}

func NewHeadless(opts HeadlessOptions) *Headless {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Headless{
		out:     out,
		inWorld: true,
		player: PlayerState{
			UUID:       opts.PlayerUUID,
			Name:       opts.PlayerName,
			Pos:        [3]float64{0, 64, 0},
			Dim:        "minecraft:overworld",
			Health:     20,
			Hunger:     20,
			Saturation: 5,
			Air:        300,
			Biome:      "minecraft:plains",
			Inventory:  make([]ItemStack, playerInventorySize),
		},
		nextSyncID: 1,
		nearby:     map[string]int{},
	}
}

func (h *Headless) Player() (PlayerState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inWorld {
		return PlayerState{}, false
	}
	p := h.player
	p.Inventory = append([]ItemStack(nil), h.player.Inventory...)
	if h.screen == screenContainer && h.container.HasPos {
		pos := h.container.Pos
		p.LookingAt = &pos
	}
	return p, true
}

func (h *Headless) OpenContainer() (Container, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.screen != screenContainer {
		return Container{}, false
	}
	c := h.container
	c.Slots = append([]ItemStack(nil), h.container.Slots...)
	return c, true
}

func (h *Headless) CraftingTableOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.screen == screenCrafting
}

// InventoryScreenOpen is true for the player inventory screen and for no
// screen at all, matching how the 2x2 grid is reachable in both cases.
func (h *Headless) InventoryScreenOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.screen == screenInventory || h.screen == screenNone
}

// ScreenGeneration increases every time a handled screen opens.
func (h *Headless) ScreenGeneration() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.screenGen
}

func (h *Headless) PlayerInventory() []ItemStack {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ItemStack(nil), h.player.Inventory...)
}

func (h *Headless) ClickSlot(slot, button int, action ClickAction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clicks = append(h.clicks, Click{Slot: slot, Button: button, Action: action})

	if action == ClickQuickMove {
		if slot == 0 && (h.screen == screenCrafting || h.screen == screenInventory || h.screen == screenNone) {
			h.collectResultLocked()
		}
		return
	}
	target := h.slotRefLocked(slot)
	if target == nil {
		return
	}
	if button == 1 {
		h.rightClickLocked(target)
		return
	}
	h.leftClickLocked(target)
}

func (h *Headless) SubmitChat(text string, route Route) {
	h.mu.Lock()
	if !h.inWorld {
		h.mu.Unlock()
		return
	}
	h.chat = append(h.chat, SubmittedChat{Text: text, Route: route})
	name := h.player.Name
	h.mu.Unlock()
	fmt.Fprintf(h.out, "<%s> %s\n", name, text)
}

func (h *Headless) ShowLocal(text string) {
	h.mu.Lock()
	h.hud = append(h.hud, text)
	h.mu.Unlock()
	fmt.Fprintf(h.out, "[hud] %s\n", text)
}

func (h *Headless) InteractNearby(block string, radius int) bool {
	block = normalizeID(block)
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inWorld {
		return false
	}
	dist, ok := h.nearby[block]
	if !ok || dist > radius {
		return false
	}
	switch block {
	case "minecraft:crafting_table":
		h.openLocked(screenCrafting)
	case "minecraft:furnace":
		h.container = Container{Kind: "furnace", Dim: h.player.Dim, Pos: h.blockPosLocked(dist), HasPos: true, Slots: make([]ItemStack, 3)}
		h.openLocked(screenContainer)
	}
	return true
}

func (h *Headless) PlaceFromHotbar(item string) bool {
	item = normalizeID(item)
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inWorld {
		return false
	}
	for i := 0; i < hotbarSize; i++ {
		s := &h.player.Inventory[i]
		if s.Empty() || s.ID != item {
			continue
		}
		s.Count--
		if s.Count <= 0 {
			*s = ItemStack{}
		}
		h.player.HotbarSlot = i
		h.nearby[item] = 1
		return true
	}
	return false
}

// SetGameMessageListener registers the receiver of incoming game lines.
func (h *Headless) SetGameMessageListener(fn func(string)) {
	h.mu.Lock()
	h.onGameMessage = fn
	h.mu.Unlock()
}

// ReceiveGameMessage simulates a line arriving in the game chat.
func (h *Headless) ReceiveGameMessage(text string) {
	h.mu.Lock()
	fn := h.onGameMessage
	h.mu.Unlock()
	fmt.Fprintf(h.out, "%s\n", text)
	if fn != nil {
		fn(text)
	}
}

func (h *Headless) JoinWorld() {
	h.mu.Lock()
	h.inWorld = true
	h.mu.Unlock()
}

func (h *Headless) LeaveWorld() {
	h.mu.Lock()
	h.inWorld = false
	h.closeLocked()
	h.mu.Unlock()
}

func (h *Headless) InWorld() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inWorld
}

// Give adds items to the player inventory, hotbar first.
func (h *Headless) Give(id string, count int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addToInventoryLocked(ItemStack{ID: normalizeID(id), Count: count})
}

func (h *Headless) SetInventorySlot(index int, stack ItemStack) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= playerInventorySize {
		return
	}
	stack.ID = normalizeID(stack.ID)
	h.player.Inventory[index] = stack
}

func (h *Headless) OpenInventory() {
	h.mu.Lock()
	h.openLocked(screenInventory)
	h.mu.Unlock()
}

func (h *Headless) OpenCraftingTable() {
	h.mu.Lock()
	h.openLocked(screenCrafting)
	h.mu.Unlock()
}

// OpenStorage opens a container screen and returns its sync id.
func (h *Headless) OpenStorage(kind string, pos [3]int, size int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.container = Container{Kind: kind, Dim: h.player.Dim, Pos: pos, HasPos: true, Slots: make([]ItemStack, size)}
	h.openLocked(screenContainer)
	return h.container.SyncID
}

func (h *Headless) SetContainerSlot(index int, stack ItemStack) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.screen != screenContainer || index < 0 || index >= len(h.container.Slots) {
		return false
	}
	stack.ID = normalizeID(stack.ID)
	h.container.Slots[index] = stack
	return true
}

func (h *Headless) CloseScreen() {
	h.mu.Lock()
	h.closeLocked()
	h.mu.Unlock()
}

// SetNearby places (distance >= 0) or removes (distance < 0) a block near
// the player.
func (h *Headless) SetNearby(block string, distance int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	block = normalizeID(block)
	if distance < 0 {
		delete(h.nearby, block)
		return
	}
	h.nearby[block] = distance
}

func (h *Headless) HUDLines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.hud...)
}

func (h *Headless) SubmittedChat() []SubmittedChat {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]SubmittedChat(nil), h.chat...)
}

func (h *Headless) Clicks() []Click {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Click(nil), h.clicks...)
}

func (h *Headless) openLocked(kind screenKind) {
	h.returnGridLocked()
	h.screen = kind
	if kind != screenContainer {
		h.container = Container{}
	}
	h.container.SyncID = h.nextSyncID
	h.nextSyncID++
	h.screenGen++
}

func (h *Headless) closeLocked() {
	h.returnGridLocked()
	h.screen = screenNone
	h.container = Container{}
}

// returnGridLocked puts grid and cursor contents back into the inventory,
// as closing a crafting screen does.
func (h *Headless) returnGridLocked() {
	for i := range h.grid {
		if !h.grid[i].Empty() {
			h.addToInventoryLocked(h.grid[i])
			h.grid[i] = ItemStack{}
		}
	}
	if !h.cursor.Empty() {
		h.addToInventoryLocked(h.cursor)
		h.cursor = ItemStack{}
	}
}

func (h *Headless) blockPosLocked(dist int) [3]int {
	return [3]int{int(h.player.Pos[0]) + dist, int(h.player.Pos[1]), int(h.player.Pos[2])}
}

// slotRefLocked maps a handler slot index on the open screen to storage.
func (h *Headless) slotRefLocked(slot int) *ItemStack {
	inv := h.player.Inventory
	switch h.screen {
	case screenNone, screenInventory:
		switch {
		case slot >= 1 && slot <= 4:
			return &h.grid[slot-1]
		case slot >= 9 && slot <= 35:
			return &inv[slot]
		case slot >= 36 && slot <= 44:
			return &inv[slot-36]
		}
	case screenCrafting:
		switch {
		case slot >= 1 && slot <= 9:
			return &h.grid[slot-1]
		case slot >= 10 && slot <= 36:
			return &inv[slot-1]
		case slot >= 37 && slot <= 45:
			return &inv[slot-37]
		}
	case screenContainer:
		n := len(h.container.Slots)
		switch {
		case slot >= 0 && slot < n:
			return &h.container.Slots[slot]
		case slot >= n && slot < n+27:
			return &inv[slot-n+9]
		case slot >= n+27 && slot < n+36:
			return &inv[slot-n-27]
		}
	}
	return nil
}

func (h *Headless) leftClickLocked(target *ItemStack) {
	switch {
	case h.cursor.Empty():
		h.cursor, *target = *target, ItemStack{}
	case target.Empty():
		*target, h.cursor = h.cursor, ItemStack{}
	case target.ID == h.cursor.ID:
		target.Count += h.cursor.Count
		h.cursor = ItemStack{}
	default:
		h.cursor, *target = *target, h.cursor
	}
}

func (h *Headless) rightClickLocked(target *ItemStack) {
	if h.cursor.Empty() {
		if target.Empty() {
			return
		}
		half := (target.Count + 1) / 2
		h.cursor = ItemStack{ID: target.ID, Count: half}
		target.Count -= half
		if target.Count == 0 {
			*target = ItemStack{}
		}
		return
	}
	if !target.Empty() && target.ID != h.cursor.ID {
		return
	}
	if target.Empty() {
		*target = ItemStack{ID: h.cursor.ID}
	}
	target.Count++
	h.cursor.Count--
	if h.cursor.Count == 0 {
		h.cursor = ItemStack{}
	}
}

func (h *Headless) collectResultLocked() {
	result, ok := simulatedResult(h.grid[:], h.screen == screenCrafting)
	if !ok {
		return
	}
	for i := range h.grid {
		if h.grid[i].Empty() {
			continue
		}
		h.grid[i].Count--
		if h.grid[i].Count == 0 {
			h.grid[i] = ItemStack{}
		}
	}
	h.addToInventoryLocked(result)
}

func (h *Headless) addToInventoryLocked(stack ItemStack) bool {
	if stack.Empty() {
		return false
	}
	inv := h.player.Inventory
	for i := range inv {
		if inv[i].ID == stack.ID && !inv[i].Empty() {
			inv[i].Count += stack.Count
			return true
		}
	}
	for i := range inv {
		if inv[i].Empty() {
			inv[i] = stack
			return true
		}
	}
	return false
}

// simulatedResult knows the handful of grid shapes the headless host needs
// to make crafting observable. It is a simulator, not a recipe book.
func simulatedResult(grid []ItemStack, table bool) (ItemStack, bool) {
	var logs, planks, sticks, other int
	for _, s := range grid {
		switch {
		case s.Empty():
		case strings.HasSuffix(s.ID, "_log") || strings.HasSuffix(s.ID, "_stem"):
			logs++
		case strings.HasSuffix(s.ID, "_planks"):
			planks++
		case s.ID == "minecraft:stick":
			sticks++
		default:
			other++
		}
	}
	switch {
	case other > 0:
		return ItemStack{}, false
	case logs == 1 && planks == 0 && sticks == 0:
		return ItemStack{ID: "minecraft:oak_planks", Count: 4}, true
	case logs == 0 && planks == 2 && sticks == 0:
		return ItemStack{ID: "minecraft:stick", Count: 4}, true
	case logs == 0 && planks == 4 && sticks == 0:
		return ItemStack{ID: "minecraft:crafting_table", Count: 1}, true
	case table && logs == 0 && planks == 3 && sticks == 2:
		return ItemStack{ID: "minecraft:wooden_pickaxe", Count: 1}, true
	}
	return ItemStack{}, false
}

func normalizeID(id string) string {
	id = strings.TrimSpace(strings.ToLower(id))
	if id != "" && !strings.Contains(id, ":") {
		id = "minecraft:" + id
	}
	return id
}
