package automation

import (
	"fmt"
	"log/slog"

	"automc/client/internal/host"
	"automc/client/internal/logging"
	"automc/client/internal/protocol"
)

// Result is the outcome of one craft request. Partial success (fewer made
// than requested) is still StatusOK.
type Result struct {
	Status string
	Note   string
	Made   int
}

// Crafter drives the crafting grid of the open screen through slot clicks.
type Crafter struct {
	clicker host.SlotClicker
	logger  *slog.Logger
}

func NewCrafter(clicker host.SlotClicker, logger *slog.Logger) *Crafter {
	return &Crafter{clicker: clicker, logger: logging.Module(logger, "crafter")}
}

// Craft repeats the layout for recipeID up to count times and stops early
// once an input runs out. Each repetition picks up a source stack, drops
// one item per grid cell, puts the remainder back and quick-moves the
// result out of slot 0.
func (c *Crafter) Craft(grid Grid, recipeID string, count int) Result {
	l, ok := layouts[grid][recipeID]
	if !ok {
		return Result{Status: protocol.StatusSkipped, Note: fmt.Sprintf("%s craft not supported for recipe", grid)}
	}
	made := 0
	for made < count {
		sources, ok := findSources(c.clicker.PlayerInventory(), l.inputs)
		if !ok {
			break
		}
		for i, in := range l.inputs {
			src := grid.HandlerSlot(sources[i])
			c.clicker.ClickSlot(src, 0, host.ClickPickup)
			for _, cell := range in.cells {
				c.clicker.ClickSlot(cell, 1, host.ClickPickup)
			}
			c.clicker.ClickSlot(src, 0, host.ClickPickup)
		}
		c.clicker.ClickSlot(0, 0, host.ClickQuickMove)
		made++
	}
	c.logger.Debug("craft finished", "recipe", recipeID, "grid", grid.String(), "requested", count, "made", made)
	if made == 0 {
		return Result{Status: protocol.StatusFail, Note: l.missing}
	}
	return Result{Status: protocol.StatusOK, Note: fmt.Sprintf("crafted %s x%d", l.item, made), Made: made}
}

// findSources picks, for each input, the first inventory stack that matches
// and holds enough items for its cells. Two inputs never share a stack.
func findSources(inv []host.ItemStack, inputs []input) ([]int, bool) {
	out := make([]int, len(inputs))
	used := map[int]bool{}
	for i, in := range inputs {
		out[i] = -1
		for idx, st := range inv {
			if st.Empty() || used[idx] || !in.match(st.ID) || st.Count < len(in.cells) {
				continue
			}
			out[i] = idx
			used[idx] = true
			break
		}
		if out[i] < 0 {
			return nil, false
		}
	}
	return out, true
}
