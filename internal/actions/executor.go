package actions

import (
	"log/slog"
	"regexp"
	"strings"

	"automc/client/internal/automation"
	"automc/client/internal/host"
	"automc/client/internal/logging"
	"automc/client/internal/protocol"
)

const (
	OpCraft  = "craft"
	OpEnsure = "ensure"

	EnsureCraftingTableNearby = "crafting_table_nearby"
	EnsureFurnaceNearby       = "furnace_nearby"

	contextCraftingTable = "crafting_table"
	nearRadius           = 8
)

var (
	recipeIDPattern = regexp.MustCompile(`^[a-z0-9_.-]+:[a-z0-9_./-]+$`)
	toolSuffixes    = []string{"_pickaxe", "_sword", "_axe", "_shovel", "_hoe"}
	ensureBlocks    = map[string]string{
		EnsureCraftingTableNearby: "minecraft:crafting_table",
		EnsureFurnaceNearby:       "minecraft:furnace",
	}
)

type Reporter interface {
	Report(actionID, status, note string)
}

type Deps struct {
	State    host.StateProvider
	Screens  host.ScreenProvider
	Blocks   host.BlockInteractor
	Crafter  *automation.Crafter
	Queue    *automation.Queue
	Reporter Reporter
	Logger   *slog.Logger
}

// Executor runs structured (mod_native) action requests on the tick
// goroutine and reports every outcome through the Reporter.
type Executor struct {
	deps   Deps
	logger *slog.Logger
}

func NewExecutor(deps Deps) *Executor {
	return &Executor{deps: deps, logger: logging.Module(deps.Logger, "actions")}
}

func (e *Executor) Execute(req protocol.ActionRequest) {
	e.logger.Info("action_request", "action_id", req.ActionID, "mode", req.Mode, "op", req.Op)
	switch req.Op {
	case OpCraft:
		e.craft(req)
	case OpEnsure:
		e.ensure(req)
	default:
		e.deps.Reporter.Report(req.ActionID, protocol.StatusSkipped, "mod_native not implemented: "+req.Op)
	}
}

func (e *Executor) craft(req protocol.ActionRequest) {
	id, count := req.ActionID, req.Count
	if strings.TrimSpace(req.Recipe) == "" || count <= 0 {
		e.deps.Reporter.Report(id, protocol.StatusFail, "invalid recipe/count")
		return
	}
	if _, ok := e.deps.State.Player(); !ok {
		e.deps.Reporter.Report(id, protocol.StatusFail, "no world")
		return
	}
	recipe, ok := NormalizeRecipeID(req.Recipe)
	if !ok {
		e.deps.Reporter.Report(id, protocol.StatusFail, "bad recipe id")
		return
	}

	switch {
	case e.deps.Screens.CraftingTableOpen():
		e.report(id, e.deps.Crafter.Craft(automation.Grid3x3, recipe, count))
	case e.deps.Screens.InventoryScreenOpen():
		if req.Context == contextCraftingTable {
			e.deps.Queue.Enqueue(automation.Request{ActionID: id, RecipeID: recipe, Count: count})
			return
		}
		if isTool(recipe) || !automation.Supports(automation.Grid2x2, recipe) {
			e.deps.Reporter.Report(id, protocol.StatusSkipped, "craft requires 3x3 context")
			return
		}
		e.report(id, e.deps.Crafter.Craft(automation.Grid2x2, recipe, count))
	default:
		e.deps.Reporter.Report(id, protocol.StatusSkipped, "craft screen not supported")
	}
}

func (e *Executor) ensure(req protocol.ActionRequest) {
	block, ok := ensureBlocks[req.Ensure]
	if !ok {
		e.deps.Reporter.Report(req.ActionID, protocol.StatusSkipped, "unknown ensure: "+req.Ensure)
		return
	}
	if e.deps.Blocks.InteractNearby(block, nearRadius) {
		e.deps.Reporter.Report(req.ActionID, protocol.StatusOK, "")
		return
	}
	if e.deps.Blocks.PlaceFromHotbar(block) && e.deps.Blocks.InteractNearby(block, nearRadius) {
		e.deps.Reporter.Report(req.ActionID, protocol.StatusOK, "placed from hotbar")
		return
	}
	e.deps.Reporter.Report(req.ActionID, protocol.StatusFail, strings.TrimPrefix(block, "minecraft:")+" not found nearby")
}

func (e *Executor) report(actionID string, res automation.Result) {
	e.deps.Reporter.Report(actionID, res.Status, res.Note)
}

// NormalizeRecipeID lower-cases id, adds the default namespace and checks
// the namespace:path shape.
func NormalizeRecipeID(id string) (string, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if !strings.Contains(id, ":") {
		id = "minecraft:" + id
	}
	return id, recipeIDPattern.MatchString(id)
}

func isTool(recipe string) bool {
	for _, s := range toolSuffixes {
		if strings.HasSuffix(recipe, s) {
			return true
		}
	}
	return false
}
