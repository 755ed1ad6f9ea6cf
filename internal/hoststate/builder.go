// Package hoststate turns what the host knows about the player into the
// JSON-ready maps carried by telemetry_update and state_response.
package hoststate

import (
	"math"

	"automc/client/internal/host"
)

// Settings is the read side of the settings store used for the
// "settings" key of a full snapshot.
type Settings interface {
	Snapshot() map[string]any
}

type Builder struct {
	state    host.StateProvider
	settings Settings
}

func NewBuilder(state host.StateProvider, settings Settings) *Builder {
	return &Builder{state: state, settings: settings}
}

// Telemetry returns the heartbeat fields. ok is false while no world is
// loaded, in which case nothing should be sent.
func (b *Builder) Telemetry() (map[string]any, bool) {
	p, ok := b.state.Player()
	if !ok {
		return nil, false
	}
	return telemetryFields(p), true
}

// Build returns the full state used to answer state_request. Outside a
// world it carries only in_world=false and the settings.
func (b *Builder) Build() map[string]any {
	p, ok := b.state.Player()
	out := map[string]any{"in_world": ok}
	if ok {
		for k, v := range telemetryFields(p) {
			out[k] = v
		}
		out["player_uuid"] = p.UUID
		out["name"] = p.Name
		out["hotbar_slot"] = p.HotbarSlot
		if p.Biome != "" {
			out["biome"] = p.Biome
		}
		if p.LookingAt != nil {
			out["looking_at"] = []int{p.LookingAt[0], p.LookingAt[1], p.LookingAt[2]}
		}
	}
	if b.settings != nil {
		out["settings"] = b.settings.Snapshot()
	}
	return out
}

// Select keeps only the requested keys. An empty selector returns full
// unchanged; keys that full does not carry are omitted.
func Select(full map[string]any, selector []string) map[string]any {
	if len(selector) == 0 {
		return full
	}
	out := make(map[string]any, len(selector))
	for _, k := range selector {
		if v, ok := full[k]; ok {
			out[k] = v
		}
	}
	return out
}

func telemetryFields(p host.PlayerState) map[string]any {
	return map[string]any{
		"pos":        []float64{round2(p.Pos[0]), round2(p.Pos[1]), round2(p.Pos[2])},
		"dim":        p.Dim,
		"yaw":        p.Yaw,
		"pitch":      p.Pitch,
		"health":     p.Health,
		"hunger":     p.Hunger,
		"saturation": p.Saturation,
		"air":        p.Air,
		"xp_level":   p.XPLevel,
		"time":       p.Time,
		"inventory":  inventoryEntries(p.Inventory),
	}
}

type inventoryEntry struct {
	Slot  int    `json:"slot"`
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func inventoryEntries(inv []host.ItemStack) []inventoryEntry {
	out := make([]inventoryEntry, 0, len(inv))
	for i, s := range inv {
		if s.Empty() {
			continue
		}
		out = append(out, inventoryEntry{Slot: i, ID: s.ID, Count: s.Count})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
