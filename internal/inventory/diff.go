package inventory

import "automc/client/internal/protocol"

// Diff compares two snapshots of the same container slot by slot.
//
// A slot that changed in place is reported as a single signed change: a
// non-negative count delta is an add carrying the new item id, a negative
// one is a remove carrying the old id. An item swapped for another with the
// same count is therefore an add of zero with the new id. Moves are never
// inferred.
func Diff(prev, next Snapshot) (adds, removes []protocol.SlotPayload) {
	adds = []protocol.SlotPayload{}
	removes = []protocol.SlotPayload{}

	for _, idx := range sortedSlots(next.Slots) {
		cur := next.Slots[idx]
		old, ok := prev.Slots[idx]
		if !ok {
			adds = append(adds, protocol.SlotPayload{Slot: idx, ID: cur.ID, Count: cur.Count})
			continue
		}
		if old == cur {
			continue
		}
		delta := cur.Count - old.Count
		if delta >= 0 {
			adds = append(adds, protocol.SlotPayload{Slot: idx, ID: cur.ID, Count: delta})
		} else {
			removes = append(removes, protocol.SlotPayload{Slot: idx, ID: old.ID, Count: -delta})
		}
	}
	for _, idx := range sortedSlots(prev.Slots) {
		if _, ok := next.Slots[idx]; ok {
			continue
		}
		old := prev.Slots[idx]
		removes = append(removes, protocol.SlotPayload{Slot: idx, ID: old.ID, Count: old.Count})
	}
	return adds, removes
}
