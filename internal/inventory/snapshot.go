package inventory

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	"automc/client/internal/host"
	"automc/client/internal/protocol"
)

// Key identifies one container in the world.
type Key struct {
	Dim string
	Pos [3]int
}

type SlotEntry struct {
	ID    string
	Count int
}

// Snapshot is the observed content of one container at one moment.
type Snapshot struct {
	Key           Key
	ContainerType string
	// Version is coarse (unix seconds) and never decreases for a Key.
	Version int64
	Hash    string
	Slots   map[int]SlotEntry
	TakenAt time.Time
}

// Build captures c. minVersion is the last version seen for the same key;
// the result never goes below it even if the wall clock steps back.
func Build(c host.Container, minVersion int64, now time.Time) Snapshot {
	version := now.Unix()
	if version < minVersion {
		version = minVersion
	}
	slots := make(map[int]SlotEntry, len(c.Slots))
	for i, st := range c.Slots {
		if st.Empty() {
			continue
		}
		slots[i] = SlotEntry{ID: st.ID, Count: st.Count}
	}
	return Snapshot{
		Key:           Key{Dim: c.Dim, Pos: c.Pos},
		ContainerType: c.Kind,
		Version:       version,
		Hash:          Hash(c.Dim, version, slots),
		Slots:         slots,
		TakenAt:       now,
	}
}

// Hash digests slots in index order so the host's enumeration order does
// not matter.
func Hash(dim string, version int64, slots map[int]SlotEntry) string {
	h := blake3.New()
	var buf [8]byte
	writeString := func(s string) {
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write([]byte(s))
	}
	writeInt := func(n int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		_, _ = h.Write(buf[:])
	}

	writeString(dim)
	writeInt(version)
	for _, idx := range sortedSlots(slots) {
		e := slots[idx]
		writeInt(int64(idx))
		writeString(e.ID)
		writeInt(int64(e.Count))
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

func (s Snapshot) Payload() protocol.ContainerPayload {
	out := protocol.ContainerPayload{
		Dim:           s.Key.Dim,
		Pos:           s.Key.Pos,
		ContainerType: s.ContainerType,
		Version:       s.Version,
		Hash:          s.Hash,
		TSISO:         protocol.Timestamp(s.TakenAt),
		Slots:         make([]protocol.SlotPayload, 0, len(s.Slots)),
	}
	for _, idx := range sortedSlots(s.Slots) {
		e := s.Slots[idx]
		out.Slots = append(out.Slots, protocol.SlotPayload{Slot: idx, ID: e.ID, Count: e.Count})
	}
	return out
}

func sortedSlots(slots map[int]SlotEntry) []int {
	idx := make([]int, 0, len(slots))
	for i := range slots {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
