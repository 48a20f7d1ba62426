package inventory

import (
	"math"
	"sort"

	"acre.game/internal/sim/catalogs"
)

// Slot is one filled hotbar position.
type Slot struct {
	Item  catalogs.ItemID `json:"item"`
	Count int             `json:"count"`
}

// Ledger owns a player's item counts and the hotbar derived from them.
// Counts are never negative and a zero count is never stored.
type Ledger struct {
	counts  map[catalogs.ItemID]int
	hotbar  []*Slot
	version uint64
}

func New(hotbarSize int) *Ledger {
	if hotbarSize <= 0 {
		hotbarSize = 9
	}
	return &Ledger{
		counts: map[catalogs.ItemID]int{},
		hotbar: make([]*Slot, hotbarSize),
	}
}

// Version increases on every mutation.
func (l *Ledger) Version() uint64 { return l.version }

func (l *Ledger) Count(id catalogs.ItemID) int { return l.counts[id] }

func (l *Ledger) Counts() map[catalogs.ItemID]int {
	out := make(map[catalogs.ItemID]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

func (l *Ledger) Empty() bool { return len(l.counts) == 0 }

// Add ignores unknown items and non-positive counts. Counts saturate at
// math.MaxInt.
func (l *Ledger) Add(id catalogs.ItemID, n int) {
	if n <= 0 {
		return
	}
	if _, ok := catalogs.Item(id); !ok {
		return
	}
	have := l.counts[id]
	if n > math.MaxInt-have {
		n = math.MaxInt - have
	}
	if n == 0 {
		return
	}
	l.counts[id] = have + n
	l.changed()
}

// Remove takes n of id only if that many are held.
func (l *Ledger) Remove(id catalogs.ItemID, n int) bool {
	if n <= 0 {
		return false
	}
	have := l.counts[id]
	if have < n {
		return false
	}
	if have == n {
		delete(l.counts, id)
	} else {
		l.counts[id] = have - n
	}
	l.changed()
	return true
}

// Replace swaps in a whole new set of counts, dropping unknown items and
// non-positive entries.
func (l *Ledger) Replace(counts map[catalogs.ItemID]int) {
	next := make(map[catalogs.ItemID]int, len(counts))
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		if _, ok := catalogs.Item(id); !ok {
			continue
		}
		next[id] = n
	}
	l.counts = next
	l.changed()
}

func (l *Ledger) CanCraft(r catalogs.Recipe, stationNearby bool) bool {
	if r.Quantity <= 0 || len(r.Inputs) == 0 {
		return false
	}
	if r.Station && !stationNearby {
		return false
	}
	if l.counts[r.Output] > math.MaxInt-r.Quantity {
		return false
	}
	for id, n := range r.Inputs {
		if l.counts[id] < n {
			return false
		}
	}
	return true
}

// Craft consumes every input and adds the output, or changes nothing.
func (l *Ledger) Craft(r catalogs.Recipe, stationNearby bool) bool {
	if !l.CanCraft(r, stationNearby) {
		return false
	}
	for id, n := range r.Inputs {
		if l.counts[id] == n {
			delete(l.counts, id)
		} else {
			l.counts[id] -= n
		}
	}
	l.counts[r.Output] += r.Quantity
	l.changed()
	return true
}

func (l *Ledger) HotbarSize() int { return len(l.hotbar) }

// Hotbar returns a copy of the projection. Empty positions are nil.
func (l *Ledger) Hotbar() []*Slot {
	out := make([]*Slot, len(l.hotbar))
	for i, s := range l.hotbar {
		if s != nil {
			c := *s
			out[i] = &c
		}
	}
	return out
}

func (l *Ledger) Slot(i int) (Slot, bool) {
	if i < 0 || i >= len(l.hotbar) || l.hotbar[i] == nil {
		return Slot{}, false
	}
	return *l.hotbar[i], true
}

func (l *Ledger) changed() {
	l.version++
	l.hotbar = Project(l.counts, len(l.hotbar))
}

// Project fills size slots with placeable held items in ascending id order.
func Project(counts map[catalogs.ItemID]int, size int) []*Slot {
	ids := make([]catalogs.ItemID, 0, len(counts))
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		def, ok := catalogs.Item(id)
		if !ok || !def.Placeable() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*Slot, size)
	for i, id := range ids {
		if i >= size {
			break
		}
		out[i] = &Slot{Item: id, Count: counts[id]}
	}
	return out
}
