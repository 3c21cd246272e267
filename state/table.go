package state

import (
	"cmp"
	"slices"
)

type ObserveResult int

const (
	// Updated means the neighbour was already present and has been refreshed
	Updated ObserveResult = iota
	// Inserted means a new neighbour entered the table
	Inserted
	// Dropped means the neighbour was unknown and the table was full
	Dropped
)

func (r ObserveResult) String() string {
	switch r {
	case Updated:
		return "updated"
	case Inserted:
		return "inserted"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// NeighbourTable is a fixed capacity table of the strongest neighbours.
// Storage is allocated once, lookups are a linear scan since the capacity is small.
// NeighbourTable is not safe for concurrent use, it is owned by the main loop.
type NeighbourTable struct {
	entries  []Neighbour
	capacity int
	liveness int
}

func NewNeighbourTable(capacity, liveness int) *NeighbourTable {
	if capacity <= 0 {
		capacity = MaxNeighbours
	}
	if liveness <= 0 {
		liveness = LivenessReset
	}
	return &NeighbourTable{
		entries:  make([]Neighbour, 0, capacity),
		capacity: capacity,
		liveness: liveness,
	}
}

func (t *NeighbourTable) Len() int {
	return len(t.entries)
}

func (t *NeighbourTable) Cap() int {
	return t.capacity
}

func (t *NeighbourTable) index(addr Addr) int {
	return slices.IndexFunc(t.entries, func(n Neighbour) bool {
		return n.Addr == addr
	})
}

// Get returns a copy of the neighbour with the given address
func (t *NeighbourTable) Get(addr Addr) (Neighbour, bool) {
	idx := t.index(addr)
	if idx == -1 {
		return Neighbour{}, false
	}
	return t.entries[idx], true
}

// Observe records a beacon received from addr.
// An unknown neighbour is only admitted while the table has room, otherwise it is dropped
// until pruning frees a slot.
func (t *NeighbourTable) Observe(addr Addr, rssi int8) ObserveResult {
	if idx := t.index(addr); idx != -1 {
		n := &t.entries[idx]
		n.RSSI = rssi
		n.RxCount++
		n.Liveness = t.liveness
		n.updatePRR()
		return Updated
	}
	if len(t.entries) >= t.capacity {
		return Dropped
	}
	t.entries = append(t.entries, Neighbour{
		Addr:     addr,
		RSSI:     rssi,
		RxCount:  1,
		Liveness: t.liveness,
	})
	return Inserted
}

// Rerank sorts the table by descending RSSI and truncates it to capacity.
// It returns the addresses that were cut off.
func (t *NeighbourTable) Rerank() []Addr {
	slices.SortStableFunc(t.entries, func(a, b Neighbour) int {
		return cmp.Compare(b.RSSI, a.RSSI)
	})
	if len(t.entries) <= t.capacity {
		return nil
	}
	cut := make([]Addr, 0, len(t.entries)-t.capacity)
	for _, n := range t.entries[t.capacity:] {
		cut = append(cut, n.Addr)
	}
	clear(t.entries[t.capacity:])
	t.entries = t.entries[:t.capacity]
	return cut
}

// OnBeaconSent counts one more reception opportunity for every neighbour.
// PRR is left untouched until the next beacon is heard.
func (t *NeighbourTable) OnBeaconSent() {
	for i := range t.entries {
		t.entries[i].TxCount++
	}
}

// Prune ages every neighbour by one tick and removes the ones that ran out of liveness.
// Survivors keep their relative order.
func (t *NeighbourTable) Prune() []Addr {
	var evicted []Addr
	n := 0
	for _, x := range t.entries {
		x.Liveness--
		if x.Liveness > 0 {
			t.entries[n] = x
			n++
		} else {
			evicted = append(evicted, x.Addr)
		}
	}
	clear(t.entries[n:])
	t.entries = t.entries[:n]
	return evicted
}

// Snapshot returns a copy of the table in rank order
func (t *NeighbourTable) Snapshot() []Neighbour {
	return slices.Clone(t.entries)
}
