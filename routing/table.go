// Package routing implements the per-node random routing table of the
// Kaleidoscope limited advertisement protocol (section 4.2 of TR2008-918).
//
// Each neighbour is paired with a different neighbour except when there is
// exactly one neighbour; the pairs form a single cycle over all neighbours.
// Routes are not symmetric. A separate randomly ordered list of neighbours
// is kept for repeatably choosing a subset of neighbours to advertise to.
//
// To preserve the repeatability of random routes, the table must persist
// across runs of the software; repeatability is what limits the knowledge an
// adversary can gain by creating "sybil" nodes. Persistence is left to the
// persist package.
//
// Priority is given to consistent non-blocking reads for routing lookups.
// Mutation is expected to be very infrequent compared to reads and tables
// are expected to stay small. A neighbour may temporarily be pointed to by
// two routes while a mutation is in progress, but never becomes unreachable.
package routing

import (
	crand "crypto/rand"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/getlantern/kaleidoscope/state"
)

// Table is a thread safe random routing table. Any number of goroutines may
// read while at most one mutator runs; all mutators serialize on one mutex
// and route lookups never block.
type Table struct {
	// routes pairs neighbours: an entry (K, V) means the next hop for a
	// message received from neighbour K is neighbour V.
	routes sync.Map // state.NodeId -> state.NodeId
	count  atomic.Int64

	// mu serializes mutators and guards ordered. The ordered list is a
	// random ordering of the neighbours used to repeatably pick a subset
	// to advertise to; it is never exposed directly.
	mu      sync.Mutex
	ordered []state.NodeId

	rng *rand.Rand
}

// New constructs an empty table with a ChaCha8 randomness source seeded from
// crypto/rand.
func New() *Table {
	return NewWithRand(newSeededRand())
}

// NewWithRand constructs an empty table with the given source of randomness,
// used for shuffling and random route insertion.
func NewWithRand(rng *rand.Rand) *Table {
	return &Table{rng: rng}
}

// FromSnapshot constructs a table matching the given snapshot. The snapshot
// is validated first; a *InvalidSnapshotError is returned if it does not
// describe a valid table state.
func FromSnapshot(s Snapshot) (*Table, error) {
	if err := ValidateSnapshot(s); err != nil {
		return nil, err
	}
	t := New()
	for k, v := range s.Routes {
		t.routes.Store(k, v)
	}
	t.count.Store(int64(len(s.Routes)))
	t.ordered = slices.Clone(s.OrderedNeighbors)
	return t, nil
}

func newSeededRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(err)
	}
	return rand.New(rand.NewChaCha8(seed))
}

// NextHop determines the next neighbour on a route containing prior as the
// previous node. Reports false if the next hop cannot be determined.
func (t *Table) NextHop(prior state.NodeId) (state.NodeId, bool) {
	if prior == "" {
		return "", false
	}
	v, ok := t.routes.Load(prior)
	if !ok {
		return "", false
	}
	return v.(state.NodeId), true
}

// NextHopFor determines the next hop for a message, routing on the neighbour
// the message arrived from (not necessarily the originator).
func (t *Table) NextHopFor(msg state.Advertisement) (state.NodeId, bool) {
	return t.NextHop(msg.Sender)
}

// Contains reports whether the neighbour is in the table.
func (t *Table) Contains(node state.NodeId) bool {
	_, ok := t.routes.Load(node)
	return ok
}

// Size returns the number of neighbours/routes in the table.
func (t *Table) Size() int {
	return int(t.count.Load())
}

// IsEmpty reports whether there are no routes in the table.
func (t *Table) IsEmpty() bool {
	return t.count.Load() == 0
}

// OrderedNeighbors returns the random ordering of neighbours in the table.
// The ordering is constructed randomly but does not change between calls
// unless the set of neighbours changes. The returned slice is a copy.
func (t *Table) OrderedNeighbors() []state.NodeId {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.ordered)
}

// AddNeighbor adds a single neighbour to the table. A random existing route
// X->Y is split into X->node, node->Y. If there are no existing routes the
// neighbour is mapped to itself. Adding a neighbour that is already present,
// or the empty id, has no effect.
func (t *Table) AddNeighbor(node state.NodeId) {
	if node == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addLocked(node)
}

func (t *Table) addLocked(node state.NodeId) {
	if t.Contains(node) {
		return
	}

	if len(t.ordered) == 0 {
		// Route the neighbour to itself. The self reference is split
		// away by the next addition.
		t.routes.Store(node, node)
	} else {
		splitKey, splitVal := t.randomRoute()

		// The new route node->Y is installed before X->node so that a
		// concurrent reader keeps the existing routing behaviour until
		// the whole operation is complete.
		t.routes.Store(node, splitVal)
		t.routes.Store(splitKey, node)
	}

	t.addToOrdering(node)
	t.count.Add(1)
}

// AddNeighbors adds a group of neighbours. At most one existing route is
// disrupted regardless of the batch size; as many routes as possible are
// assigned within the group. Neighbours already present are ignored.
func (t *Table) AddNeighbors(nodes []state.NodeId) {
	if len(nodes) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	// filter out empty ids, in-batch duplicates and neighbours that are
	// already routed
	fresh := make([]state.NodeId, 0, len(nodes))
	for _, n := range nodes {
		if n == "" || t.Contains(n) || slices.Contains(fresh, n) {
			continue
		}
		fresh = append(fresh, n)
	}

	if len(fresh) == 0 {
		return
	}
	if len(fresh) == 1 {
		t.addLocked(fresh[0])
		return
	}

	// If there are existing routes, the route to split is picked before
	// any of the new routes are added.
	var splitKey, splitVal state.NodeId
	split := len(t.ordered) > 0
	if split {
		splitKey, splitVal = t.randomRoute()
	}

	// Route i->i+1 through a random permutation of the new neighbours.
	// These routes disturb nothing and create no self references.
	t.rng.Shuffle(len(fresh), func(i, j int) {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	})
	for i := 0; i < len(fresh)-1; i++ {
		t.routes.Store(fresh[i], fresh[i+1])
	}

	first, last := fresh[0], fresh[len(fresh)-1]
	if !split {
		// nothing to splice into, close the chain into a cycle
		t.routes.Store(last, first)
	} else {
		// X->Y becomes X->first->...->last->Y. As with the single add,
		// last->Y is installed before X is redirected.
		t.routes.Store(last, splitVal)
		t.routes.Store(splitKey, first)
	}

	for _, n := range fresh {
		t.addToOrdering(n)
	}
	t.count.Add(int64(len(fresh)))
}

// randomRoute picks a uniformly random route from the table. Callers must
// hold mu and the table must not be empty.
func (t *Table) randomRoute() (state.NodeId, state.NodeId) {
	key := t.ordered[t.rng.IntN(len(t.ordered))]
	val, _ := t.routes.Load(key)
	return key, val.(state.NodeId)
}

// addToOrdering inserts the neighbour at a uniformly random position of the
// ordered list. The neighbour must not already be in the list.
func (t *Table) addToOrdering(node state.NodeId) {
	pos := t.rng.IntN(len(t.ordered) + 1)
	t.ordered = slices.Insert(t.ordered, pos, node)
}

// RemoveNeighbor removes a single neighbour. The routes X->node, node->Y are
// merged into X->Y; a self mapped neighbour is simply erased. Removing an
// absent neighbour has no effect.
func (t *Table) RemoveNeighbor(node state.NodeId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.Contains(node) {
		return
	}

	// The neighbour leaves the ordering first so it can no longer be
	// selected as an advertisement seed while the routes change.
	t.removeFromOrdering(node)
	t.removeRoute(node)
}

// RemoveNeighbors removes a set of neighbours. The removal is equivalent to
// a series of single removals; it is not atomic as a whole.
func (t *Table) RemoveNeighbors(nodes []state.NodeId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range nodes {
		if !t.Contains(n) {
			continue
		}
		t.removeFromOrdering(n)
		t.removeRoute(n)
	}
}

// removeRoute merges X->node, node->Y into X->Y and deletes node->Y.
// Callers must hold mu and the neighbour must be present.
func (t *Table) removeRoute(node state.NodeId) {
	v, _ := t.routes.Load(node)
	mergeVal := v.(state.NodeId)

	if mergeVal == node {
		// only happens when node is the single entry
		t.routes.Delete(node)
		t.count.Add(-1)
		return
	}

	// find the unique neighbour currently routed to node; tables are
	// small, a linear scan is fine
	var mergeKey state.NodeId
	t.routes.Range(func(k, v any) bool {
		if v.(state.NodeId) == node {
			mergeKey = k.(state.NodeId)
			return false
		}
		return true
	})

	// X->Y is installed before node->Y disappears, preserving the
	// ability to route to Y throughout.
	t.routes.Store(mergeKey, mergeVal)
	t.routes.Delete(node)
	t.count.Add(-1)
}

func (t *Table) removeFromOrdering(node state.NodeId) {
	idx := slices.Index(t.ordered, node)
	if idx != -1 {
		t.ordered = slices.Delete(t.ordered, idx, idx+1)
	}
}

// Clear removes all entries from the table.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes.Clear()
	t.ordered = t.ordered[:0]
	t.count.Store(0)
}

// Snapshot captures the current state of the table. The snapshot always
// represents some valid state that existed between mutations and never
// contains multiple routings for the same neighbour.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	routes := make(map[state.NodeId]state.NodeId, len(t.ordered))
	t.routes.Range(func(k, v any) bool {
		routes[k.(state.NodeId)] = v.(state.NodeId)
		return true
	})
	return Snapshot{
		Routes:           routes,
		OrderedNeighbors: slices.Clone(t.ordered),
	}
}
