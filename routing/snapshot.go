package routing

import (
	"maps"
	"slices"

	"github.com/getlantern/kaleidoscope/state"
)

// Snapshot is an immutable dump of a routing table's state, suitable for
// persistence and for constructing a new table. A route X->Y means the next
// hop for a message received from neighbour X is Y.
type Snapshot struct {
	Routes           map[state.NodeId]state.NodeId
	OrderedNeighbors []state.NodeId
}

// Clone returns a deep copy that shares no storage with the receiver.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Routes:           maps.Clone(s.Routes),
		OrderedNeighbors: slices.Clone(s.OrderedNeighbors),
	}
}

// InvalidSnapshotError reports a snapshot that does not describe a valid
// routing table state.
type InvalidSnapshotError struct {
	Reason string
}

func (e *InvalidSnapshotError) Error() string {
	return "invalid snapshot: " + e.Reason
}

// IsValidSnapshot reports whether ValidateSnapshot accepts the snapshot.
func IsValidSnapshot(s Snapshot) bool {
	return ValidateSnapshot(s) == nil
}

// ValidateSnapshot verifies that the snapshot constitutes a valid routing
// table state:
//
//   - the set of route keys equals the set of route values, so every
//     neighbour has a next hop and is the next hop of some neighbour
//   - a neighbour routes to itself only when it is the only entry
//   - following next hops from any key forms a single cycle covering the
//     whole table
//   - the ordered neighbour list is duplicate free and covers exactly the
//     routed neighbours
//
// Returns a *InvalidSnapshotError describing the first violation found.
func ValidateSnapshot(s Snapshot) error {
	routes := s.Routes

	values := make(map[state.NodeId]struct{}, len(routes))
	for _, v := range routes {
		values[v] = struct{}{}
	}
	if len(values) != len(routes) {
		return &InvalidSnapshotError{"key/value set mismatch"}
	}
	for v := range values {
		if _, ok := routes[v]; !ok {
			return &InvalidSnapshotError{"key/value set mismatch"}
		}
	}

	if len(routes) > 1 {
		for k, v := range routes {
			if k == v {
				return &InvalidSnapshotError{"illegal self-route"}
			}
		}

		// The routes must form one cycle of length equal to the table
		// size. Follow the successor chain and check for early repeats.
		var first state.NodeId
		for k := range routes {
			first = k
			break
		}
		seen := make(map[state.NodeId]struct{}, len(routes))
		cur := first
		for i := 0; i < len(routes)-1; i++ {
			seen[cur] = struct{}{}
			cur = routes[cur]
			if _, ok := seen[cur]; ok {
				return &InvalidSnapshotError{"cycle too short"}
			}
		}
		if routes[cur] != first {
			return &InvalidSnapshotError{"unclosed cycle"}
		}
	}

	ordered := s.OrderedNeighbors
	orderSet := make(map[state.NodeId]struct{}, len(ordered))
	for _, n := range ordered {
		orderSet[n] = struct{}{}
	}
	if len(orderSet) != len(ordered) {
		return &InvalidSnapshotError{"ordered-neighbors has duplicates"}
	}
	if len(ordered) != len(routes) {
		return &InvalidSnapshotError{"ordered-neighbors mismatch"}
	}
	for _, n := range ordered {
		if _, ok := routes[n]; !ok {
			return &InvalidSnapshotError{"ordered-neighbors mismatch"}
		}
	}
	return nil
}
