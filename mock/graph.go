// Package mock provides an in-process trust graph whose nodes communicate
// locally. Intended for testing and light simulation.
package mock

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/getlantern/kaleidoscope/core"
	"github.com/getlantern/kaleidoscope/routing"
	"github.com/getlantern/kaleidoscope/state"
)

// Graph is a set of nodes that deliver advertisements to each other
// synchronously.
type Graph struct {
	mu     sync.Mutex
	nodes  map[state.NodeId]*Node
	idSeq  atomic.Int32
	params state.Params
}

// Node routes messages through its parent graph and records every message
// delivered to it.
type Node struct {
	*core.Node
	graph *Graph
	id    state.NodeId

	mu       sync.Mutex
	messages []state.Advertisement
}

// NewGraph constructs an empty graph whose nodes use the default protocol
// parameters.
func NewGraph() *Graph {
	return NewGraphWithParams(state.Params{})
}

// NewGraphWithParams constructs an empty graph whose nodes all use the given
// parameters.
func NewGraphWithParams(params state.Params) *Graph {
	return &Graph{
		nodes:  make(map[state.NodeId]*Node),
		params: params.WithDefaults(),
	}
}

// AddNode creates and adds a node with the next id in the graph's sequence.
func (g *Graph) AddNode() *Node {
	return g.AddNodeId(g.NextId())
}

// AddNodeId creates and adds a node with the given id.
func (g *Graph) AddNodeId(id state.NodeId) *Node {
	n := &Node{graph: g, id: id}
	n.Node = core.NewNode(id, g.params, routing.New(), n)
	g.mu.Lock()
	g.nodes[id] = n
	g.mu.Unlock()
	return n
}

// Node looks up a node by id.
func (g *Graph) Node(id state.NodeId) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[id]
}

// Nodes returns all nodes in the graph.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// NextId generates node ids that are unique within this graph.
func (g *Graph) NextId() state.NodeId {
	return state.NodeId(fmt.Sprintf("#%d", g.idSeq.Add(1)-1))
}

// AddDirectedEdge makes from trust to: to becomes a routed neighbour of
// from. Useful for adverse conditions; relationships must be symmetric for
// the algorithm to function normally.
func (g *Graph) AddDirectedEdge(from, to state.NodeId) {
	g.Node(from).RoutingTable().AddNeighbor(to)
}

// AddEdge creates a symmetric trust link between a and b.
func (g *Graph) AddEdge(a, b state.NodeId) {
	g.AddDirectedEdge(a, b)
	g.AddDirectedEdge(b, a)
}

// deliver hands the message to its recipient with the sender and ttl
// rewritten, the local equivalent of putting it on the wire.
func (g *Graph) deliver(msg state.Advertisement, sender, to state.NodeId, ttl int) {
	target := g.Node(to)
	if target == nil {
		return
	}
	target.HandleAdvertisement(msg.CopyWith(sender, ttl))
}

// ClearMessages drops every message log in the graph.
func (g *Graph) ClearMessages() {
	for _, n := range g.Nodes() {
		n.ClearMessages()
	}
}

// ClearRoutes empties every node's routing table.
func (g *Graph) ClearRoutes() {
	for _, n := range g.Nodes() {
		n.RoutingTable().Clear()
	}
}

// Clear removes all messages, routes and nodes from the graph.
func (g *Graph) Clear() {
	g.ClearMessages()
	g.ClearRoutes()
	g.mu.Lock()
	g.nodes = make(map[state.NodeId]*Node)
	g.mu.Unlock()
}

// GrowToivonen grows the graph into a random social network following the
// procedure of Toivonen et al, "A model for social networks"
// (arxiv physics/0601114), with fixed parameters p(nInit=2) = 0.05 and
// n2nd ~ U[0,3]. The graph must already contain a seed network of at least
// two nodes.
func (g *Graph) GrowToivonen(networkSize int, rng *rand.Rand) {
	networkNodes := g.Nodes()
	if len(networkNodes) < 2 {
		panic("not enough seed nodes")
	}

	for j := 0; j < networkSize; j++ {
		nInit := 1
		if rng.Float64() < 0.05 {
			nInit = 2
		}

		// pick the initial neighbours uniformly at random without
		// repetition
		initial := make([]*Node, 0, nInit)
		for len(initial) < nInit {
			candidate := networkNodes[rng.IntN(len(networkNodes))]
			if !slices.Contains(initial, candidate) {
				initial = append(initial, candidate)
			}
		}

		// for each initial neighbour, pick up to three of its current
		// neighbours as secondary contacts
		secondary := make([]state.NodeId, 0)
		for _, neighbor := range initial {
			n2nd := rng.IntN(4)
			all2nd := neighbor.RoutingTable().OrderedNeighbors()
			if len(all2nd) > n2nd {
				rng.Shuffle(len(all2nd), func(i, j int) {
					all2nd[i], all2nd[j] = all2nd[j], all2nd[i]
				})
				all2nd = all2nd[:n2nd]
			}
			for _, id := range all2nd {
				if !slices.Contains(secondary, id) {
					secondary = append(secondary, id)
				}
			}
		}

		newNode := g.AddNode()
		networkNodes = append(networkNodes, newNode)
		for _, n := range initial {
			g.AddEdge(newNode.Id(), n.Id())
		}
		for _, id := range secondary {
			if id != newNode.Id() {
				g.AddEdge(newNode.Id(), id)
			}
		}
	}
}

// Graph returns the parent graph.
func (n *Node) Graph() *Graph {
	return n.graph
}

// SendAdvertisement implements core.Transport by delivering through the
// local graph.
func (n *Node) SendAdvertisement(msg state.Advertisement, neighbor state.NodeId, ttl int) {
	n.graph.deliver(msg, n.id, neighbor, ttl)
}

// HandleAdvertisement forwards like a regular node and additionally records
// the message.
func (n *Node) HandleAdvertisement(msg state.Advertisement) {
	n.Node.HandleAdvertisement(msg)
	n.mu.Lock()
	n.messages = append(n.messages, msg)
	n.mu.Unlock()
}

// Messages returns a copy of every advertisement delivered to this node.
func (n *Node) Messages() []state.Advertisement {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.messages)
}

// MessageCount returns the number of advertisements delivered to this node,
// counting repeat visits.
func (n *Node) MessageCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// ClearMessages drops the message log.
func (n *Node) ClearMessages() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
}
