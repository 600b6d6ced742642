// Package core implements the network-neutral behaviours of a node
// participating in the Kaleidoscope limited advertisement protocol: planning
// self-advertisements over a bounded, repeatable set of random routes, and
// forwarding advertisements received from neighbours.
package core

import (
	"github.com/getlantern/kaleidoscope/routing"
	"github.com/getlantern/kaleidoscope/state"
)

// Transport delivers an advertisement to a directly trusted neighbour. It is
// supplied by the embedder; the engine calls it both when advertising this
// node and when forwarding. Delivery is best effort, the protocol treats
// dropped messages as normal. Implementations must not block the caller for
// long and must arrange for the message to arrive at the neighbour with the
// given ttl and this node as sender.
type Transport interface {
	SendAdvertisement(msg state.Advertisement, neighbor state.NodeId, ttl int)
}

// Node is a single participant in the protocol. Its routing table decides
// where inbound advertisements go next; its parameters decide how many
// routes a self-advertisement is spread over.
type Node struct {
	id     state.NodeId
	params state.Params
	table  *routing.Table
	send   Transport
}

// NewNode constructs a node around the given routing table and transport.
// Zero parameter fields fall back to the protocol defaults.
func NewNode(id state.NodeId, params state.Params, table *routing.Table, transport Transport) *Node {
	return &Node{
		id:     id,
		params: params.WithDefaults(),
		table:  table,
		send:   transport,
	}
}

func (n *Node) Id() state.NodeId {
	return n.id
}

func (n *Node) Params() state.Params {
	return n.params
}

func (n *Node) RoutingTable() *routing.Table {
	return n.table
}

// HandleAdvertisement processes a received advertisement. The default
// behaviour is to forward it along the random route; embedders that consume
// payloads wrap this method.
func (n *Node) HandleAdvertisement(msg state.Advertisement) {
	n.Forward(msg)
}

// shouldForward is the forwarding policy: messages with no hops left
// (ttl <= 1, the terminal hop is consumed here) or with a ttl above the
// maximum route length are dropped. The upper gate limits the reach an
// adversarial sender can buy with an inflated ttl.
func (n *Node) shouldForward(msg state.Advertisement) bool {
	return msg.TTL > 1 && msg.TTL <= n.params.MaxRouteLength
}

// Forward sends the message to the next hop on its route with the ttl
// decreased by one, and reports whether it was forwarded. The message is
// dropped if the policy rejects it or the sender is not a routed neighbour.
func (n *Node) Forward(msg state.Advertisement) bool {
	if !n.shouldForward(msg) {
		return false
	}
	next, ok := n.table.NextHopFor(msg)
	if !ok {
		return false
	}
	ttl := msg.TTL - 1
	n.send.SendAdvertisement(msg.CopyWith(n.id, ttl), next, ttl)
	return true
}

// AdvertiseSelf performs limited advertisement of this node's information.
// The message is sent down some number of random routes whose lengths sum to
// the ideal reach where possible. The sender and ttl of the given message
// are ignored.
//
// The number of routes and their lengths depend on the degree d:
//
//   - d*w_max below the ideal reach: every neighbour is used at w_max, the
//     reach cannot be met even saturating the network
//   - d*w_min above the ideal reach: only the first reach/w_min neighbours
//     of the random ordering are used
//   - otherwise one route per neighbour
//
// Route lengths distribute the reach evenly, with the remainder spread as
// one extra hop over the leading routes. Seeding walks from the stable
// random ordering keeps the selection repeatable across runs, which is what
// limits the usefulness of sybil identities.
func (n *Node) AdvertiseSelf(msg state.Advertisement) {
	idealReach := n.params.IdealReach
	minLen := n.params.MinRouteLength
	maxLen := n.params.MaxRouteLength

	neighbors := n.table.OrderedNeighbors()
	degree := len(neighbors)

	if degree*maxLen < idealReach {
		for _, neighbor := range neighbors {
			n.send.SendAdvertisement(msg.CopyWith(n.id, maxLen), neighbor, maxLen)
		}
		return
	}

	routes := degree
	if degree*minLen > idealReach {
		routes = idealReach / minLen
		if routes < 1 {
			// the reach is below one minimum-length walk; launch a
			// single clipped walk rather than none
			routes = 1
		}
	}

	stdLen := idealReach / routes
	remainder := idealReach % routes

	for i := 0; i < routes; i++ {
		routeLen := stdLen
		if i < remainder {
			routeLen++
		}
		if routeLen < minLen {
			routeLen = minLen
		}
		n.send.SendAdvertisement(msg.CopyWith(n.id, routeLen), neighbors[i], routeLen)
	}
}
