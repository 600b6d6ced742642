package state

import (
	"net/netip"
	"slices"
)

// Params are the tunable parameters of a node's advertisement behaviour.
// Zero fields fall back to the protocol defaults.
type Params struct {
	IdealReach     int `yaml:"ideal_reach,omitempty"`
	MinRouteLength int `yaml:"min_route_length,omitempty"`
	MaxRouteLength int `yaml:"max_route_length,omitempty"`
}

// WithDefaults fills zero fields with the protocol defaults.
func (p Params) WithDefaults() Params {
	if p.IdealReach == 0 {
		p.IdealReach = DefaultIdealReach
	}
	if p.MinRouteLength == 0 {
		p.MinRouteLength = DefaultMinRouteLength
	}
	if p.MaxRouteLength == 0 {
		p.MaxRouteLength = DefaultMaxRouteLength
	}
	return p
}

// PeerCfg names one trusted neighbour and where to reach it.
type PeerCfg struct {
	Id   NodeId
	Addr netip.AddrPort
}

// NodeCfg is the node-level configuration.
type NodeCfg struct {
	Id        NodeId
	Bind      netip.AddrPort
	Peers     []PeerCfg
	TablePath string `yaml:"table_path,omitempty"` // routing table snapshot file
	LogPath   string `yaml:"log_path,omitempty"`   // if not empty, also write logs to this file
	Params    Params `yaml:",inline"`
}

// PeerIds returns the ids of all configured peers.
func (c *NodeCfg) PeerIds() []NodeId {
	ids := make([]NodeId, 0, len(c.Peers))
	for _, p := range c.Peers {
		ids = append(ids, p.Id)
	}
	return ids
}

// PeerAddr looks up the endpoint of a configured peer.
func (c *NodeCfg) PeerAddr(node NodeId) (netip.AddrPort, bool) {
	idx := slices.IndexFunc(c.Peers, func(p PeerCfg) bool {
		return p.Id == node
	})
	if idx == -1 {
		return netip.AddrPort{}, false
	}
	return c.Peers[idx].Addr, true
}
