package state

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameValidator_Valid(t *testing.T) {
	assert.NoError(t, NameValidator("1"))
	assert.NoError(t, NameValidator("ab_cd"))
	assert.NoError(t, NameValidator("abcd-a.com"))
	assert.NoError(t, NameValidator("bob@example.com"))
	assert.NoError(t, NameValidator("#42"))
}

func TestNameValidator_Invalid(t *testing.T) {
	assert.Error(t, NameValidator("node name"))
	assert.Error(t, NameValidator(""))
	assert.Error(t, NameValidator("\t"))
	assert.Error(t, NameValidator("abcd-a.com\\hi"))
	assert.Error(t, NameValidator(strings.Repeat("a", 200)))
}

func TestParamsValidator(t *testing.T) {
	assert.NoError(t, ParamsValidator(Params{}))
	assert.NoError(t, ParamsValidator(Params{IdealReach: 50, MinRouteLength: 4, MaxRouteLength: 10}))

	// max and min must be at least 1 apart
	assert.Error(t, ParamsValidator(Params{IdealReach: 50, MinRouteLength: 10, MaxRouteLength: 10}))
	assert.Error(t, ParamsValidator(Params{IdealReach: 50, MinRouteLength: 12, MaxRouteLength: 10}))
	assert.Error(t, ParamsValidator(Params{IdealReach: -5, MinRouteLength: 4, MaxRouteLength: 10}))
}

func TestNodeConfigValidator(t *testing.T) {
	cfg := NodeCfg{
		Id:   "alice",
		Bind: netip.MustParseAddrPort("0.0.0.0:57411"),
		Peers: []PeerCfg{
			{Id: "bob", Addr: netip.MustParseAddrPort("10.0.0.2:57411")},
			{Id: "carol", Addr: netip.MustParseAddrPort("10.0.0.3:57411")},
		},
	}
	assert.NoError(t, NodeConfigValidator(&cfg))

	dup := cfg
	dup.Peers = append([]PeerCfg{}, cfg.Peers...)
	dup.Peers = append(dup.Peers, PeerCfg{Id: "bob", Addr: netip.MustParseAddrPort("10.0.0.4:57411")})
	assert.Error(t, NodeConfigValidator(&dup))

	self := cfg
	self.Peers = []PeerCfg{{Id: "alice", Addr: netip.MustParseAddrPort("10.0.0.2:57411")}}
	assert.Error(t, NodeConfigValidator(&self))

	unbound := cfg
	unbound.Bind = netip.AddrPort{}
	assert.Error(t, NodeConfigValidator(&unbound))

	badPeer := cfg
	badPeer.Peers = []PeerCfg{{Id: "bob", Addr: netip.AddrPort{}}}
	assert.Error(t, NodeConfigValidator(&badPeer))
}

func TestPeerLookup(t *testing.T) {
	cfg := NodeCfg{
		Id:   "alice",
		Bind: netip.MustParseAddrPort("0.0.0.0:57411"),
		Peers: []PeerCfg{
			{Id: "bob", Addr: netip.MustParseAddrPort("10.0.0.2:57411")},
		},
	}
	assert.Equal(t, []NodeId{"bob"}, cfg.PeerIds())

	addr, ok := cfg.PeerAddr("bob")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.2:57411", addr.String())

	_, ok = cfg.PeerAddr("zed")
	assert.False(t, ok)
}
