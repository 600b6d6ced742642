package state

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeCfgYamlRoundTrip(t *testing.T) {
	in := `
id: alice
bind: 0.0.0.0:57411
peers:
  - id: bob
    addr: 10.0.0.2:57411
  - id: carol
    addr: 10.0.0.3:57411
table_path: alice.routes.json
ideal_reach: 50
min_route_length: 4
max_route_length: 12
`
	var cfg NodeCfg
	require.NoError(t, yaml.Unmarshal([]byte(in), &cfg))
	require.NoError(t, NodeConfigValidator(&cfg))

	assert.Equal(t, NodeId("alice"), cfg.Id)
	assert.Equal(t, "0.0.0.0:57411", cfg.Bind.String())
	assert.Len(t, cfg.Peers, 2)
	assert.Equal(t, NodeId("bob"), cfg.Peers[0].Id)
	assert.Equal(t, "alice.routes.json", cfg.TablePath)
	assert.Equal(t, 50, cfg.Params.IdealReach)
	assert.Equal(t, 12, cfg.Params.MaxRouteLength)

	out, err := yaml.Marshal(&cfg)
	require.NoError(t, err)

	var again NodeCfg
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.Equal(t, cfg, again)
}

func TestNodeCfgYamlDefaults(t *testing.T) {
	in := `
id: bob
bind: 0.0.0.0:57411
`
	var cfg NodeCfg
	require.NoError(t, yaml.Unmarshal([]byte(in), &cfg))
	require.NoError(t, NodeConfigValidator(&cfg))

	p := cfg.Params.WithDefaults()
	assert.Equal(t, DefaultIdealReach, p.IdealReach)
	assert.Equal(t, DefaultMinRouteLength, p.MinRouteLength)
	assert.Equal(t, DefaultMaxRouteLength, p.MaxRouteLength)
}
