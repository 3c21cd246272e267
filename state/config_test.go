package state

import (
	"net/netip"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeConfigUnmarshal(t *testing.T) {
	input := `
addr: "7.1"
beacon_interval: 2s
max_neighbours: 8
udp:
  bind: 0.0.0.0:4000
  broadcast: 10.0.0.255:4000
  rssi: -70
  overrides:
    - addr: "7.2"
      rssi: -35
`
	var cfg NodeCfg
	require.NoError(t, yaml.Unmarshal([]byte(input), &cfg))
	ExpandNodeConfig(&cfg)
	require.NoError(t, NodeConfigValidator(&cfg))

	assert.Equal(t, Addr{7, 1}, cfg.Id)
	assert.Equal(t, 2*time.Second, cfg.BeaconInterval)
	assert.Equal(t, PruneInterval, cfg.PruneInterval)
	assert.Equal(t, 8, cfg.MaxNeighbours)
	assert.Equal(t, netip.MustParseAddrPort("10.0.0.255:4000"), cfg.UDP.Broadcast)
	assert.Equal(t, int8(-35), cfg.UDP.RSSIFor(Addr{7, 2}))
	assert.Equal(t, int8(-70), cfg.UDP.RSSIFor(Addr{7, 3}))
}

func TestSimConfigUnmarshal(t *testing.T) {
	input := `
seed: 42
duration: 1m
node:
  beacon_interval: 80ms
  prune_interval: 160ms
medium:
  path_loss_exponent: 2.5
  loss_probability: 0.1
nodes:
  - addr: "1.0"
    x: 0
    y: 0
  - addr: "2.0"
    x: 12.5
    y: 3
    stop: 30s
`
	var cfg SimCfg
	require.NoError(t, yaml.Unmarshal([]byte(input), &cfg))
	nodes := ExpandSimConfig(&cfg)
	require.NoError(t, SimConfigValidator(&cfg))

	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, time.Minute, cfg.Duration)
	assert.Equal(t, 2.5, cfg.Medium.PathLossExponent)
	assert.Equal(t, 40.0, cfg.Medium.RefLoss)
	require.Len(t, nodes, 2)
	assert.Equal(t, Addr{2, 0}, nodes[1].Id)
	assert.Equal(t, 80*time.Millisecond, nodes[1].BeaconInterval)
	assert.Equal(t, MaxNeighbours, nodes[1].MaxNeighbours)
	assert.Equal(t, 30*time.Second, cfg.Nodes[1].Stop)
}
