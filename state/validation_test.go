package state

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validNode() NodeCfg {
	cfg := NodeCfg{Id: Addr{1, 0}}
	ExpandNodeConfig(&cfg)
	return cfg
}

func TestNodeConfigValidator_Defaults(t *testing.T) {
	cfg := validNode()
	assert.NoError(t, NodeConfigValidator(&cfg))
	assert.Equal(t, 8*time.Second, cfg.BeaconInterval)
	assert.Equal(t, 16*time.Second, cfg.PruneInterval)
	assert.Equal(t, 5, cfg.MaxNeighbours)
	assert.Equal(t, 3, cfg.Liveness)
}

func TestNodeConfigValidator_Invalid(t *testing.T) {
	cfg := validNode()
	cfg.Id = Addr{}
	assert.Error(t, NodeConfigValidator(&cfg))

	cfg = validNode()
	cfg.BeaconInterval = -time.Second
	assert.Error(t, NodeConfigValidator(&cfg))

	cfg = validNode()
	cfg.MaxNeighbours = -1
	assert.Error(t, NodeConfigValidator(&cfg))

	cfg = validNode()
	cfg.LogPath = "/does/not/exist/beacon.log"
	assert.Error(t, NodeConfigValidator(&cfg))
}

func TestNodeConfigValidator_UDP(t *testing.T) {
	cfg := NodeCfg{Id: Addr{1, 0}, UDP: &UDPCfg{}}
	ExpandNodeConfig(&cfg)
	assert.NoError(t, NodeConfigValidator(&cfg))
	assert.Equal(t, uint16(DefaultPort), cfg.UDP.Bind.Port())
	assert.Equal(t, netip.MustParseAddrPort("255.255.255.255:57129"), cfg.UDP.Broadcast)
	assert.Equal(t, DefaultRSSI, cfg.UDP.RSSI)

	cfg.UDP.Broadcast = netip.AddrPort{}
	assert.Error(t, NodeConfigValidator(&cfg))
}

func TestSimConfigValidator(t *testing.T) {
	cfg := &SimCfg{
		Nodes: []SimNodeCfg{
			{Addr: Addr{1, 0}},
			{Addr: Addr{2, 0}, X: 10, Start: time.Second, Stop: 2 * time.Second},
		},
	}
	ExpandSimConfig(cfg)
	assert.NoError(t, SimConfigValidator(cfg))

	cfg.Nodes = append(cfg.Nodes, SimNodeCfg{Addr: Addr{1, 0}})
	assert.ErrorContains(t, SimConfigValidator(cfg), "duplicate node found: 1.0")

	cfg.Nodes = cfg.Nodes[:2]
	cfg.Nodes[1].Stop = time.Second / 2
	assert.Error(t, SimConfigValidator(cfg))

	cfg.Nodes[1].Stop = 0
	cfg.Medium.LossProbability = 1
	assert.Error(t, SimConfigValidator(cfg))

	assert.Error(t, SimConfigValidator(&SimCfg{}))
}
