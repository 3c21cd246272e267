package state

import (
	"net/netip"
	"time"
)

// NodeCfg represents local node-level configuration
type NodeCfg struct {
	Id             Addr          `yaml:"addr"`                      // link address of this node
	BeaconInterval time.Duration `yaml:"beacon_interval,omitempty"` // delay between two beacons
	PruneInterval  time.Duration `yaml:"prune_interval,omitempty"`  // delay between two liveness passes
	MaxNeighbours  int           `yaml:"max_neighbours,omitempty"`  // neighbour table capacity
	Liveness       int           `yaml:"liveness,omitempty"`        // prune ticks a silent neighbour survives
	LogPath        string        `yaml:"log_path,omitempty"`        // if not empty, logs are also written to this file
	UDP            *UDPCfg       `yaml:"udp,omitempty"`             // UDP broadcast transport, required by `run`
}

type RSSIOverride struct {
	Addr Addr `yaml:"addr"`
	RSSI int8 `yaml:"rssi"`
}

// UDPCfg configures beacons over UDP broadcast. UDP has no notion of signal strength, so the
// reported RSSI is taken from the configuration.
type UDPCfg struct {
	Bind      netip.AddrPort `yaml:"bind"`
	Broadcast netip.AddrPort `yaml:"broadcast"`
	RSSI      int8           `yaml:"rssi,omitempty"`      // RSSI reported for every sender
	Overrides []RSSIOverride `yaml:"overrides,omitempty"` // per sender RSSI
}

// MediumCfg describes the simulated radio channel
type MediumCfg struct {
	TxPower          float64 `yaml:"tx_power,omitempty"`           // dBm
	RefLoss          float64 `yaml:"ref_loss,omitempty"`           // path loss at 1m in dB
	PathLossExponent float64 `yaml:"path_loss_exponent,omitempty"` // log-distance exponent
	NoiseSigma       float64 `yaml:"noise_sigma,omitempty"`        // shadowing std deviation in dB
	Sensitivity      float64 `yaml:"sensitivity,omitempty"`        // weakest decodable signal in dBm
	LossProbability  float64 `yaml:"loss_probability,omitempty"`   // random frame loss in [0, 1)
}

type SimNodeCfg struct {
	Addr  Addr          `yaml:"addr"`
	X     float64       `yaml:"x"`
	Y     float64       `yaml:"y"`
	Start time.Duration `yaml:"start,omitempty"` // power on delay
	Stop  time.Duration `yaml:"stop,omitempty"`  // power off after, zero runs until the end
}

// SimCfg describes a network of nodes sharing one simulated medium
type SimCfg struct {
	Seed     uint64        `yaml:"seed,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"` // zero runs until interrupted
	Node     NodeCfg       `yaml:"node,omitempty"`     // template applied to every node, addr is ignored
	Medium   MediumCfg     `yaml:"medium,omitempty"`
	Nodes    []SimNodeCfg  `yaml:"nodes"`
}

// ExpandNodeConfig fills in defaults for every unset field
func ExpandNodeConfig(cfg *NodeCfg) {
	if cfg.BeaconInterval == 0 {
		cfg.BeaconInterval = BeaconInterval
	}
	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = PruneInterval
	}
	if cfg.MaxNeighbours == 0 {
		cfg.MaxNeighbours = MaxNeighbours
	}
	if cfg.Liveness == 0 {
		cfg.Liveness = LivenessReset
	}
	if cfg.UDP != nil {
		if !cfg.UDP.Bind.IsValid() {
			cfg.UDP.Bind = netip.AddrPortFrom(netip.IPv4Unspecified(), uint16(DefaultPort))
		}
		if !cfg.UDP.Broadcast.IsValid() {
			cfg.UDP.Broadcast = netip.AddrPortFrom(netip.AddrFrom4([4]byte{255, 255, 255, 255}), cfg.UDP.Bind.Port())
		}
		if cfg.UDP.RSSI == 0 {
			cfg.UDP.RSSI = DefaultRSSI
		}
	}
}

func ExpandMediumConfig(cfg *MediumCfg) {
	if cfg.RefLoss == 0 {
		cfg.RefLoss = 40
	}
	if cfg.PathLossExponent == 0 {
		cfg.PathLossExponent = 3
	}
	if cfg.Sensitivity == 0 {
		cfg.Sensitivity = -95
	}
}

// ExpandSimConfig fills in defaults and returns the effective configuration of every node
func ExpandSimConfig(cfg *SimCfg) []NodeCfg {
	ExpandMediumConfig(&cfg.Medium)
	nodes := make([]NodeCfg, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		ncfg := cfg.Node
		ncfg.Id = n.Addr
		ncfg.UDP = nil
		ExpandNodeConfig(&ncfg)
		nodes = append(nodes, ncfg)
	}
	return nodes
}

// RSSIFor returns the signal strength reported for beacons from addr
func (u *UDPCfg) RSSIFor(addr Addr) int8 {
	for _, o := range u.Overrides {
		if o.Addr == addr {
			return o.RSSI
		}
	}
	return u.RSSI
}
