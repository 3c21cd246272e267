package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NodeConfigValidator(node *NodeCfg) error {
	if node.Id.IsZero() {
		return fmt.Errorf("node.addr must be set and not 0.0")
	}
	if node.BeaconInterval <= 0 {
		return fmt.Errorf("node.beacon_interval must be positive, got %s", node.BeaconInterval)
	}
	if node.PruneInterval <= 0 {
		return fmt.Errorf("node.prune_interval must be positive, got %s", node.PruneInterval)
	}
	if node.MaxNeighbours <= 0 {
		return fmt.Errorf("node.max_neighbours must be positive, got %d", node.MaxNeighbours)
	}
	if node.Liveness <= 0 {
		return fmt.Errorf("node.liveness must be positive, got %d", node.Liveness)
	}
	if node.LogPath != "" {
		if err := PathValidator(node.LogPath); err != nil {
			return fmt.Errorf("node.log_path: %w", err)
		}
	}
	if node.UDP != nil {
		if !node.UDP.Bind.IsValid() {
			return fmt.Errorf("node.udp.bind is invalid")
		}
		if !node.UDP.Broadcast.IsValid() || node.UDP.Broadcast.Port() == 0 {
			return fmt.Errorf("node.udp.broadcast is invalid")
		}
	}
	return nil
}

func MediumConfigValidator(cfg *MediumCfg) error {
	if cfg.PathLossExponent <= 0 {
		return fmt.Errorf("medium.path_loss_exponent must be positive, got %v", cfg.PathLossExponent)
	}
	if cfg.NoiseSigma < 0 {
		return fmt.Errorf("medium.noise_sigma must not be negative, got %v", cfg.NoiseSigma)
	}
	if cfg.LossProbability < 0 || cfg.LossProbability >= 1 {
		return fmt.Errorf("medium.loss_probability must be in [0, 1), got %v", cfg.LossProbability)
	}
	return nil
}

func SimConfigValidator(cfg *SimCfg) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("sim.nodes must not be empty")
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("sim.duration must not be negative")
	}
	if err := MediumConfigValidator(&cfg.Medium); err != nil {
		return err
	}
	seen := make(map[Addr]struct{}, len(cfg.Nodes))
	for i, n := range cfg.Nodes {
		if n.Addr.IsZero() {
			return fmt.Errorf("sim.nodes[%d].addr must be set", i)
		}
		if _, ok := seen[n.Addr]; ok {
			return fmt.Errorf("duplicate node found: %s", n.Addr)
		}
		seen[n.Addr] = struct{}{}
		if n.Start < 0 || n.Stop < 0 {
			return fmt.Errorf("sim.nodes[%d] start/stop must not be negative", i)
		}
		if n.Stop != 0 && n.Stop <= n.Start {
			return fmt.Errorf("sim.nodes[%d] stops before it starts", i)
		}
	}
	return nil
}
