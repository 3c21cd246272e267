package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/beacon/state"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func sampleNode(addr state.Addr) state.NodeCfg {
	ncfg := state.NodeCfg{
		Id:  addr,
		UDP: &state.UDPCfg{},
	}
	state.ExpandNodeConfig(&ncfg)
	return ncfg
}

func sampleSim(count int) state.SimCfg {
	cfg := state.SimCfg{
		Seed:     1,
		Duration: state.PruneInterval * 8,
		Node: state.NodeCfg{
			BeaconInterval: state.BeaconInterval,
			PruneInterval:  state.PruneInterval,
		},
		Medium: state.MediumCfg{NoiseSigma: 4},
	}
	state.ExpandMediumConfig(&cfg.Medium)
	// nodes on a line, 20m apart
	for i := range count {
		cfg.Nodes = append(cfg.Nodes, state.SimNodeCfg{
			Addr: state.Addr{byte((i + 1) >> 8), byte(i + 1)},
			X:    float64(i) * 20,
		})
	}
	return cfg
}

func writeConfig(path string, v any, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}

var newCmd = &cobra.Command{
	Use:   "new [addr]",
	Short: "Create a node configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := state.ParseAddr(args[0])
		if err != nil {
			return err
		}
		ncfg := sampleNode(addr)
		if err := state.NodeConfigValidator(&ncfg); err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		return writeConfig(nodeConfigPath, &ncfg, force)
	},
	SilenceUsage: true,
	GroupID:      "init",
}

var newSimCmd = &cobra.Command{
	Use:   "new-sim",
	Short: "Create a simulation configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("nodes")
		cfg := sampleSim(count)
		if err := state.SimConfigValidator(&cfg); err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		return writeConfig(simConfigPath, &cfg, force)
	},
	SilenceUsage: true,
	GroupID:      "init",
}

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(newSimCmd)

	newCmd.Flags().StringVarP(&nodeConfigPath, "output", "o", nodeConfigPath, "Output file")
	newCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
	newSimCmd.Flags().StringVarP(&simConfigPath, "output", "o", simConfigPath, "Output file")
	newSimCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
	newSimCmd.Flags().IntP("nodes", "c", 8, "Number of nodes")
}
