package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/beacon/core"
	"github.com/encodeous/beacon/radio"
	"github.com/encodeous/beacon/state"
	"github.com/spf13/cobra"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Simulate a network of nodes",
	Long: `This will run every node of the simulation config in this process.
Nodes share a simulated radio channel where signal strength falls off with the distance between them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, nodes, err := core.ReadSimConfig(simConfigPath)
		if err != nil {
			return err
		}
		level := logLevel(cmd)
		if state.DBG_debug_addr != "" {
			core.ServeDebug(state.DBG_debug_addr, slog.Default())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return radio.RunNetwork(ctx, cfg, nodes, radio.NetworkOptions{
			Logger: func(ncfg state.NodeCfg) (*slog.Logger, error) {
				return core.NewLogger(ncfg.Id.String(), level, ncfg.LogPath)
			},
			Sink: func(log *slog.Logger) core.TableSink {
				return &core.LogSink{Log: log, Out: os.Stdout}
			},
		})
	},
	SilenceUsage: true,
	GroupID:      "bc",
}

func init() {
	rootCmd.AddCommand(simCmd)

	simCmd.Flags().StringVarP(&simConfigPath, "sim-config", "s", simConfigPath, "simulation config")
	simCmd.Flags().BoolVarP(&state.DBG_log_beacon, "lbeacon", "b", false, "Write every beacon sent and received to the console")
	simCmd.Flags().StringVarP(&state.DBG_debug_addr, "debug-addr", "d", "", "Serve /debug/metrics and /debug/vars on this address")
}
