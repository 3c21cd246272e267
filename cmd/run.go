package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/beacon/core"
	"github.com/encodeous/beacon/radio"
	"github.com/encodeous/beacon/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a node",
	Long:  `This will run a beacon node on the current host, sending beacons as UDP broadcasts on the configured address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ncfg, err := core.ReadNodeConfig(nodeConfigPath)
		if err != nil {
			return err
		}
		if ncfg.UDP == nil {
			ncfg.UDP = &state.UDPCfg{}
			state.ExpandNodeConfig(ncfg)
		}

		log, err := core.NewLogger(ncfg.Id.String(), logLevel(cmd), ncfg.LogPath)
		if err != nil {
			return err
		}
		if state.DBG_debug_addr != "" {
			core.ServeDebug(state.DBG_debug_addr, log)
		}

		tr, err := radio.NewUDPTransport(*ncfg.UDP, log)
		if err != nil {
			return err
		}
		log.Info("listening for beacons", "bind", tr.LocalAddr().String(), "broadcast", ncfg.UDP.Broadcast.String())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return core.Start(ctx, *ncfg, core.Options{
			Transport: tr,
			Log:       log,
			Sink:      &core.LogSink{Log: log, Out: os.Stdout},
		})
	},
	SilenceUsage: true,
	GroupID:      "bc",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&nodeConfigPath, "node-config", "n", nodeConfigPath, "node config")
	runCmd.Flags().BoolVarP(&state.DBG_log_beacon, "lbeacon", "b", false, "Write every beacon sent and received to the console")
	runCmd.Flags().StringVarP(&state.DBG_debug_addr, "debug-addr", "d", "", "Serve /debug/metrics and /debug/vars on this address")
}
