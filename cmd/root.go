package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	nodeConfigPath = "node.yaml"
	simConfigPath  = "sim.yaml"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Periodic beacon neighbour discovery",
	Long: `Beacon discovers the nodes within radio range by periodically broadcasting a small beacon.
Every node keeps a short table of its best neighbours, ranked by signal strength, and forgets nodes it has not heard from in a while.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func logLevel(cmd *cobra.Command) slog.Level {
	if ok, _ := cmd.Flags().GetBool("verbose"); ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Create Configuration",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "bc",
		Title: "Beacon Commands",
	})
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
}
