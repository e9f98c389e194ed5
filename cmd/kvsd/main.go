package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kvsd",
	Short: "kvsd - a versioned, content-addressed key/value store",
	Long: `kvsd is a versioned, content-addressed key/value store built
around a Merkle tree of tree objects, a cooperative transaction state
machine, and Raft-replicated root checkpoints.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"kvsd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "./kvsd-data", "Data directory for cluster state")
	rootCmd.PersistentFlags().String("namespace", "primary", "Default namespace for client commands")
	rootCmd.PersistentFlags().String("config", "kvsd.yaml", "Cluster bootstrap config file")
	rootCmd.PersistentFlags().String("rpc-addr", "127.0.0.1:7760", "kvsd RPC address for client commands")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(fenceCmd)
	rootCmd.AddCommand(getrootCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
