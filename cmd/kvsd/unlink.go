package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/client"
)

var unlinkCmd = &cobra.Command{
	Use:   "unlink KEY",
	Short: "Remove KEY from the namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		sync, _ := cmd.Flags().GetBool("sync")
		rpcAddr, _ := cmd.Flags().GetString("rpc-addr")
		namespace, _ := cmd.Flags().GetString("namespace")

		c, err := client.NewClient(rpcAddr)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", rpcAddr, err)
		}
		defer c.Close()

		root, err := c.Commit(namespace, "kvsd-cli", []client.Op{
			{Key: key, Dirent: nil},
		}, sync, false)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		fmt.Printf("root: %s\n", root)
		return nil
	},
}

func init() {
	unlinkCmd.Flags().Bool("sync", false, "Force a durable checkpoint before returning")
}
