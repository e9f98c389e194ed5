package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/client"
)

var getrootCmd = &cobra.Command{
	Use:   "getroot",
	Short: "Print the namespace's current root and sequence number",
	RunE: func(cmd *cobra.Command, args []string) error {
		rpcAddr, _ := cmd.Flags().GetString("rpc-addr")
		namespace, _ := cmd.Flags().GetString("namespace")

		c, err := client.NewClient(rpcAddr)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", rpcAddr, err)
		}
		defer c.Close()

		root, seq, err := c.GetRoot(namespace)
		if err != nil {
			return fmt.Errorf("getroot: %w", err)
		}

		fmt.Printf("root: %s\nseq:  %d\n", root, seq)
		return nil
	},
}
