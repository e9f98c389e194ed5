package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/client"
)

var lsCmd = &cobra.Command{
	Use:   "ls [KEY]",
	Short: "List the entries of a directory key (the root directory if KEY is omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := "."
		if len(args) == 1 {
			key = args[0]
		}
		rpcAddr, _ := cmd.Flags().GetString("rpc-addr")
		namespace, _ := cmd.Flags().GetString("namespace")

		c, err := client.NewClient(rpcAddr)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", rpcAddr, err)
		}
		defer c.Close()

		t, err := c.Lookup(namespace, key)
		if err != nil {
			return fmt.Errorf("lookup %q: %w", key, err)
		}
		if !t.IsDir() {
			return fmt.Errorf("%q is not a directory", key)
		}
		names, err := t.DirKeys()
		if err != nil {
			return fmt.Errorf("list %q: %w", key, err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}
