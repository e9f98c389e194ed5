package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/client"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Read the value at KEY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		root, _ := cmd.Flags().GetString("at-root")
		rpcAddr, _ := cmd.Flags().GetString("rpc-addr")
		namespace, _ := cmd.Flags().GetString("namespace")

		c, err := client.NewClient(rpcAddr)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", rpcAddr, err)
		}
		defer c.Close()

		var t *treeobj.Treeobj
		if root != "" {
			t, err = c.LookupAt(namespace, root, key)
		} else {
			t, err = c.Lookup(namespace, key)
		}
		if err != nil {
			return fmt.Errorf("lookup %q: %w", key, err)
		}

		val, err := t.DecodeVal()
		if err != nil {
			return fmt.Errorf("%q is not a val entry: %w", key, err)
		}
		os.Stdout.Write(val)
		return nil
	},
}

func init() {
	getCmd.Flags().String("at-root", "", "Resolve against a specific historical root instead of the current one")
}
