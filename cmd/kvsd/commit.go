package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/client"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Apply a batch of write/append/unlink ops as a single transaction",
	Long: `commit applies a batch of ops atomically. Repeat --set/--append to
write, and --unlink to remove, building up a single transaction committed
together against the current root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, _ := cmd.Flags().GetStringArray("set")
		appends, _ := cmd.Flags().GetStringArray("append")
		unlinks, _ := cmd.Flags().GetStringArray("unlink")
		sync, _ := cmd.Flags().GetBool("sync")
		noMerge, _ := cmd.Flags().GetBool("no-merge")

		var ops []client.Op
		for _, kv := range sets {
			key, val, err := splitKV(kv)
			if err != nil {
				return err
			}
			ops = append(ops, client.Op{Key: key, Dirent: treeobj.CreateVal([]byte(val))})
		}
		for _, kv := range appends {
			key, val, err := splitKV(kv)
			if err != nil {
				return err
			}
			ops = append(ops, client.Op{Key: key, Dirent: treeobj.CreateVal([]byte(val)), Append: true})
		}
		for _, key := range unlinks {
			ops = append(ops, client.Op{Key: key, Dirent: nil})
		}
		if len(ops) == 0 {
			return fmt.Errorf("commit: no ops given (use --set, --append, or --unlink)")
		}

		rpcAddr, _ := cmd.Flags().GetString("rpc-addr")
		namespace, _ := cmd.Flags().GetString("namespace")

		c, err := client.NewClient(rpcAddr)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", rpcAddr, err)
		}
		defer c.Close()

		root, err := c.Commit(namespace, "kvsd-cli", ops, sync, noMerge)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		fmt.Printf("root: %s\n", root)
		return nil
	},
}

func splitKV(s string) (key, val string, err error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("commit: %q is not in KEY=VALUE form", s)
	}
	return parts[0], parts[1], nil
}

func init() {
	commitCmd.Flags().StringArray("set", nil, "KEY=VALUE to write (repeatable)")
	commitCmd.Flags().StringArray("append", nil, "KEY=VALUE to append (repeatable)")
	commitCmd.Flags().StringArray("unlink", nil, "KEY to remove (repeatable)")
	commitCmd.Flags().Bool("sync", false, "Force a durable checkpoint before returning")
	commitCmd.Flags().Bool("no-merge", false, "Disable merging with a concurrently committed transaction")
}
