package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/client"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

var fenceCmd = &cobra.Command{
	Use:   "fence",
	Short: "Submit ops as one process's contribution to an nprocs-wide barrier",
	Long: `fence submits a batch of ops under --name as one of --nprocs expected
submissions. Once every submission for --name has arrived, their ops are
merged in submission order and committed together. --nprocs 1 behaves
exactly like commit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		nprocs, _ := cmd.Flags().GetInt("nprocs")
		sets, _ := cmd.Flags().GetStringArray("set")
		appends, _ := cmd.Flags().GetStringArray("append")
		unlinks, _ := cmd.Flags().GetStringArray("unlink")
		sync, _ := cmd.Flags().GetBool("sync")
		noMerge, _ := cmd.Flags().GetBool("no-merge")
		rpcAddr, _ := cmd.Flags().GetString("rpc-addr")
		namespace, _ := cmd.Flags().GetString("namespace")
		requestor, _ := cmd.Flags().GetString("requestor")

		if name == "" {
			return fmt.Errorf("fence: --name is required")
		}
		if nprocs < 1 {
			return fmt.Errorf("fence: --nprocs must be at least 1")
		}

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

		c, err := client.NewClient(rpcAddr)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", rpcAddr, err)
		}
		defer c.Close()

		root, seq, ready, err := c.Fence(namespace, requestor, name, nprocs, ops, sync, noMerge)
		if err != nil {
			return fmt.Errorf("fence: %w", err)
		}

		if !ready {
			fmt.Printf("waiting: submission recorded under fence %q, still waiting on other processes\n", name)
			return nil
		}
		fmt.Printf("root: %s\nseq: %d\n", root, seq)
		return nil
	},
}

func init() {
	fenceCmd.Flags().String("name", "", "Fence name shared by every cooperating process")
	fenceCmd.Flags().Int("nprocs", 1, "Number of distinct submissions expected under --name")
	fenceCmd.Flags().String("requestor", "kvsd-cli", "Identity recorded as this submission's requestor")
	fenceCmd.Flags().StringArray("set", nil, "KEY=VALUE to write (repeatable)")
	fenceCmd.Flags().StringArray("append", nil, "KEY=VALUE to append (repeatable)")
	fenceCmd.Flags().StringArray("unlink", nil, "KEY to remove (repeatable)")
	fenceCmd.Flags().Bool("sync", false, "Force a durable checkpoint once the fence completes")
	fenceCmd.Flags().Bool("no-merge", false, "Disable merging with a concurrently committed transaction")
}
