package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/client"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

var putCmd = &cobra.Command{
	Use:   "put KEY",
	Short: "Write a value at KEY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value, _ := cmd.Flags().GetString("value")
		fromFile, _ := cmd.Flags().GetString("from-file")
		appendOp, _ := cmd.Flags().GetBool("append")
		sync, _ := cmd.Flags().GetBool("sync")

		var data []byte
		var err error
		switch {
		case fromFile != "":
			data, err = os.ReadFile(fromFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", fromFile, err)
			}
		default:
			data = []byte(value)
		}

		rpcAddr, _ := cmd.Flags().GetString("rpc-addr")
		namespace, _ := cmd.Flags().GetString("namespace")

		c, err := client.NewClient(rpcAddr)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", rpcAddr, err)
		}
		defer c.Close()

		root, err := c.Commit(namespace, "kvsd-cli", []client.Op{
			{Key: key, Dirent: treeobj.CreateVal(data), Append: appendOp},
		}, sync, false)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		fmt.Printf("root: %s\n", root)
		return nil
	},
}

func init() {
	putCmd.Flags().String("value", "", "Literal value to write")
	putCmd.Flags().String("from-file", "", "Read value from file")
	putCmd.Flags().Bool("append", false, "Append to an existing valref chain instead of overwriting")
	putCmd.Flags().Bool("sync", false, "Force a durable checkpoint before returning")
}
