package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate/clientcli"
)

var (
	transferNoOverwrite bool
	copyShallow         bool
)

var copyCmd = &cobra.Command{
	Use:     "copy <source> <destination>",
	Aliases: []string{"cp"},
	Short:   "Copy a resource on the server",
	Long: `Copy a resource or collection with COPY.

Source and destination may live in different buckets.

Examples:
  davgate-cli copy files/a.txt files/b.txt
  davgate-cli copy --no-overwrite files/docs archive/docs
  davgate-cli copy --shallow files/docs files/empty-docs`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, args, false)
	},
}

var moveCmd = &cobra.Command{
	Use:     "move <source> <destination>",
	Aliases: []string{"mv"},
	Short:   "Move a resource on the server",
	Long: `Move a resource or collection with MOVE.

Examples:
  davgate-cli move files/a.txt files/renamed.txt
  davgate-cli move files/docs archive/docs`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, args, true)
	},
}

func init() {
	copyCmd.Flags().BoolVar(&transferNoOverwrite, "no-overwrite", false, "fail if the destination exists")
	copyCmd.Flags().BoolVar(&copyShallow, "shallow", false, "copy a collection without its members")
	moveCmd.Flags().BoolVar(&transferNoOverwrite, "no-overwrite", false, "fail if the destination exists")
}

func runTransfer(cmd *cobra.Command, args []string, move bool) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	opts := clientcli.TransferOptions{
		Source:      args[0],
		Destination: args[1],
		Overwrite:   !transferNoOverwrite,
		Shallow:     copyShallow,
	}

	var result *clientcli.TransferResult
	if move {
		result, err = client.Move(cmd.Context(), opts)
	} else {
		result, err = client.Copy(cmd.Context(), opts)
	}
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatTransfer(os.Stdout, result)
}
