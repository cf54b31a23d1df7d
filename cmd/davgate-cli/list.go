package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate/clientcli"
)

var listCmd = &cobra.Command{
	Use:     "list <collection>",
	Aliases: []string{"ls"},
	Short:   "List the members of a collection",
	Long: `List the immediate members of a collection with PROPFIND.

The collection path starts with the bucket name.

Examples:
  davgate-cli list files
  davgate-cli list files/docs
  davgate-cli list --json media/images`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.List(cmd.Context(), clientcli.ListOptions{Path: args[0]})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatList(os.Stdout, result)
}
