package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate/clientcli"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <remote-path> [remote-path...]",
	Aliases: []string{"rm"},
	Short:   "Delete resources from the server",
	Long: `Delete one or more resources from the server.

Deleting a collection removes everything below it.

Examples:
  davgate-cli delete files/docs/file.txt
  davgate-cli delete files/old/a.txt files/old/b.txt
  davgate-cli delete -q files/tmp`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{Paths: args})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}
