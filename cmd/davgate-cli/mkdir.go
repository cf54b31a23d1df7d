package main

import (
	"os"

	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <remote-path> [remote-path...]",
	Short: "Create collections",
	Long: `Create one collection per path with MKCOL.

The parent collection must already exist.

Examples:
  davgate-cli mkdir files/docs
  davgate-cli mkdir files/a files/a/b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMkdir,
}

func runMkdir(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Mkdir(cmd.Context(), args)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatMkdir(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return &exitError{code: 1}
		}
	}
	return nil
}
