package cmd

import (
	"github.com/spf13/cobra"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Browse the recorded mapping",
		Long:  "Browse the recorded mapping interactively: every test with its covered files and line ranges.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, err := newWorkflow(cmd)
			if err != nil {
				return err
			}

			return workflow.View(cmd.Context())
		},
	}
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
