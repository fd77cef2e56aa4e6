package cmd

import (
	"github.com/spf13/cobra"

	"github.com/prism-rts/prism/internal/controller"
)

var statusFormatFlag string

// statusCmd represents the status command.
var statusCmd = newStatusCmd()

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show mapping size and commit staleness",
		Long:  "Show the store location, mapping size, and whether HEAD moved since the commit marker was saved.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, err := newWorkflow(cmd)
			if err != nil {
				return err
			}

			return workflow.Status(cmd.Context(), statusFormatFlag)
		},
	}

	cmd.Flags().StringVarP(&statusFormatFlag, formatFlagName, "f", controller.FormatTable, "output format: table, yaml or json")

	return cmd
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
