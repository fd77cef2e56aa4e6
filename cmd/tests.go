package cmd

import (
	"github.com/spf13/cobra"

	"github.com/prism-rts/prism/internal/controller"
)

var testsFormatFlag string

// testsCmd represents the tests command.
var testsCmd = newTestsCmd()

func newTestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tests",
		Short: "List recorded tests and their spectra sizes",
		Long:  "List every test in the mapping with the number of covered files and lines it recorded.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, err := newWorkflow(cmd)
			if err != nil {
				return err
			}

			return workflow.Tests(cmd.Context(), testsFormatFlag)
		},
	}

	cmd.Flags().StringVarP(&testsFormatFlag, formatFlagName, "f", controller.FormatTable, "output format: table, yaml or json")

	return cmd
}

func init() {
	rootCmd.AddCommand(testsCmd)
}
