package cmd

import (
	"github.com/spf13/cobra"
)

// saveCommitCmd represents the save-commit command.
var saveCommitCmd = newSaveCommitCmd()

func newSaveCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save-commit [commit]",
		Short: "Store the commit the mapping was computed against",
		Long: `Overwrite the commit marker with the given commit identifier, defaulting
to the current HEAD. The marker is informational: external tooling reads it
to detect a stale mapping; record and affected never consult it.`,
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflow, err := newWorkflow(cmd)
			if err != nil {
				return err
			}

			commit := ""
			if len(args) == 1 {
				commit = args[0]
			}

			return workflow.SaveCommit(cmd.Context(), commit)
		},
	}
}

func init() {
	rootCmd.AddCommand(saveCommitCmd)
}
