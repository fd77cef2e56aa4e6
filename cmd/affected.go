package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prism-rts/prism/internal/controller"
	"github.com/prism-rts/prism/internal/domain"
)

var affectedFormatFlag string

const affectedLongDescription = `Print the tests whose recorded spectra contain exactly the given line.

The file must be given in the stored root-relative form (or as an absolute
path under the project root, which is normalized):

  prism affected internal/store/store.go:42
  prism affected /internal/store/store.go 42
  prism affected internal/store/store.go:42 --format json

Only an exact line match counts: a test that executed lines 10 and 20 of a
file is not affected by a change to line 15.`

// affectedCmd represents the affected command.
var affectedCmd = newAffectedCmd()

func newAffectedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "affected <file>:<line>",
		Short: "List tests affected by a changed line",
		Long:  affectedLongDescription,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, line, err := parseAffectedArgs(args)
			if err != nil {
				return err
			}

			workflow, err := newWorkflow(cmd)
			if err != nil {
				return err
			}

			return workflow.Affected(cmd.Context(), domain.AffectedArgs{
				File:   file,
				Line:   line,
				Format: affectedFormatFlag,
			})
		},
	}

	cmd.Flags().StringVarP(&affectedFormatFlag, formatFlagName, "f", controller.FormatTable, "output format: table, yaml or json")

	return cmd
}

func init() {
	rootCmd.AddCommand(affectedCmd)
}

// parseAffectedArgs accepts either "<file>:<line>" or "<file> <line>".
func parseAffectedArgs(args []string) (string, int, error) {
	if len(args) == 2 {
		line, err := strconv.Atoi(args[1])
		if err != nil {
			return "", 0, fmt.Errorf("invalid line number %q", args[1])
		}

		return args[0], line, nil
	}

	colon := strings.LastIndex(args[0], ":")
	if colon < 0 {
		return "", 0, fmt.Errorf("expected <file>:<line>, got %q", args[0])
	}

	line, err := strconv.Atoi(args[0][colon+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid line number %q", args[0][colon+1:])
	}

	return args[0][:colon], line, nil
}
