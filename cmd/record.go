package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prism-rts/prism/internal/domain"
	m "github.com/prism-rts/prism/internal/model"
)

var recordBatchFlag string
var recordParallelFlag int

const recordLongDescription = `Record which source lines a test executed.

Single test, from a go cover profile:

  prism record ./pkg/store store.cover

Many tests at once, from a YAML manifest of test/profile pairs:

  prism record --batch coverage.yaml

Manifest shape:

  tests:
    - test: ./pkg/store
      profile: cover/store.out
    - test: ./pkg/query
      profile: cover/query.out

Re-recording a test replaces its previous entry entirely.`

// recordCmd represents the record command.
var recordCmd = newRecordCmd()

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record [test-id] [coverprofile]",
		Short: "Record per-line coverage for a test",
		Long:  recordLongDescription,
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflow, err := newWorkflow(cmd)
			if err != nil {
				return err
			}

			if recordBatchFlag != "" {
				if len(args) != 0 {
					return fmt.Errorf("--batch takes no positional arguments")
				}

				return workflow.RecordBatch(cmd.Context(), domain.BatchArgs{
					Manifest: recordBatchFlag,
					Threads:  viper.GetInt(recordParallelConfigKey),
				})
			}

			if len(args) != 2 {
				return fmt.Errorf("expected <test-id> <coverprofile>, got %d argument(s)", len(args))
			}

			return workflow.Record(cmd.Context(), domain.RecordArgs{
				Test:    m.TestID(args[0]),
				Profile: args[1],
			})
		},
	}

	configureRecordFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(recordCmd)
}

func configureRecordFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&recordBatchFlag, "batch", "b", "", "YAML manifest of test/profile pairs to record in one run")
	cmd.Flags().IntVarP(&recordParallelFlag, parallelFlagName, "p", viper.GetInt(recordParallelConfigKey), "number of parallel workers for batch profile parsing")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), recordParallelConfigKey)
}
