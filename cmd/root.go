// Package cmd provides the root command and CLI setup for prism.
package cmd

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/prism-rts/prism/internal/adapter"
	"github.com/prism-rts/prism/internal/controller"
	"github.com/prism-rts/prism/internal/domain"
	m "github.com/prism-rts/prism/internal/model"
)

var gitAdapter adapter.GitAdapter

// storeDirFlag is a root-level flag naming the store directory under the
// project root.
var storeDirFlag string

// excludePatterns filters files out of recorded spectra.
var excludePatterns []string

// projectRootFlag overrides the git-resolved project root.
var projectRootFlag string

// verboseFlag raises the log level to debug.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Shared collaborators; everything root-dependent is wired per
	// invocation in newWorkflow.
	gitAdapter = adapter.NewLocalGitAdapter()
}

const rootLongDescription = `Prism records which source lines each test executes and answers which
tests may be affected when a given line changes.

Record coverage after running tests, then query before the next run:

  prism record ./pkg/store store.cover
  prism affected internal/store/store.go:42`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prism",
		Short: "Regression test selection for Go",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&storeDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"store directory name under the project root",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex while recording (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().StringVar(&projectRootFlag, rootFlagName, "", "project root (default: resolved via git)")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "enable debug logging")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// resolveProjectRoot picks the --root override when given, otherwise asks
// the git collaborator starting from the working directory.
func resolveProjectRoot() (m.Path, error) {
	if projectRootFlag != "" {
		return m.Path(projectRootFlag), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}

	root, err := gitAdapter.ProjectRoot(m.Path(cwd))
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}

	return root, nil
}

// newWorkflow wires the store, selector, coverage parser and UI for one
// command invocation. Everything downstream depends on the project root, so
// this runs after flag parsing.
func newWorkflow(cmd *cobra.Command) (domain.Workflow, error) {
	root, err := resolveProjectRoot()
	if err != nil {
		return nil, err
	}

	exclude, err := compileExcludes(viper.GetStringSlice(excludeConfigKey))
	if err != nil {
		return nil, err
	}

	store, err := adapter.NewLocalMappingStore(root, viper.GetString(outputFlagName))
	if err != nil {
		return nil, err
	}

	selector, err := domain.NewSelector(store, root, exclude)
	if err != nil {
		return nil, err
	}

	coverage := adapter.NewLocalCoverageAdapter(root)
	ui := controller.NewUI(cmd, controller.IsTTY(os.Stdout))

	return domain.NewWorkflow(selector, store, coverage, gitAdapter, ui, root), nil
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		compiled = append(compiled, re)
	}

	return compiled, nil
}
