// Package cli wires the parfit commands.
package cli

import "github.com/spf13/cobra"

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "parfit",
		Short:         "parfit: parallel evaluation engine for sampling and derivative-free optimization",
		Long:          "parfit runs a pluggable sampling or optimization strategy against an objective function, evaluating each proposed batch of parameter vectors on a fixed worker pool and persisting one record per iteration.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newRecordsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
