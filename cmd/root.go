package cmd

import (
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "patchsmith",
		Short: "Apply generated diff hunks to source files",
		Long: `Patchsmith applies unified diff hunks produced by a code generator to a source
file. Hunks with drifted line numbers or inconsistent headers are still placed,
falling back from the patch tools to an in-process applier and finally to a
line-by-line applier that never fails.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(ApplyCmd())
	rootCmd.AddCommand(ValidateCmd())
	rootCmd.AddCommand(CorpusCmd())
	rootCmd.AddCommand(DebugConsoleCmd())

	return rootCmd
}
