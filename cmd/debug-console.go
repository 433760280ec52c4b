package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replicatedhq/patchsmith/pkg/debugcli"
)

func DebugConsoleCmd() *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "debug-console [command] [flags]",
		Short: "Interactive debug console for patchsmith",
		Long: `A development tool that provides an interactive console for loading a source,
queueing hunks and applying them, with the tier and per-chunk outcome of every
apply shown.

When run without arguments, it launches an interactive console mode.
When run with a command, it executes that command and exits, suitable for scripting.

Examples:
  # Interactive mode
  debug-console --file job.py

  # Run a single command (non-interactive mode)
  debug-console tiers
  debug-console --file job.py -- apply change.diff --output=job.patched.py`,
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initParams(cmd); err != nil {
				return err
			}

			// If we have command args, set non-interactive mode
			if len(args) > 0 {
				nonInteractive = true
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
			defer stop()

			v := viper.GetViper()
			opts := debugcli.ConsoleOptions{
				File:           v.GetString("file"),
				Language:       v.GetString("language"),
				EngineOptions:  engineOptions(cmd),
				NonInteractive: nonInteractive,
				Command:        args,
				Out:            cmd.OutOrStdout(),
			}
			return debugcli.RunConsole(ctx, opts)
		},
	}

	cmd.Flags().String("file", "", "Source file loaded at startup")
	cmd.Flags().String("language", "", "Language of the source, detected when empty")
	engineFlags(cmd)

	return cmd
}
