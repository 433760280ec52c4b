package cmd

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/logger"
	"github.com/replicatedhq/patchsmith/pkg/param"
)

// engineFlags registers the flags that override engine parameters.
func engineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("fuzzy-window", 0, "Lines searched on each side of a hunk's stated position")
	cmd.Flags().Duration("external-timeout", 0, "Timeout for each patch tool run")
	cmd.Flags().Float64("min-length-ratio", 0, "Minimum result/source length ratio accepted from patch tools")
	cmd.Flags().Bool("no-external", false, "Skip the patch and git apply tier")
	cmd.Flags().Bool("no-structured", false, "Skip the in-process structured tier")
}

// initParams binds flags, loads parameters and applies the log level. The
// aws session is only used when USE_EC2_PARAMETERS is set.
func initParams(cmd *cobra.Command) error {
	v := viper.GetViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	sess, err := session.NewSession(aws.NewConfig().WithCredentialsChainVerboseErrors(true))
	if err != nil {
		// logging is not configured yet
		fmt.Printf("Failed to create aws session: %v\n", err)
	}

	if err := param.Init(sess); err != nil {
		return fmt.Errorf("failed to init params: %w", err)
	}

	level := v.GetString("log-level")
	if level == "" {
		level = param.Get().LogLevel
	}
	if err := logger.SetLevel(level); err != nil {
		return err
	}
	if len(loadedEnvFiles) > 0 {
		logger.Debug("loaded env files", logger.Any("files", loadedEnvFiles))
	}
	return nil
}

// engineOptions starts from the loaded parameters and applies any flag the
// user set explicitly.
func engineOptions(cmd *cobra.Command) diff.Options {
	v := viper.GetViper()
	opts := param.Get().EngineOptions()

	flags := cmd.Flags()
	if flags.Changed("fuzzy-window") {
		opts.FuzzyWindow = v.GetInt("fuzzy-window")
	}
	if flags.Changed("external-timeout") {
		opts.ExternalTimeout = v.GetDuration("external-timeout")
	}
	if flags.Changed("min-length-ratio") {
		opts.MinLengthRatio = v.GetFloat64("min-length-ratio")
	}
	if flags.Changed("no-external") {
		opts.DisableExternal = v.GetBool("no-external")
	}
	if flags.Changed("no-structured") {
		opts.DisableStructured = v.GetBool("no-structured")
	}
	return opts
}
