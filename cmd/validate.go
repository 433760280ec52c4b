package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replicatedhq/patchsmith/pkg/syntax"
)

func ValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the syntax of a file",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			file := v.GetString("file")

			content, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", file)
			}

			lang := syntax.DetectLanguage(file, string(content))
			if tag := v.GetString("language"); tag != "" {
				lang = syntax.ParseLanguage(tag)
			}

			ok, msg := syntax.Validate(context.Background(), string(content), lang)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", file, lang, msg)
			if !ok {
				return errors.Errorf("%s is not valid %s", file, lang)
			}
			return nil
		},
	}

	cmd.Flags().String("file", "", "File to validate")
	cmd.Flags().String("language", "", "Language of the file, detected when empty")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
