package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/extract"
	"github.com/replicatedhq/patchsmith/pkg/logger"
	"github.com/replicatedhq/patchsmith/pkg/syntax"
)

type applyOutput struct {
	diff.ApplyResult
	Language   string `json:"language,omitempty"`
	Valid      *bool  `json:"valid,omitempty"`
	Validation string `json:"validation,omitempty"`
}

func ApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply diff hunks to a file",
		Long: `Apply reads a source file and one or more hunks, applies them and prints the
patched text. Hunks come from hunk files (--hunks, repeatable, each may hold
several hunks) or are extracted from a raw generator response (--response).

Warnings and the tier that produced the text are printed on stderr.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hunkFiles, err := cmd.Flags().GetStringArray("hunks")
			if err != nil {
				return err
			}
			v := viper.GetViper()
			return runApply(ctx, cmd, v.GetString("file"), hunkFiles, v.GetString("response"))
		},
	}

	cmd.Flags().String("file", "", "Source file to patch")
	cmd.Flags().StringArray("hunks", nil, "File holding one or more hunks")
	cmd.Flags().String("response", "", "Generator response to extract hunks from")
	cmd.Flags().String("language", "", "Language of the source, detected when empty")
	cmd.Flags().String("output", "", "Write the patched text to this file instead of stdout")
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	cmd.Flags().Bool("validate", false, "Validate the syntax of the patched text")
	engineFlags(cmd)

	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readHunks(hunkFiles []string, responseFile string) ([]string, error) {
	var hunks []string
	for _, path := range hunkFiles {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read hunk file %s", path)
		}
		hunks = append(hunks, diff.SplitHunks(string(content))...)
	}

	if responseFile != "" {
		content, err := os.ReadFile(responseFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read response %s", responseFile)
		}
		found := extract.Hunks(string(content))
		if len(found) == 0 {
			logger.Warn("no hunks found in response", logger.Any("file", responseFile))
		}
		hunks = append(hunks, found...)
	}

	return hunks, nil
}

func runApply(ctx context.Context, cmd *cobra.Command, file string, hunkFiles []string, responseFile string) error {
	v := viper.GetViper()

	source, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", file)
	}

	hunks, err := readHunks(hunkFiles, responseFile)
	if err != nil {
		return err
	}
	if len(hunks) == 0 && len(hunkFiles) == 0 && responseFile == "" {
		return errors.New("no hunks given, use --hunks or --response")
	}

	engine := diff.NewEngine(engineOptions(cmd))
	res := engine.Apply(ctx, string(source), hunks)

	out := applyOutput{ApplyResult: res}
	if v.GetBool("validate") {
		lang := syntax.DetectLanguage(file, res.Text)
		if tag := v.GetString("language"); tag != "" {
			lang = syntax.ParseLanguage(tag)
		}
		ok, msg := syntax.Validate(ctx, res.Text, lang)
		out.Language = lang.String()
		out.Valid = &ok
		out.Validation = msg
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "tier=%s chunks=%d/%d success=%v\n", res.Tier, res.ChunksApplied, res.ChunksTotal, res.Success)
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	if out.Valid != nil && !*out.Valid {
		fmt.Fprintf(stderr, "validation failed: %s\n", out.Validation)
	}

	if v.GetBool("json") {
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal result")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}

	if output := v.GetString("output"); output != "" {
		if err := os.WriteFile(output, []byte(res.Text), 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", output)
		}
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), res.Text)
	return nil
}
