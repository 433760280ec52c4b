package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replicatedhq/patchsmith/pkg/corpus"
	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/logger"
	"github.com/replicatedhq/patchsmith/pkg/param"
	"github.com/replicatedhq/patchsmith/pkg/persistence"
	"github.com/replicatedhq/patchsmith/pkg/syntax"
)

func CorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Build and evaluate corpora of patch cases",
	}

	cmd.AddCommand(corpusEvalCmd())
	cmd.AddCommand(corpusSynthesizeCmd())
	cmd.AddCommand(corpusRunsCmd())

	return cmd
}

func corpusEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval DIR",
		Short: "Apply every case in a corpus and report the pass rate",
		Long: `Eval loads every .yaml case under DIR, applies its hunks to its source and
compares the result with the expected text. With --store the report is saved to
Postgres (PATCHSMITH_PG_URI) so runs with different engine options can be compared.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			v := viper.GetViper()

			cases, err := corpus.Load(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to load corpus")
			}
			if len(cases) == 0 {
				return errors.Errorf("no cases found in %s", args[0])
			}

			engine := diff.NewEngine(engineOptions(cmd))
			report, err := corpus.Evaluate(ctx, engine, cases, corpus.EvaluateOptions{
				Workers:  v.GetInt("workers"),
				Rate:     v.GetFloat64("rate"),
				Validate: v.GetBool("validate"),
			})
			if err != nil {
				return errors.Wrap(err, "evaluation failed")
			}

			if v.GetBool("json") {
				b, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return errors.Wrap(err, "failed to marshal report")
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
			} else if err := report.Render(cmd.OutOrStdout(), v.GetBool("verbose")); err != nil {
				return errors.Wrap(err, "failed to render report")
			}

			if v.GetBool("store") {
				runID, err := storeReport(ctx, report)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "stored run %s\n", runID)
			}

			if report.Failed > 0 && v.GetBool("fail") {
				return errors.Errorf("%d of %d cases failed", report.Failed, len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().Int("workers", 4, "Number of cases applied concurrently")
	cmd.Flags().Float64("rate", 0, "Maximum cases started per second, 0 for no limit")
	cmd.Flags().Bool("validate", false, "Validate the syntax of every result")
	cmd.Flags().Bool("store", false, "Save the report to Postgres")
	cmd.Flags().Bool("verbose", false, "List the warnings of every case")
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	cmd.Flags().Bool("fail", false, "Exit with an error when any case fails")
	engineFlags(cmd)

	return cmd
}

func initStore(ctx context.Context) error {
	pgURI := param.Get().PGURI
	if pgURI == "" {
		return errors.New("PATCHSMITH_PG_URI is not set")
	}
	if err := persistence.InitPostgres(persistence.PostgresOpts{URI: pgURI}); err != nil {
		return fmt.Errorf("failed to initialize postgres connection: %w", err)
	}
	if err := persistence.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func storeReport(ctx context.Context, report *corpus.Report) (string, error) {
	if err := initStore(ctx); err != nil {
		return "", err
	}
	defer persistence.ClosePostgres()

	runID, err := persistence.SaveEvaluation(ctx, report)
	if err != nil {
		return "", errors.Wrap(err, "failed to store report")
	}
	logger.Info("stored evaluation", logger.Any("run", runID), logger.Any("passed", report.Passed), logger.Any("failed", report.Failed))
	return runID, nil
}

func corpusSynthesizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Generate patch cases from random edits of a source",
		Long: `Synthesize makes random edits to a source file, diffs each edit against the
original and writes the source, the hunks and the expected text as a case file.
With --drift every hunk header is shifted by a random offset, the way a code
generator's line numbers drift. Without --file a random source is generated.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()

			outDir := v.GetString("out")
			if outDir == "" {
				return errors.New("--out is required")
			}

			seed := v.GetInt64("seed")
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			lang := syntax.ParseLanguage(v.GetString("language"))
			name := v.GetString("name")

			var source string
			if file := v.GetString("file"); file != "" {
				content, err := os.ReadFile(file)
				if err != nil {
					return errors.Wrapf(err, "failed to read %s", file)
				}
				source = string(content)
				if v.GetString("language") == "" {
					lang = syntax.DetectLanguage(file, source)
				}
				if name == "" {
					name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
				}
			} else {
				complexity := corpus.Complexity(v.GetString("complexity"))
				switch complexity {
				case corpus.ComplexityLow, corpus.ComplexityMedium, corpus.ComplexityHigh:
				default:
					return errors.Errorf("invalid complexity %q, must be low, medium, or high", complexity)
				}
				if v.GetString("language") == "" {
					lang = syntax.Procedural
				}
				source = corpus.GenerateSource(rand.New(rand.NewSource(seed)), lang, complexity)
			}

			cases, err := corpus.Synthesize(source, corpus.SynthesizeOptions{
				Name:     name,
				Language: lang,
				Seed:     seed,
				Count:    v.GetInt("count"),
				MaxEdits: v.GetInt("edits"),
				Drift:    v.GetInt("drift"),
			})
			if err != nil {
				return errors.Wrap(err, "failed to synthesize cases")
			}

			if err := corpus.Save(outDir, cases); err != nil {
				return errors.Wrap(err, "failed to save cases")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d cases to %s (seed %d)\n", len(cases), outDir, seed)
			return nil
		},
	}

	cmd.Flags().String("file", "", "Source file to edit")
	cmd.Flags().String("language", "", "Language of the source")
	cmd.Flags().String("complexity", string(corpus.ComplexityMedium), "Complexity of a generated source (low, medium, high)")
	cmd.Flags().String("name", "", "Case name prefix")
	cmd.Flags().String("out", "", "Directory the case files are written to")
	cmd.Flags().Int("count", 10, "Number of cases")
	cmd.Flags().Int("edits", 3, "Maximum random edits per case")
	cmd.Flags().Int("drift", 0, "Maximum header offset in lines")
	cmd.Flags().Int64("seed", 0, "Random seed, time based when unset")

	return cmd
}

func corpusRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored evaluation runs",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := initStore(ctx); err != nil {
				return err
			}
			defer persistence.ClosePostgres()

			runs, err := persistence.ListEvaluations(ctx, viper.GetInt("limit"))
			if err != nil {
				return errors.Wrap(err, "failed to list runs")
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tCASES\tPASSED\tFAILED\tWINDOW\tWIDEN\tRATIO\tTIME")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%s\n",
					r.ID, r.CreatedAt.Format(time.RFC3339), r.CaseCount, r.Passed, r.Failed,
					r.FuzzyWindow, r.ContextWiden, r.MinLengthRatio, r.Duration)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "Number of runs to list")

	return cmd
}
