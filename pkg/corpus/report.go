package corpus

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/replicatedhq/patchsmith/pkg/diff"
)

var (
	passText = color.New(color.FgGreen, color.Bold).SprintFunc()
	failText = color.New(color.FgRed, color.Bold).SprintFunc()
	dimText  = color.New(color.Faint).SprintFunc()
)

// Render writes a per-case table followed by totals. Warnings are listed
// under each case when verbose is set.
func (r *Report) Render(w io.Writer, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tRESULT\tTIER\tCHUNKS\tVALID\tTIME")

	for _, res := range r.Results {
		status := passText("pass")
		if !res.Passed {
			status = failText("FAIL")
		}
		valid := "-"
		if res.Valid != nil {
			valid = fmt.Sprintf("%v", *res.Valid)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			res.Name, status, res.Tier, res.ChunksApplied, res.ChunksTotal, valid,
			res.Duration.Round(time.Microsecond))

		if verbose {
			for _, warning := range res.Warnings {
				fmt.Fprintf(tw, "\t%s\t\t\t\t\n", dimText(warning))
			}
			if res.Valid != nil && !*res.Valid {
				fmt.Fprintf(tw, "\t%s\t\t\t\t\n", dimText(res.Validation))
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	tiers := make([]string, 0, len(r.TierCounts))
	for tier := range r.TierCounts {
		tiers = append(tiers, string(tier))
	}
	sort.Strings(tiers)

	fmt.Fprintf(w, "\n%d cases, %d passed, %d failed (%.1f%%) in %s\n",
		len(r.Results), r.Passed, r.Failed, 100*r.PassRate(), r.Duration.Round(time.Millisecond))
	for _, tier := range tiers {
		fmt.Fprintf(w, "  %-10s %d\n", tier, r.TierCounts[diff.Tier(tier)])
	}
	_, err := fmt.Fprintf(w, "window=%d widen=%d min-length-ratio=%.2f timeout=%s\n",
		r.Options.FuzzyWindow, r.Options.ContextWiden, r.Options.MinLengthRatio, r.Options.ExternalTimeout)
	return err
}
