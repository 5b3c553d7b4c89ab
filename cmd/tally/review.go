package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally-ho/internal/cli"
	"github.com/Veraticus/tally-ho/internal/engine"
	"github.com/Veraticus/tally-ho/internal/model"

	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review [session-id]",
		Short: "Review a mapping session",
		Long: `Shows a session's mapping table, colored by confidence tier, followed by
the validation report: reused accounts, unmapped labels, low confidence
entries, and the advisory balance check.

With no argument the latest session is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReview,
	}
	return cmd
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	record, err := loadSessionRecord(ctx, store, arg)
	if err != nil {
		return err
	}

	session := engine.SessionFromRecord(record, false)

	fmt.Println(cli.FormatTitle("Mapping session " + record.ID))
	fmt.Println(cli.SubtitleStyle.Render(fmt.Sprintf("created %s, %d labels, %d accounts",
		formatTimestamp(record.CreatedAt), len(record.Entries), len(record.Accounts))))

	printEntryTable(record.Entries)
	printValidationReport(session.Validate())

	return nil
}

func printEntryTable(entries []model.MappingEntry) {
	header := fmt.Sprintf("%4s  %-34s  %-34s  %12s  %5s  %-7s  %s",
		"#", "LABEL", "ACCOUNT", "VALUE", "CONF", "TIER", "METHOD")
	fmt.Println(cli.TableHeaderStyle.Render(header))

	for i := range entries {
		entry := &entries[i]
		account := "-"
		if entry.Account != nil {
			account = entry.Account.Raw
		}
		row := fmt.Sprintf("%4d  %-34s  %-34s  %12s  %5d  %-7s  %s",
			i+1,
			truncate(entry.Label.Raw, 34),
			truncate(account, 34),
			entryValue(entry),
			entry.Confidence,
			entry.Tier(),
			entry.Method)
		fmt.Println(cli.StyleTier(entry.Tier(), row))

		if entry.Reasoning != "" {
			fmt.Println(cli.SubtleStyle.Render("      " + truncate(entry.Reasoning, 100)))
		}
	}
}

func printValidationReport(report *model.ValidationReport) {
	fmt.Println()
	fmt.Println(cli.BoldStyle.Render("Validation"))
	fmt.Printf("  Tiers: high %d / medium %d / low %d\n",
		report.TierCounts[model.TierHigh],
		report.TierCounts[model.TierMedium],
		report.TierCounts[model.TierLow])

	if len(report.UnmappedLabels) > 0 {
		fmt.Println(cli.FormatError(fmt.Sprintf("%d unmapped labels:", len(report.UnmappedLabels))))
		for _, label := range report.UnmappedLabels {
			fmt.Printf("    - %s\n", label)
		}
	}

	if len(report.ReusedAccounts) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d accounts used more than once:", len(report.ReusedAccounts))))
		for _, reuse := range report.ReusedAccounts {
			fmt.Printf("    - %s ← %s\n", reuse.AccountRaw, strings.Join(reuse.Labels, ", "))
		}
	}

	if len(report.LowConfidence) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d entries below the High tier:", len(report.LowConfidence))))
		for _, low := range report.LowConfidence {
			fmt.Printf("    - %s → %s (%d, %s)\n", low.LabelRaw, low.AccountRaw, low.Confidence, low.Tier)
		}
	}

	if report.Balance != nil {
		if report.Balance.Balanced {
			fmt.Println(cli.FormatSuccess("Balance check: assets = liabilities + equity"))
		} else {
			fmt.Println(cli.FormatWarning(fmt.Sprintf(
				"Balance check: assets %s vs liabilities+equity %s (difference %s)",
				report.Balance.Assets.StringFixed(2),
				report.Balance.Liabilities.Add(report.Balance.Equity).StringFixed(2),
				report.Balance.Difference.StringFixed(2))))
		}
	}

	if report.Clean() {
		fmt.Println(cli.FormatSuccess("Nothing flagged"))
	}
}

// truncate shortens s to limit characters. It counts runes so multibyte
// text is never split mid-character.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
