package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/tally-ho/internal/cli"
	"github.com/Veraticus/tally-ho/internal/engine"
	"github.com/Veraticus/tally-ho/internal/ingest"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <session-id|latest> <row> <account>",
		Short: "Override one mapping entry",
		Long: `Replaces one entry's account with a reviewer's choice. The row number is
the one shown by 'tally review'. The account must exist in the session's
pool by its exact name. The entry becomes a manual mapping with
confidence 100.`,
		Args: cobra.ExactArgs(3),
		RunE: runEdit,
	}

	cmd.Flags().String("value", "", "override the entry value (default: the account's value)")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	row, err := strconv.Atoi(args[1])
	if err != nil || row < 1 {
		return fmt.Errorf("row must be a positive number, got %q", args[1])
	}
	accountRaw := args[2]

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	record, err := loadSessionRecord(ctx, store, args[0])
	if err != nil {
		return err
	}
	session := engine.SessionFromRecord(record, false)

	index := row - 1
	value, err := editValue(cmd, session, accountRaw)
	if err != nil {
		return err
	}

	entry, err := session.ApplyEdit(index, accountRaw, value)
	if err != nil {
		return err
	}

	if err := store.UpdateSessionEntry(ctx, record.ID, index, entry); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Row %d: %q → %q (%s)",
		row, entry.Label.Raw, entry.Account.Raw, entry.Value.StringFixed(2))))

	report := session.Validate()
	if len(report.UnmappedLabels) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d labels still unmapped", len(report.UnmappedLabels))))
	}

	return nil
}

// editValue resolves the entry value for an edit: the --value flag when
// given, else the chosen account's own value.
func editValue(cmd *cobra.Command, session *engine.Session, accountRaw string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString("value")
	if raw != "" {
		return ingest.ParseAmount(raw)
	}
	for i := range session.Accounts {
		if session.Accounts[i].Raw == accountRaw {
			return session.Accounts[i].Value, nil
		}
	}
	return decimal.Zero, fmt.Errorf("account %q is not in the session's pool", accountRaw)
}
