package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/tally-ho/internal/cli"
	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/engine"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Accept a session and export the final mapping",
		Long: `Commits a session's mapping and writes the final rows for the rendering
stage. Unmapped labels are kept with empty account and value cells so the
renderer can skip them, unless full coverage is required, in which case
any remaining unmapped label blocks the export.

With no argument the latest session is exported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringP("format", "f", "csv", "output format (csv, json)")
	cmd.Flags().Bool("require-full-coverage", false, "refuse to export while unmapped labels remain")

	_ = viper.BindPFlag("export.require_full_coverage", cmd.Flags().Lookup("require-full-coverage"))

	return cmd
}

// exportRow is the on-disk shape of one final mapping row.
type exportRow struct {
	Label    string `csv:"label"    json:"label"`
	Account  string `csv:"account"  json:"account,omitempty"`
	Value    string `csv:"value"    json:"value,omitempty"`
	Category string `csv:"category" json:"category"`
	Tier     string `csv:"tier"     json:"tier"`
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, _ := cmd.Flags().GetString("format")
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported export format: %s", format)
	}
	output, _ := cmd.Flags().GetString("output")

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

	requireFullCoverage := viper.GetBool("export.require_full_coverage") ||
		viper.GetBool("mapping.require_full_coverage")
	session := engine.SessionFromRecord(record, requireFullCoverage)

	final, err := session.Accept()
	if err != nil {
		var blocked *common.ValidationBlockedError
		if errors.As(err, &blocked) {
			fmt.Fprintln(os.Stderr, cli.FormatError("Export blocked: unmapped labels remain"))
			for _, label := range blocked.Unmapped {
				fmt.Fprintf(os.Stderr, "    - %s\n", label)
			}
			fmt.Fprintf(os.Stderr, "Resolve them with %s or export without --require-full-coverage.\n",
				cli.BoldStyle.Render("tally edit"))
		}
		return err
	}

	rows := make([]*exportRow, 0, len(final))
	for i := range final {
		row := &exportRow{
			Label:    final[i].LabelRaw,
			Category: string(final[i].Category),
			Tier:     string(final[i].Tier),
		}
		if final[i].AccountRaw != nil {
			row.Account = *final[i].AccountRaw
			row.Value = final[i].Value.StringFixed(2)
		}
		rows = append(rows, row)
	}

	out := os.Stdout
	if output != "" {
		out, err = os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = out.Close() }()
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rows); err != nil {
			return fmt.Errorf("failed to write JSON export: %w", err)
		}
	default:
		if err := gocsv.MarshalFile(&rows, out); err != nil {
			return fmt.Errorf("failed to write CSV export: %w", err)
		}
	}

	if err := store.MarkSessionAccepted(ctx, record.ID, time.Now().UTC()); err != nil {
		return err
	}

	if output != "" {
		fmt.Fprintln(os.Stderr, cli.FormatSuccess(fmt.Sprintf("Exported %d rows to %s", len(rows), output)))
	}
	return nil
}
