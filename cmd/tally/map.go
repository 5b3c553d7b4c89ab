package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/tally-ho/internal/cli"
	"github.com/Veraticus/tally-ho/internal/engine"
	"github.com/Veraticus/tally-ho/internal/ingest"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map statement labels onto current-period accounts",
		Long: `Reads template labels and a trial balance, maps each label to its best
matching account, and stores the result as a reviewable session.

Strategies:
  basic       lexical similarity over the whole account pool
  structured  category partitioned search with a boost for agreement
  semantic    external semantic matcher with lexical fallback per batch`,
		RunE: runMap,
	}

	// Flags
	cmd.Flags().StringP("labels", "l", "", "labels file (text or single-column CSV)")
	cmd.Flags().StringP("accounts", "a", "", "accounts CSV file (name,value)")
	cmd.Flags().StringP("strategy", "s", "structured", "mapping strategy (basic, structured, semantic)")
	cmd.Flags().Int("workers", 0, "concurrent semantic batch workers (default: sequential)")
	_ = cmd.MarkFlagRequired("labels")
	_ = cmd.MarkFlagRequired("accounts")

	// Bind to viper
	_ = viper.BindPFlag("map.strategy", cmd.Flags().Lookup("strategy"))

	return cmd
}

func runMap(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	labelsPath, _ := cmd.Flags().GetString("labels")
	accountsPath, _ := cmd.Flags().GetString("accounts")
	workers, _ := cmd.Flags().GetInt("workers")

	strategy, err := engine.ParseStrategy(viper.GetString("map.strategy"))
	if err != nil {
		return err
	}

	labels, err := ingest.ReadLabels(labelsPath)
	if err != nil {
		return err
	}
	accounts, err := ingest.ReadAccounts(accountsPath)
	if err != nil {
		return err
	}
	slog.Info("Loaded mapping inputs",
		"labels", len(labels),
		"accounts", len(accounts))

	config := engineConfigFromViper()
	if workers > 0 {
		config.Workers = workers
	}

	scorer, err := buildScorer()
	if err != nil {
		return err
	}
	cat, err := buildCategorizer()
	if err != nil {
		return err
	}

	semantic, err := buildSemanticMatcher(ctx, strategy == engine.StrategySemantic)
	if err != nil {
		return err
	}
	if semantic != nil {
		defer func() { _ = semantic.Close() }()
	}

	var eng *engine.Engine
	if semantic != nil {
		eng, err = engine.NewWithConfig(scorer, cat, semantic, config)
	} else {
		eng, err = engine.NewWithConfig(scorer, cat, nil, config)
	}
	if err != nil {
		return err
	}

	if strategy == engine.StrategySemantic {
		progress := cli.NewProgress(os.Stderr, len(labels), "Mapping labels...")
		eng.SetProgress(func(completed, _ int) {
			progress.Set(completed)
		})
		defer progress.Finish()
	}

	session, err := eng.CreateSession(ctx, labels, accounts, strategy)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveSession(ctx, session.Record()); err != nil {
		return err
	}

	stats := engine.ComputeStats(session.Entries, 0)
	fmt.Println(cli.FormatTitle("Mapping complete"))
	fmt.Printf("  Session:  %s\n", session.ID)
	fmt.Printf("  Labels:   %d\n", stats.TotalLabels)
	fmt.Printf("  Mapped:   %s\n", cli.StyleSuccess(fmt.Sprintf("%d", stats.Mapped)))
	if stats.Unmapped > 0 {
		fmt.Printf("  Unmapped: %s\n", cli.StyleError(fmt.Sprintf("%d", stats.Unmapped)))
	}
	fmt.Printf("  Tiers:    high %d / medium %d / low %d\n", stats.HighTier, stats.MediumTier, stats.LowTier)
	fmt.Printf("\nRun %s to inspect the result.\n", cli.BoldStyle.Render("tally review "+session.ID))

	return nil
}
