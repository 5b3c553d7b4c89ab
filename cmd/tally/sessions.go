package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/tally-ho/internal/cli"
	"github.com/Veraticus/tally-ho/internal/service"

	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored mapping sessions",
		RunE:  runSessions,
	}

	cmd.Flags().Int("limit", 20, "maximum sessions to list")
	cmd.Flags().String("since", "", "only sessions created after this date (YYYY-MM-DD)")

	return cmd
}

func runSessions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	limit, _ := cmd.Flags().GetInt("limit")
	filter := service.SessionFilter{Limit: limit}

	if raw, _ := cmd.Flags().GetString("since"); raw != "" {
		since, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid --since date %q: %w", raw, err)
		}
		filter.Since = &since
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := store.ListSessions(ctx, filter)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println(cli.FormatInfo("No stored sessions. Run 'tally map' to create one."))
		return nil
	}

	header := fmt.Sprintf("%-36s  %-16s  %7s  %7s  %s", "SESSION", "CREATED", "LABELS", "MAPPED", "STATUS")
	fmt.Println(cli.TableHeaderStyle.Render(header))
	for _, summary := range summaries {
		status := cli.SubtleStyle.Render("open")
		if summary.AcceptedAt != nil {
			status = cli.StyleSuccess("accepted " + formatTimestamp(*summary.AcceptedAt))
		}
		fmt.Printf("%-36s  %-16s  %7d  %7d  %s\n",
			summary.ID,
			formatTimestamp(summary.CreatedAt),
			summary.Total,
			summary.Mapped,
			status)
	}

	return nil
}
