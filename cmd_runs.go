package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-midigen/internal/config"
	"github.com/Conceptual-Machines/magda-midigen/internal/ledger"
)

const maxErrorColumn = 60

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatRunsTable formats ledger runs, newest first
func formatRunsTable(out io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}

	fmt.Fprintf(out, "%-36s %-19s %-10s %-14s %8s %8s %8s %8s %8s\n",
		"RUN", "STARTED", "STATUS", "MODEL", "EXPECTED", "PRODUCED", "SKIPPED", "FAILED", "RESUMED")
	for _, r := range runs {
		status := "running"
		if r.FinishedAt != nil {
			status = "finished"
		}
		fmt.Fprintf(out, "%-36s %-19s %-10s %-14s %8d %8d %8d %8d %8d\n",
			r.ID, formatTime(r.StartedAt), status, r.Model,
			r.Totals.Expected, r.Totals.Produced, r.Totals.Skipped, r.Totals.Failed, r.Totals.Resumed)
	}
}

// formatItemsTable formats the items of one run
func formatItemsTable(out io.Writer, items []ledger.Item) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No items recorded.")
		return
	}

	fmt.Fprintf(out, "%-28s %-5s %-9s %-8s %-11s %s\n", "CATEGORY", "SONG", "STATUS", "ATTEMPTS", "MOOD", "DETAIL")
	for _, item := range items {
		detail := item.Path
		if item.LastError != "" {
			detail = truncate(item.LastError, maxErrorColumn)
		}
		fmt.Fprintf(out, "%-28s %-5d %-9s %-8d %-11s %s\n",
			item.Category, item.Index+1, item.Status, item.Attempts, item.Mood, detail)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newRunsCmdWithStore creates the runs command over an open ledger
func newRunsCmdWithStore(store ledger.Store) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs or the items of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd.Context(), store, args, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

// newRunsCmd creates the production runs command, opening the configured ledger
func newRunsCmd(load func() (*config.Config, error)) *cobra.Command {
	var limit int
	var ledgerPath string

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs or the items of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ledger") {
				cfg.LedgerPath = ledgerPath
			}

			store, err := ledger.Open(cmd.Context(), cfg.DatabaseURL, cfg.LedgerPath)
			if err != nil {
				return fmt.Errorf("runs: %w", err)
			}
			if store == nil {
				return errors.New("runs: no ledger configured (MIDIGEN_LEDGER=off and DATABASE_URL unset)")
			}
			defer store.Close()

			return listRuns(cmd.Context(), store, args, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "sqlite run ledger path")
	return cmd
}

func listRuns(ctx context.Context, store ledger.Store, args []string, limit int, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 0 {
		runs, err := store.ListRuns(ctx, limit)
		if err != nil {
			return fmt.Errorf("runs: %w", err)
		}
		formatRunsTable(out, runs)
		return nil
	}

	items, err := store.ListItems(ctx, args[0])
	if err != nil {
		return fmt.Errorf("runs %s: %w", args[0], err)
	}
	formatItemsTable(out, items)
	return nil
}
