// Package cmd - history command
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"crossmarket/adapters/storage"
	"crossmarket/internal/app"
	"crossmarket/internal/config"
)

var historyFlags struct {
	location string
	snapshot string
	limit    int
}

// historyCmd inspects recorded runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded scan runs",
	Long: `List, show, compare and delete runs recorded with scan --history or the
history section of the configuration.

Examples:
  crossmarket history list --at runs.db
  crossmarket history show 3f2a... --at ./history
  crossmarket history diff OLD_ID NEW_ID --at runs.db`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, s storage.Store) error {
			runs, err := s.List(ctx, &storage.ListFilter{SnapshotID: historyFlags.snapshot, Limit: historyFlags.limit})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCREATED\tSNAPSHOT\tITEMS\tOPPS\tAVG SCORE\tBEST ROUTE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.1f\t%s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.SnapshotID,
					r.ItemsScanned, r.Opportunities, r.AvgScore, r.BestRoute)
			}
			return w.Flush()
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Print a recorded run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, s storage.Store) error {
			run, err := s.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, run)
		})
	},
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff OLD_ID NEW_ID",
	Short: "Compare the opportunities of two recorded runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, s storage.Store) error {
			res, err := storage.Compare(ctx, s, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete RUN_ID",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, s storage.Store) error {
			if err := s.Delete(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyFlags.location, "at", "", "history directory, .db file or postgres DSN (default from config)")
	historyListCmd.Flags().StringVar(&historyFlags.snapshot, "snapshot", "", "only runs of this snapshot")
	historyListCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "maximum runs listed")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDiffCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func withHistory(cmd *cobra.Command, fn func(ctx context.Context, s storage.Store) error) error {
	cfg := config.Get()
	if historyFlags.location != "" {
		cfg.History.Backend, cfg.History.Location = historyTarget(historyFlags.location)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := app.OpenHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// historyTarget infers the backend from a location: postgres URLs, sqlite files, or a directory
func historyTarget(location string) (backend, path string) {
	switch {
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		return string(storage.BackendPostgres), location
	case strings.HasPrefix(location, "file:"):
		return string(storage.BackendSQLite), location
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return string(storage.BackendSQLite), location
	}
	return string(storage.BackendFile), location
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
