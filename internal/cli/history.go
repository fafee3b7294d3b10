package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/grayforge/internal/config"
	"github.com/ppiankov/grayforge/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit       int
		historyPath string
	)

	openLedger := func() (*history.Store, error) {
		path := historyPath
		if path == "" {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return nil, fmt.Errorf("load config: %w", err)
			}
			path = cfg.HistoryPath
		}
		if path == "" {
			path = history.DefaultPath()
		}
		return history.Open(path)
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger()
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer func() { _ = store.Close() }()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs")
				return nil
			}

			out := renderTable(
				[]string{"Started", "Mode", "Workers", "Total", "Converted", "Failed", "Elapsed", "Input"},
				buildHistoryRows(runs),
				[]colAlign{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.PersistentFlags().StringVar(&historyPath, "db", "", "path to the run ledger database (default .grayforge/history.db)")

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger()
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer func() { _ = store.Close() }()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", n)
			return nil
		},
	}
	cmd.AddCommand(clear)

	return cmd
}

func buildHistoryRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		failed := r.LoadFailed + r.SaveFailed + r.IOErrors
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			strconv.Itoa(r.Workers),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(failed),
			r.Elapsed.Truncate(time.Millisecond).String(),
			r.InputDir,
		})
	}
	return rows
}
