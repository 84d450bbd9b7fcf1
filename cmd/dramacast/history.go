package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bobarin/dramacast/internal/history"
	"github.com/bobarin/dramacast/internal/models"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var showRuns bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent row outcomes from the local history store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			if showRuns {
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printRuns(cmd, runs)
			}

			outcomes, err := store.RecentOutcomes(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printOutcomes(cmd, outcomes)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&showRuns, "runs", false, "Show run summaries instead of row outcomes")
	return cmd
}

func printOutcomes(cmd *cobra.Command, outcomes []models.Outcome) error {
	out := cmd.OutOrStdout()
	if len(outcomes) == 0 {
		fmt.Fprintln(out, "No outcomes recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		detail := o.ResultURL
		if detail == "" {
			detail = o.Error
		}
		rows = append(rows, []string{
			o.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(o.RowNum),
			clip(o.Title, 32),
			clip(string(o.Status), 28),
			formatDurationMs(o.DurationMs),
			clip(detail, 44),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"When", "Row", "Title", "Status", "Took", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func printRuns(cmd *cobra.Command, runs []models.RunRecord) error {
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		finished := "running"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Local().Format("15:04:05")
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			finished,
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Completed),
			strconv.Itoa(r.Failed),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Started", "Finished", "Processed", "Completed", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}
