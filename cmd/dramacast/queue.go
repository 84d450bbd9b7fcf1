package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobarin/dramacast/internal/models"
	"github.com/bobarin/dramacast/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show the sheet queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}

			client, err := queue.NewGoogleClient(cmd.Context(), []byte(cfg.ServiceAccountJSON))
			if err != nil {
				return fmt.Errorf("google auth: %w", err)
			}
			sheet, err := queue.NewSheet(cmd.Context(), client, cfg.SpreadsheetID)
			if err != nil {
				return err
			}

			rows, err := sheet.Rows(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "Queue is empty.")
				return nil
			}

			pending := 0
			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				status := row.Status
				if models.IsPending(row.Status) {
					pending++
					if strings.TrimSpace(status) == "" {
						status = string(models.StatusPending)
					}
				}
				tableRows = append(tableRows, []string{
					strconv.Itoa(row.Num),
					clip(row.Title, 40),
					clip(status, 28),
					clip(row.ResultURL, 44),
				})
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Row", "Title", "Status", "Video URL"},
				tableRows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d rows pending\n", pending, len(rows))
			return nil
		},
	}
}
