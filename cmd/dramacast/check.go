package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bobarin/dramacast/internal/history"
	"github.com/bobarin/dramacast/internal/queue"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify configuration, credentials, and external tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := false

			report := func(label string, err error, okMsg string) {
				if err != nil {
					failed = true
					fmt.Fprintln(out, renderStatusLine(label, statusError, err.Error(), colorize))
					return
				}
				fmt.Fprintln(out, renderStatusLine(label, statusOK, okMsg, colorize))
			}

			cfg, err := ctx.ensureConfig()
			report("Config", err, "")
			if err != nil {
				return errors.New("preflight failed")
			}

			credErr := cfg.ValidateCredentials()
			report("Credentials", credErr, "")
			if credErr == nil {
				client, err := queue.NewGoogleClient(cmd.Context(), []byte(cfg.ServiceAccountJSON))
				if err == nil {
					var sheet *queue.SheetQueue
					sheet, err = queue.NewSheet(cmd.Context(), client, cfg.SpreadsheetID)
					if err == nil {
						report("Spreadsheet", nil, sheet.Title())
					}
				}
				if err != nil {
					report("Spreadsheet", err, "")
				}
			}

			for _, tool := range []string{"ffmpeg", "ffprobe"} {
				path, err := exec.LookPath(tool)
				report(tool, err, path)
			}

			probe := filepath.Join(cfg.Pipeline.WorkDir, ".dramacast_probe")
			if err := os.MkdirAll(cfg.Pipeline.WorkDir, 0755); err != nil {
				report("Working dir", err, "")
			} else if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
				report("Working dir", err, "")
			} else {
				os.Remove(probe)
				report("Working dir", nil, cfg.Pipeline.WorkDir)
			}

			store, err := history.Open(cfg.HistoryPath())
			if err == nil {
				store.Close()
			}
			report("History store", err, cfg.HistoryPath())

			if cfg.OpenAIKey != "" {
				fmt.Fprintln(out, renderStatusLine("Script rewriter", statusInfo, "enabled", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Script rewriter", statusInfo, "disabled (no OPENAI_API_KEY)", colorize))
			}

			if failed {
				return errors.New("preflight failed")
			}
			fmt.Fprintln(out, "\nAll checks passed.")
			return nil
		},
	}
}
