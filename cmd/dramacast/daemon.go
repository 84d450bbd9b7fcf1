package main

import (
	"github.com/spf13/cobra"

	"github.com/bobarin/dramacast/internal/daemon"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Poll the sheet on an interval and serve the status API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			w, sheet, store, err := buildPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			return daemon.New(cfg, w, sheet, store).Run(cmd.Context())
		},
	}
}
