package main

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sweep the sheet once and process every pending row",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock %s: %w", cfg.LockPath(), err)
			}
			if !ok {
				return fmt.Errorf("another dramacast instance is already running (lock %s)", cfg.LockPath())
			}
			defer lock.Unlock()

			w, _, store, err := buildPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			record, err := w.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d processed, %d completed, %d failed\n",
				record.ID, record.Processed, record.Completed, record.Failed)
			return nil
		},
	}
}
