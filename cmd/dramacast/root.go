package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bobarin/dramacast/internal/collector"
	"github.com/bobarin/dramacast/internal/config"
	"github.com/bobarin/dramacast/internal/history"
	"github.com/bobarin/dramacast/internal/publisher"
	"github.com/bobarin/dramacast/internal/queue"
	"github.com/bobarin/dramacast/internal/scraper"
	"github.com/bobarin/dramacast/internal/services"
	"github.com/bobarin/dramacast/internal/worker"
)

type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:   "dramacast",
		Short: "Turn a Google Sheet of drama updates into narrated slideshow videos",
		Long: `dramacast reads pending rows from a Google Sheet, narrates each one
(text-to-speech, sped up for pace), collects matching images, assembles a
slideshow video with ffmpeg, uploads it to a file host, and writes the link
and status back to the sheet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newDaemonCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// buildPipeline wires every component a sweep needs. The returned sheet and
// store are also what the daemon serves over its API.
func buildPipeline(ctx context.Context, cfg *config.Config) (*worker.Worker, *queue.SheetQueue, *history.Store, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, nil, nil, err
	}

	client, err := queue.NewGoogleClient(ctx, []byte(cfg.ServiceAccountJSON))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("google auth: %w", err)
	}

	sheet, err := queue.NewSheet(ctx, client, cfg.SpreadsheetID)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open history store: %w", err)
	}

	tts := services.NewGoogleTTSService(cfg.Pipeline.Language)
	media := services.NewFFmpegService(cfg.Pipeline.FrameWidth, cfg.Pipeline.FrameHeight, cfg.Pipeline.FrameRate)
	coll := collector.New(services.NewDDGService(), cfg.Pipeline.ImageCount, cfg.Pipeline.ImageMargin,
		cfg.Pipeline.FrameWidth, cfg.Pipeline.FrameHeight, cfg.DownloadTimeout())

	strategies, err := buildStrategies(cfg, client)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	pub := publisher.New(strategies...)

	var rewriter worker.Rewriter
	if cfg.OpenAIKey != "" {
		rewriter = services.NewScriptRewriter(cfg.OpenAIKey, cfg.Pipeline.Language, cfg.Pipeline.ScriptMaxChars)
		log.Println("[Main] Script rewriter enabled")
	}

	w := worker.New(cfg, sheet, tts, media, coll, pub, scraper.New(), rewriter, store)
	return w, sheet, store, nil
}

func buildStrategies(cfg *config.Config, client *http.Client) ([]publisher.Strategy, error) {
	strategies := make([]publisher.Strategy, 0, len(cfg.Upload.Order))
	for _, name := range cfg.Upload.Order {
		switch name {
		case "gofile":
			strategies = append(strategies, publisher.NewGofile(cfg.Upload.GofileAPIBase))
		case "catbox":
			strategies = append(strategies, publisher.NewCatbox(cfg.Upload.CatboxEndpoint))
		case "drive":
			strategies = append(strategies, publisher.NewDrive(client, cfg.DriveFolderID))
		default:
			return nil, fmt.Errorf("unknown upload strategy %q", name)
		}
	}
	return strategies, nil
}
