package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bobarin/dramacast/internal/config"
	"github.com/bobarin/dramacast/internal/models"
	"github.com/bobarin/dramacast/internal/publisher"
	"github.com/bobarin/dramacast/internal/scraper"
	"github.com/bobarin/dramacast/internal/services"
	"github.com/google/uuid"
)

// ─────────────────────────────────────────────────────────────────────────────
// Collaborator interfaces — the driver only needs these slices of the
// concrete components, and the tests stand in fakes for them.
// ─────────────────────────────────────────────────────────────────────────────

// Queue is the sheet-backed work queue as the driver sees it.
type Queue interface {
	Rows(ctx context.Context) ([]models.Row, error)
	Claim(ctx context.Context, rowNum int) (bool, error)
	SetStatus(ctx context.Context, rowNum int, status models.Status) error
	SetResult(ctx context.Context, rowNum int, url string) error
}

// Media covers the ffmpeg/ffprobe operations the driver runs.
type Media interface {
	SpeedUp(ctx context.Context, inputPath, outputPath string, factor float64) error
	RenderSlideshow(ctx context.Context, imageDir, audioPath, listPath, outputPath string) error
	Cleanup(paths ...string)
}

// ImageCollector fills a directory with normalized stills for a query.
type ImageCollector interface {
	Collect(ctx context.Context, query, dir string) (int, error)
}

// Uploader pushes a finished video to a file host.
type Uploader interface {
	Publish(ctx context.Context, videoPath string) (string, error)
}

// ArticleScraper pulls article text for rows that carry a source URL
// instead of a script.
type ArticleScraper interface {
	Scrape(ctx context.Context, pageURL string) (*scraper.Article, error)
}

// Rewriter condenses scraped article text into spoken narration.
type Rewriter interface {
	Rewrite(ctx context.Context, title, text string) (string, error)
}

// History records runs and per-row outcomes.
type History interface {
	StartRun(ctx context.Context, runID string, startedAt time.Time) error
	RecordOutcome(ctx context.Context, o models.Outcome) error
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, processed, completed, failed int) error
}

// Worker sweeps the queue: it claims pending rows one at a time, runs the
// production phases, and writes the terminal status back to the sheet. Row
// failures are recorded on the row itself and never abort the sweep.
type Worker struct {
	cfg       *config.Config
	queue     Queue
	tts       services.Synthesizer
	media     Media
	collector ImageCollector
	uploader  Uploader
	scraper   ArticleScraper
	rewriter  Rewriter // nil = use scraped text as-is
	history   History

	mu     sync.Mutex
	status models.WorkerStatus
}

func New(
	cfg *config.Config,
	q Queue,
	tts services.Synthesizer,
	media Media,
	coll ImageCollector,
	up Uploader,
	scr ArticleScraper,
	rw Rewriter,
	hist History,
) *Worker {
	return &Worker{
		cfg:       cfg,
		queue:     q,
		tts:       tts,
		media:     media,
		collector: coll,
		uploader:  up,
		scraper:   scr,
		rewriter:  rw,
		history:   hist,
		status:    models.WorkerStatus{State: models.WorkerIdle},
	}
}

// RunOnce performs a single sweep: snapshot the rows, then process every row
// that is still pending. The returned record summarizes the sweep even when
// nothing was pending.
func (w *Worker) RunOnce(ctx context.Context) (*models.RunRecord, error) {
	runID := uuid.NewString()[:8]
	startedAt := time.Now().UTC()
	w.beginRun(runID, startedAt)

	record := &models.RunRecord{ID: runID, StartedAt: startedAt}
	defer w.endRun(record)

	rows, err := w.queue.Rows(ctx)
	if err != nil {
		finishedAt := time.Now().UTC()
		record.FinishedAt = &finishedAt
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	var pending []models.Row
	for _, row := range rows {
		if models.IsPending(row.Status) {
			pending = append(pending, row)
		}
	}
	log.Printf("[Worker] Run %s: %d rows in queue, %d pending", runID, len(rows), len(pending))

	if len(pending) == 0 {
		finishedAt := time.Now().UTC()
		record.FinishedAt = &finishedAt
		return record, nil
	}

	// Idle sweeps are not written to history, only sweeps that found work.
	if err := w.history.StartRun(ctx, runID, startedAt); err != nil {
		log.Printf("[Worker] Warning: could not record run start: %v", err)
	}

	// A previous process killed mid-row can leave working files behind.
	w.sweepWorkFiles()

	for _, row := range pending {
		if ctx.Err() != nil {
			log.Printf("[Worker] Run %s interrupted: %v", runID, ctx.Err())
			break
		}

		outcome := w.processRow(ctx, runID, row)
		if outcome == nil {
			continue // lost the claim, someone else has the row
		}

		record.Processed++
		if outcome.Status == models.StatusCompleted {
			record.Completed++
		} else {
			record.Failed++
		}

		if err := w.history.RecordOutcome(ctx, *outcome); err != nil {
			log.Printf("[Worker] Warning: could not record outcome for row %d: %v", row.Num, err)
		}
	}

	finishedAt := time.Now().UTC()
	record.FinishedAt = &finishedAt
	if err := w.history.FinishRun(ctx, runID, finishedAt, record.Processed, record.Completed, record.Failed); err != nil {
		log.Printf("[Worker] Warning: could not record run finish: %v", err)
	}

	log.Printf("[Worker] Run %s done: %d processed, %d completed, %d failed",
		runID, record.Processed, record.Completed, record.Failed)
	return record, nil
}

// processRow claims one row and produces its video. It returns nil when the
// claim was lost and the recorded outcome otherwise.
func (w *Worker) processRow(ctx context.Context, runID string, row models.Row) *models.Outcome {
	claimed, err := w.queue.Claim(ctx, row.Num)
	if err != nil {
		log.Printf("[Worker] Row %d: claim failed: %v", row.Num, err)
		return nil
	}
	if !claimed {
		log.Printf("[Worker] Row %d: no longer pending, skipping", row.Num)
		return nil
	}

	w.noteRow(row)
	log.Printf("[Worker] Row %d: processing %q", row.Num, row.Title)
	start := time.Now()

	url, err := w.produce(ctx, row)

	outcome := &models.Outcome{
		RunID:      runID,
		RowNum:     row.Num,
		Title:      row.Title,
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		if errors.Is(err, publisher.ErrAllStrategiesFailed) {
			// The video exists but no host took it. Only the status cell
			// changes; the result cell keeps whatever it held.
			outcome.Status = models.StatusUploadFailed
		} else {
			outcome.Status = models.ErrorStatus(err)
		}
		outcome.Error = err.Error()
		w.writeStatus(ctx, row.Num, outcome.Status)
		log.Printf("[Worker] Row %d: failed after %s: %v", row.Num, time.Since(start).Round(time.Second), err)
		return outcome
	}

	outcome.Status = models.StatusCompleted
	outcome.ResultURL = url
	if err := w.queue.SetResult(ctx, row.Num, url); err != nil {
		log.Printf("[Worker] Row %d: could not write result URL: %v", row.Num, err)
	}
	w.writeStatus(ctx, row.Num, models.StatusCompleted)
	log.Printf("[Worker] Row %d: completed in %s (%s)", row.Num, time.Since(start).Round(time.Second), url)
	return outcome
}

// produce runs the production phases for one claimed row and returns the
// published URL. Working files are removed on the way out, success or not,
// so the next row never sees stale images or a leftover video.
func (w *Worker) produce(ctx context.Context, row models.Row) (string, error) {
	if err := os.MkdirAll(w.cfg.Pipeline.WorkDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}

	imageDir := w.cfg.ImageDirPath()
	audioPath := w.cfg.AudioPath()
	rawAudio := rawAudioPath(audioPath)
	manifestPath := w.cfg.ManifestPath()
	outputPath := w.cfg.OutputPath()

	defer w.media.Cleanup(imageDir, rawAudio, audioPath, manifestPath, outputPath)

	title, script, err := w.resolveContent(ctx, row)
	if err != nil {
		return "", err
	}

	// Narration: synthesize, then time-compress.
	log.Printf("[Worker] Row %d: synthesizing narration (%d chars)", row.Num, len([]rune(script)))
	speech, err := w.tts.Synthesize(ctx, script)
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}
	if err := os.WriteFile(rawAudio, speech.AudioData, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := w.media.SpeedUp(ctx, rawAudio, audioPath, w.cfg.Pipeline.Speedup); err != nil {
		return "", err
	}

	// Images for the slideshow.
	count, err := w.collector.Collect(ctx, title, imageDir)
	if err != nil {
		return "", err
	}
	log.Printf("[Worker] Row %d: collected %d images", row.Num, count)

	// Assemble. An empty image directory fails here with a clear error.
	if err := w.media.RenderSlideshow(ctx, imageDir, audioPath, manifestPath, outputPath); err != nil {
		return "", err
	}

	return w.uploader.Publish(ctx, outputPath)
}

// resolveContent decides what the narrator reads and what the image search
// queries. The sheet's own cells win; a row carrying only a source URL gets
// both title and text from the scraped article, with the rewriter (when
// configured) condensing the text into narration. A failed rewrite falls
// back to the raw article text and never fails the row.
func (w *Worker) resolveContent(ctx context.Context, row models.Row) (title, script string, err error) {
	title = strings.TrimSpace(row.Title)
	script = strings.TrimSpace(row.Script)
	if script != "" {
		return title, script, nil
	}

	source := strings.TrimSpace(row.SourceURL)
	if source == "" {
		return "", "", fmt.Errorf("row has neither a script nor a source URL")
	}

	article, err := w.scraper.Scrape(ctx, source)
	if err != nil {
		return "", "", fmt.Errorf("scrape failed: %w", err)
	}
	if title == "" {
		title = article.Title
	}
	script = article.Text

	if w.rewriter != nil {
		rewritten, rerr := w.rewriter.Rewrite(ctx, title, script)
		if rerr != nil {
			log.Printf("[Worker] Row %d: rewrite failed, using raw article text: %v", row.Num, rerr)
		} else {
			script = rewritten
		}
	}
	return title, script, nil
}

func (w *Worker) writeStatus(ctx context.Context, rowNum int, status models.Status) {
	if err := w.queue.SetStatus(ctx, rowNum, status); err != nil {
		log.Printf("[Worker] Row %d: could not write status %q: %v", rowNum, status, err)
	}
}

func (w *Worker) sweepWorkFiles() {
	audioPath := w.cfg.AudioPath()
	w.media.Cleanup(w.cfg.ImageDirPath(), rawAudioPath(audioPath), audioPath,
		w.cfg.ManifestPath(), w.cfg.OutputPath())
}

// rawAudioPath derives the pre-speedup synthesis output next to the final
// audio file: voice.mp3 -> voice_raw.mp3.
func rawAudioPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return strings.TrimSuffix(audioPath, ext) + "_raw" + ext
}

// ─────────────────────────────────────────────────────────────────────────────
// Status snapshot — read by the daemon API.
// ─────────────────────────────────────────────────────────────────────────────

// Snapshot returns the current worker state.
func (w *Worker) Snapshot() models.WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Worker) beginRun(runID string, startedAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = models.WorkerStatus{
		State:     models.WorkerRunning,
		RunID:     runID,
		StartedAt: &startedAt,
		LastRun:   w.status.LastRun,
	}
}

func (w *Worker) noteRow(row models.Row) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.RowNum = row.Num
	w.status.RowTitle = row.Title
}

func (w *Worker) endRun(record *models.RunRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = models.WorkerStatus{State: models.WorkerIdle, LastRun: record}
}
