package collector

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/bobarin/dramacast/internal/services"
)

// ---------------------------------------------------------------------------
// Collector
// Searches for images matching a row's title, downloads candidates one by
// one, and normalizes the survivors into the per-run image directory that
// the video assembler consumes. Individual download or decode failures are
// skipped, not fatal; the slideshow simply gets fewer images.
// ---------------------------------------------------------------------------

const downloadUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

type Collector struct {
	searcher services.ImageSearcher
	client   *http.Client
	target   int
	margin   int
	width    int
	height   int
}

// New creates a Collector that saves up to target images per row, asking
// the search provider for target+margin candidates to absorb failures.
// downloadTimeout bounds each individual image download.
func New(searcher services.ImageSearcher, target, margin, width, height int, downloadTimeout time.Duration) *Collector {
	return &Collector{
		searcher: searcher,
		client: &http.Client{
			Timeout: downloadTimeout,
		},
		target: target,
		margin: margin,
		width:  width,
		height: height,
	}
}

// queryPattern matches everything outside word characters, whitespace and
// the Devanagari block. Search providers choke on the leftover punctuation
// in scraped titles.
var queryPattern = regexp.MustCompile(`[^\w\s\x{0900}-\x{097F}]+`)

// SanitizeQuery strips unwanted characters from a search query and
// collapses runs of whitespace.
func SanitizeQuery(query string) string {
	cleaned := queryPattern.ReplaceAllString(query, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// Collect fills dir with normalized images for the query and returns how
// many were saved. Fewer than target (including zero) is not an error; the
// caller decides whether a sparse slideshow is acceptable.
func (c *Collector) Collect(ctx context.Context, query, dir string) (int, error) {
	sanitized := SanitizeQuery(query)
	if sanitized == "" {
		return 0, fmt.Errorf("image query %q is empty after sanitization", query)
	}

	// Start from a clean directory so stale images from a previous row
	// cannot leak into this row's slideshow.
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("failed to clear image directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create image directory: %w", err)
	}

	results, err := c.searcher.SearchImages(ctx, sanitized, c.target+c.margin)
	if err != nil {
		return 0, fmt.Errorf("image search failed: %w", err)
	}

	saved := 0
	for _, result := range results {
		if saved >= c.target {
			break
		}
		path := filepath.Join(dir, fmt.Sprintf("img_%03d.jpg", saved))
		if err := c.download(ctx, result.URL, path); err != nil {
			log.Printf("[Collector] Skipping %s: %v", result.URL, err)
			continue
		}
		saved++
	}

	log.Printf("[Collector] Saved %d/%d image(s) for query %q", saved, c.target, sanitized)
	return saved, nil
}

func (c *Collector) download(ctx context.Context, imageURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	if err := imaging.Save(c.normalize(img), path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	return nil
}

// normalize letterboxes an image onto a black canvas at the target
// resolution, preserving aspect ratio. Lanczos keeps stills sharp when the
// encoder holds them on screen for seconds at a time.
func (c *Collector) normalize(img image.Image) *image.NRGBA {
	fitted := imaging.Fit(img, c.width, c.height, imaging.Lanczos)
	canvas := imaging.New(c.width, c.height, color.Black)
	return imaging.PasteCenter(canvas, fitted)
}
