package publisher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Catbox Strategy
// Single multipart POST to a fixed endpoint; a 200 response body is the
// public URL in plain text.
// ---------------------------------------------------------------------------

const catboxEndpoint = "https://catbox.moe/user/api.php"

type CatboxStrategy struct {
	endpoint string
	client   *http.Client
}

// Compile-time check that CatboxStrategy implements Strategy.
var _ Strategy = (*CatboxStrategy)(nil)

// NewCatbox creates the catbox.moe upload strategy. An empty endpoint uses
// the public API.
func NewCatbox(endpoint string) *CatboxStrategy {
	if endpoint == "" {
		endpoint = catboxEndpoint
	}
	return &CatboxStrategy{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

func (s *CatboxStrategy) Name() string { return "catbox" }

func (s *CatboxStrategy) Attempt(ctx context.Context, videoPath string) (string, error) {
	extra := map[string]string{
		"reqtype": "fileupload",
	}

	resp, err := multipartUpload(ctx, s.client, s.endpoint, "fileToUpload", videoPath, extra)
	if err != nil {
		return "", fmt.Errorf("catbox upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read catbox response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catbox upload returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	url := strings.TrimSpace(string(body))
	if url == "" {
		return "", fmt.Errorf("catbox returned an empty body")
	}
	return url, nil
}
