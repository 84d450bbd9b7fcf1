package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// Publisher
// Uploads a finished video through an ordered list of host strategies.
// Each strategy is self-contained; the publisher tries them in order and
// reports failure only when every host has been exhausted. Callers treat
// that as "Upload Failed", distinct from a pipeline error.
// ---------------------------------------------------------------------------

// Strategy is a single upload host. Attempt returns the public URL for the
// uploaded file, or an error when this host cannot serve it.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, videoPath string) (string, error)
}

// ErrAllStrategiesFailed reports that every configured host was tried and
// none produced a URL.
var ErrAllStrategiesFailed = errors.New("all upload strategies failed")

// Publisher tries each strategy in order until one returns a URL.
type Publisher struct {
	strategies []Strategy
}

func New(strategies ...Strategy) *Publisher {
	return &Publisher{strategies: strategies}
}

// Publish uploads the video and returns its public URL. Later strategies
// are only contacted after an earlier one fails; the first success wins.
// The returned URL is empty exactly when err is non-nil.
func (p *Publisher) Publish(ctx context.Context, videoPath string) (string, error) {
	if len(p.strategies) == 0 {
		return "", fmt.Errorf("no upload strategies configured: %w", ErrAllStrategiesFailed)
	}

	for _, strategy := range p.strategies {
		url, err := strategy.Attempt(ctx, videoPath)
		if err != nil {
			log.Printf("[Publisher] %s upload failed: %v", strategy.Name(), err)
			continue
		}
		if url == "" {
			log.Printf("[Publisher] %s returned an empty URL, trying next host", strategy.Name())
			continue
		}
		log.Printf("[Publisher] Uploaded via %s: %s", strategy.Name(), url)
		return url, nil
	}

	return "", ErrAllStrategiesFailed
}

// multipartUpload streams filePath to endpoint as a multipart form. The
// file goes under fieldName; extra fields are written before it. The body
// is piped rather than buffered because finished videos run to hundreds of
// megabytes.
func multipartUpload(ctx context.Context, client *http.Client, endpoint, fieldName, filePath string, extra map[string]string) (*http.Response, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer file.Close()
		var err error
		defer func() {
			pw.CloseWithError(err)
		}()
		for key, value := range extra {
			if err = writer.WriteField(key, value); err != nil {
				return
			}
		}
		var part io.Writer
		if part, err = writer.CreateFormFile(fieldName, filepath.Base(filePath)); err != nil {
			return
		}
		if _, err = io.Copy(part, file); err != nil {
			return
		}
		err = writer.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return client.Do(req)
}
