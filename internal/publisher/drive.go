package publisher

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ---------------------------------------------------------------------------
// Drive Strategy
// Uploads into a fixed Google Drive folder using the same service account
// as the queue store. Returns a file link rather than a download page.
// ---------------------------------------------------------------------------

type DriveStrategy struct {
	httpClient *http.Client
	folderID   string
	endpoint   string
}

// Compile-time check that DriveStrategy implements Strategy.
var _ Strategy = (*DriveStrategy)(nil)

// NewDrive creates the Google Drive upload strategy. httpClient must carry
// service-account credentials scoped for Drive; folderID is the destination
// folder.
func NewDrive(httpClient *http.Client, folderID string) *DriveStrategy {
	return &DriveStrategy{
		httpClient: httpClient,
		folderID:   folderID,
	}
}

func (s *DriveStrategy) Name() string { return "drive" }

func (s *DriveStrategy) Attempt(ctx context.Context, videoPath string) (string, error) {
	opts := []option.ClientOption{option.WithHTTPClient(s.httpClient)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create drive service: %w", err)
	}

	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", videoPath, err)
	}
	defer file.Close()

	meta := &drive.File{
		Name:    filepath.Base(videoPath),
		Parents: []string{s.folderID},
	}

	created, err := srv.Files.Create(meta).
		Media(file, googleapi.ContentType("video/mp4")).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive upload failed: %w", err)
	}
	if created.Id == "" {
		return "", fmt.Errorf("drive returned no file id")
	}

	return "https://drive.google.com/file/d/" + created.Id, nil
}
