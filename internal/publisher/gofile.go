package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// Gofile Strategy
// Two-step protocol: a server-assignment GET picks the storage node, then
// the file is POSTed to that node as multipart form data. The assignment
// response can report non-ok and still carry usable alternate-zone
// servers; the first of those is used before giving up on this host.
// ---------------------------------------------------------------------------

const gofileAPIBase = "https://api.gofile.io"

type GofileStrategy struct {
	apiBase      string
	uploadFormat string // fmt pattern receiving the assigned server name
	client       *http.Client
}

// Compile-time check that GofileStrategy implements Strategy.
var _ Strategy = (*GofileStrategy)(nil)

// NewGofile creates the gofile.io upload strategy. An empty apiBase uses
// the public API.
func NewGofile(apiBase string) *GofileStrategy {
	if apiBase == "" {
		apiBase = gofileAPIBase
	}
	return &GofileStrategy{
		apiBase:      apiBase,
		uploadFormat: "https://%s.gofile.io/uploadFile",
		client: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

func (s *GofileStrategy) Name() string { return "gofile" }

type gofileEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		Server         string `json:"server"`
		DownloadPage   string `json:"downloadPage"`
		ServersAllZone []struct {
			Name string `json:"name"`
		} `json:"serversAllZone"`
	} `json:"data"`
}

func (s *GofileStrategy) Attempt(ctx context.Context, videoPath string) (string, error) {
	server, err := s.assignServer(ctx)
	if err != nil {
		return "", err
	}

	resp, err := multipartUpload(ctx, s.client, fmt.Sprintf(s.uploadFormat, server), "file", videoPath, nil)
	if err != nil {
		return "", fmt.Errorf("gofile upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gofile upload returned status %d", resp.StatusCode)
	}

	var envelope gofileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("gofile upload response malformed: %w", err)
	}
	if envelope.Status != "ok" || envelope.Data.DownloadPage == "" {
		return "", fmt.Errorf("gofile upload rejected (status=%q)", envelope.Status)
	}

	return envelope.Data.DownloadPage, nil
}

// assignServer asks the API which storage node should receive the file.
func (s *GofileStrategy) assignServer(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.apiBase+"/servers", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gofile server assignment failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gofile server assignment returned status %d", resp.StatusCode)
	}

	var envelope gofileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("gofile server assignment malformed: %w", err)
	}

	if envelope.Status == "ok" && envelope.Data.Server != "" {
		return envelope.Data.Server, nil
	}
	if len(envelope.Data.ServersAllZone) > 0 && envelope.Data.ServersAllZone[0].Name != "" {
		return envelope.Data.ServersAllZone[0].Name, nil
	}
	return "", fmt.Errorf("gofile assigned no server (status=%q)", envelope.Status)
}
