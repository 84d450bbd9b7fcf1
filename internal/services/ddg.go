package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

// ---------------------------------------------------------------------------
// DuckDuckGo Image Search Service
// Two-step flow: fetch the HTML search page to extract the vqd session
// token, then query the i.js JSON endpoint with it. The endpoint rejects
// requests without a valid token.
// ---------------------------------------------------------------------------

const (
	ddgBaseURL   = "https://duckduckgo.com"
	ddgUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"
)

// ImageResult is a single candidate returned by an image search provider.
type ImageResult struct {
	URL   string `json:"image"`
	Title string `json:"title"`
}

// ImageSearcher is the interface that any image search provider must
// implement. Results are consumed in order until enough downloads succeed.
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, max int) ([]ImageResult, error)
}

// DDGService searches images through DuckDuckGo's unauthenticated endpoint.
type DDGService struct {
	baseURL string
	client  *http.Client
}

// Compile-time check that DDGService implements ImageSearcher.
var _ ImageSearcher = (*DDGService)(nil)

// NewDDGService creates a new DuckDuckGo image search client.
func NewDDGService() *DDGService {
	return &DDGService{
		baseURL: ddgBaseURL,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

var vqdPattern = regexp.MustCompile(`vqd=['"]?([\d-]+)`)

// SearchImages returns up to max image candidates for the query.
func (s *DDGService) SearchImages(ctx context.Context, query string, max int) ([]ImageResult, error) {
	token, err := s.fetchToken(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain search token: %w", err)
	}

	params := url.Values{}
	params.Set("l", "wt-wt")
	params.Set("o", "json")
	params.Set("q", query)
	params.Set("vqd", token)
	params.Set("f", ",,,")
	params.Set("p", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/i.js?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", ddgUserAgent)
	req.Header.Set("Referer", s.baseURL+"/")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image search returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload struct {
		Results []ImageResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode image results: %w", err)
	}

	results := payload.Results
	if len(results) > max {
		results = results[:max]
	}
	log.Printf("[DDG] Found %d image candidate(s) for query %q", len(results), query)
	return results, nil
}

// fetchToken loads the search page and extracts the vqd token from its
// embedded script.
func (s *DDGService) fetchToken(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("iax", "images")
	params.Set("ia", "images")

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", ddgUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token page: %w", err)
	}

	match := vqdPattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("vqd token not found in search page")
	}
	return string(match[1]), nil
}
