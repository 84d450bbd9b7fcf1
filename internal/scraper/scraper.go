package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ---------------------------------------------------------------------------
// Scraper
// Pulls recap articles for rows that carry a source URL instead of a
// pre-written script. Tuned for WordPress-style drama news sites: the
// article body lives in div.entry-content (or a bare <article>), padded
// with cross-links that need filtering out.
// ---------------------------------------------------------------------------

const (
	defaultTitle = "Drama Update"

	// Paragraphs at or under this length are navigation crumbs, bylines,
	// or image captions.
	minParagraphLen = 45

	// Cap on the assembled article text, in runes.
	maxArticleLen = 2000
)

// Phrases that mark cross-promotion paragraphs.
var boilerplate = []string{"also read", "click here"}

type Scraper struct {
	client *http.Client
}

func New() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Article is the scraped title and cleaned body text.
type Article struct {
	Title string
	Text  string
}

// Scrape fetches a page and extracts the article title and body text.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*Article, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch of %s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	article, err := extract(doc)
	if err != nil {
		return nil, err
	}

	log.Printf("[Scraper] Extracted %q (%d chars) from %s", article.Title, len(article.Text), pageURL)
	return article, nil
}

func extract(doc *goquery.Document) (*Article, error) {
	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = defaultTitle
	}

	content := doc.Find("div.entry-content").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		return nil, fmt.Errorf("no article content found")
	}

	var lines []string
	content.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len([]rune(text)) <= minParagraphLen {
			return
		}
		if containsBoilerplate(text) {
			return
		}
		lines = append(lines, text)
	})
	if len(lines) == 0 {
		return nil, fmt.Errorf("no usable paragraphs found")
	}

	body := strings.Join(lines, " ")
	if runes := []rune(body); len(runes) > maxArticleLen {
		body = string(runes[:maxArticleLen])
	}

	return &Article{Title: title, Text: body}, nil
}

func containsBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range boilerplate {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
