package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
}

const longPara = "This paragraph carries enough narrative detail about the episode to clear the minimum length filter easily."

func TestScrapeEntryContent(t *testing.T) {
	html := fmt.Sprintf(`<html><body>
		<h1> Kumkum Bhagya Written Update </h1>
		<div class="entry-content">
			<p>%s</p>
			<p>Short line.</p>
			<p>Also Read: another story you might like, with plenty of extra padding text here.</p>
			<p>CLICK HERE to subscribe to our channel for more episode recaps and updates today.</p>
			<p>%s</p>
		</div>
	</body></html>`, longPara, longPara)

	server := serveHTML(t, html)
	defer server.Close()

	article, err := New().Scrape(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	if article.Title != "Kumkum Bhagya Written Update" {
		t.Errorf("unexpected title: %q", article.Title)
	}
	if want := longPara + " " + longPara; article.Text != want {
		t.Errorf("unexpected body:\ngot  %q\nwant %q", article.Text, want)
	}
}

func TestScrapeFallsBackToArticleTag(t *testing.T) {
	html := fmt.Sprintf(`<html><body>
		<h1>Title</h1>
		<article><p>%s</p></article>
	</body></html>`, longPara)

	server := serveHTML(t, html)
	defer server.Close()

	article, err := New().Scrape(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if article.Text != longPara {
		t.Errorf("unexpected body: %q", article.Text)
	}
}

func TestScrapeDefaultTitle(t *testing.T) {
	html := fmt.Sprintf(`<html><body><article><p>%s</p></article></body></html>`, longPara)

	server := serveHTML(t, html)
	defer server.Close()

	article, err := New().Scrape(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if article.Title != "Drama Update" {
		t.Errorf("expected fallback title, got %q", article.Title)
	}
}

func TestScrapeNoContent(t *testing.T) {
	server := serveHTML(t, `<html><body><h1>Title</h1><div class="sidebar"><p>nothing</p></div></body></html>`)
	defer server.Close()

	if _, err := New().Scrape(context.Background(), server.URL); err == nil {
		t.Error("expected error when no article container exists")
	}
}

func TestScrapeOnlyBoilerplate(t *testing.T) {
	html := `<html><body><article>
		<p>Also read: this long cross-promotion paragraph exists purely to advertise another recap page.</p>
	</article></body></html>`

	server := serveHTML(t, html)
	defer server.Close()

	if _, err := New().Scrape(context.Background(), server.URL); err == nil {
		t.Error("expected error when every paragraph is filtered out")
	}
}

func TestScrapeCapsBodyLength(t *testing.T) {
	var paras strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&paras, "<p>%s</p>", longPara)
	}
	html := fmt.Sprintf(`<html><body><h1>T</h1><article>%s</article></body></html>`, paras.String())

	server := serveHTML(t, html)
	defer server.Close()

	article, err := New().Scrape(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if got := len([]rune(article.Text)); got > 2000 {
		t.Errorf("body should be capped at 2000 runes, got %d", got)
	}
}

func TestScrapeNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	if _, err := New().Scrape(context.Background(), server.URL); err == nil {
		t.Error("expected error for 404 page")
	}
}
