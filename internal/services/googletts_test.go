package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSplitTTSChunksRespectsLimit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
	}{
		{"short text", "hello world", 200},
		{"long text", strings.Repeat("word ", 100), 50},
		{"devanagari", strings.Repeat("नमस्ते ", 60), 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitTTSChunks(tt.text, tt.limit)
			if len(chunks) == 0 {
				t.Fatal("expected at least one chunk")
			}
			for i, chunk := range chunks {
				if n := len([]rune(chunk)); n > tt.limit {
					t.Errorf("chunk %d has %d runes, limit is %d", i, n, tt.limit)
				}
			}
		})
	}
}

func TestSplitTTSChunksPreservesWords(t *testing.T) {
	text := "This is the first sentence. Here comes the second one! And a third, somewhat longer sentence to push past the limit?"
	chunks := splitTTSChunks(text, 40)

	joined := strings.Join(chunks, " ")
	want := strings.Join(strings.Fields(text), " ")
	if joined != want {
		t.Errorf("chunks lost content:\ngot  %q\nwant %q", joined, want)
	}
}

func TestSplitTTSChunksHardSplitsLongWord(t *testing.T) {
	word := strings.Repeat("x", 55)
	chunks := splitTTSChunks(word, 20)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(chunks), chunks)
	}
	if strings.Join(chunks, "") != word {
		t.Error("hard split lost characters")
	}
}

func TestSynthesizeConcatenatesChunks(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.URL.Query().Get("tl"); got != "hi" {
			t.Errorf("expected tl=hi, got %q", got)
		}
		if got := r.URL.Query().Get("client"); got != "tw-ob" {
			t.Errorf("expected client=tw-ob, got %q", got)
		}
		fmt.Fprintf(w, "[%s]", r.URL.Query().Get("q"))
	}))
	defer server.Close()

	svc := NewGoogleTTSService("hi")
	svc.baseURL = server.URL

	// Two sentences that cannot fit a single 200-rune request.
	text := strings.Repeat("alpha beta gamma delta. ", 15)
	result, err := svc.Synthesize(context.Background(), text)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if requests < 2 {
		t.Errorf("expected the text to be chunked into multiple requests, got %d", requests)
	}
	if result.Format != "mp3" {
		t.Errorf("expected mp3 format, got %q", result.Format)
	}
	audio := string(result.AudioData)
	if strings.Count(audio, "[") != requests {
		t.Errorf("expected %d concatenated chunk payloads, got %d", requests, strings.Count(audio, "["))
	}
	if !strings.Contains(audio, "alpha beta gamma delta.") {
		t.Error("audio payload missing synthesized text")
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	svc := NewGoogleTTSService("hi")
	if _, err := svc.Synthesize(context.Background(), "   "); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestSynthesizeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewGoogleTTSService("hi")
	svc.baseURL = server.URL

	_, err := svc.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should mention status code, got: %v", err)
	}
}
