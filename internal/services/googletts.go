package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Google Translate TTS Service
// Uses the unauthenticated translate_tts endpoint. The endpoint caps the
// q parameter at roughly 200 characters, so longer scripts are split into
// chunks and the returned MP3 frames are concatenated into one stream.
// ---------------------------------------------------------------------------

const (
	googleTTSBaseURL   = "https://translate.google.com/translate_tts"
	googleTTSClient    = "tw-ob"
	googleTTSUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

	// Maximum runes per request; above this the endpoint returns 400.
	ttsChunkLimit = 200
)

// GoogleTTSService synthesizes speech via the Google Translate TTS endpoint.
type GoogleTTSService struct {
	lang    string
	baseURL string
	client  *http.Client
}

// Compile-time check that GoogleTTSService implements Synthesizer.
var _ Synthesizer = (*GoogleTTSService)(nil)

// NewGoogleTTSService creates a new Translate TTS client for the given
// language code (e.g. "hi").
func NewGoogleTTSService(lang string) *GoogleTTSService {
	return &GoogleTTSService{
		lang:    lang,
		baseURL: googleTTSBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Synthesize converts text to speech and returns the concatenated MP3 bytes.
func (s *GoogleTTSService) Synthesize(ctx context.Context, text string) (*SynthesisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot synthesize empty text")
	}

	chunks := splitTTSChunks(text, ttsChunkLimit)
	log.Printf("[GoogleTTS] Synthesizing %d characters in %d chunk(s) (lang=%s)", len([]rune(text)), len(chunks), s.lang)

	var audio []byte
	for i, chunk := range chunks {
		data, err := s.fetchChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("TTS chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio = append(audio, data...)
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS returned no audio data")
	}

	log.Printf("[GoogleTTS] Generated %d bytes of audio", len(audio))
	return &SynthesisResult{
		AudioData: audio,
		Format:    "mp3",
	}, nil
}

func (s *GoogleTTSService) fetchChunk(ctx context.Context, chunk string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", googleTTSClient)
	params.Set("tl", s.lang)
	params.Set("q", chunk)

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", googleTTSUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	return data, nil
}

// splitTTSChunks breaks text into chunks of at most limit runes, splitting
// on word boundaries and flushing early after sentence-ending punctuation so
// the synthesized pauses land in natural places. Words longer than the limit
// are hard-split.
func splitTTSChunks(text string, limit int) []string {
	words := strings.Fields(text)
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range words {
		runes := []rune(word)
		if len(runes) > limit {
			flush()
			for len(runes) > limit {
				chunks = append(chunks, string(runes[:limit]))
				runes = runes[limit:]
			}
			if len(runes) > 0 {
				cur.WriteString(string(runes))
				curLen = len(runes)
			}
			continue
		}

		need := len(runes)
		if curLen > 0 {
			need++ // joining space
		}
		if curLen+need > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += len(runes)

		if endsSentence(word) && curLen >= limit/2 {
			flush()
		}
	}
	flush()
	return chunks
}

func endsSentence(word string) bool {
	for _, suffix := range []string{".", "!", "?", "।"} { // U+0964 is the Devanagari danda
		if strings.HasSuffix(word, suffix) {
			return true
		}
	}
	return false
}

// truncate shortens a string for error messages.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
