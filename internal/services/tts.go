package services

import "context"

// ---------------------------------------------------------------------------
// Synthesizer — common interface for text-to-speech providers
// The worker only sees this interface, so the provider can be swapped
// without touching the row pipeline.
// ---------------------------------------------------------------------------

// SynthesisResult is the common response type from any TTS provider.
type SynthesisResult struct {
	AudioData []byte
	Format    string // "mp3", "wav", etc.
}

// Synthesizer is the interface that any TTS provider must implement.
type Synthesizer interface {
	// Synthesize converts a plain-text script into speech audio in the
	// provider's configured language. The text must be non-empty.
	Synthesize(ctx context.Context, text string) (*SynthesisResult, error)
}
