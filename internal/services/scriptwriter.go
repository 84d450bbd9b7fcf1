package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// ScriptRewriter
// Turns scraped article text into narration suitable for TTS. Only used
// when a sheet row carries a source URL instead of a pre-written script.
// ---------------------------------------------------------------------------

type ScriptRewriter struct {
	client   *openai.Client
	model    string
	language string
	maxChars int
}

func NewScriptRewriter(apiKey, language string, maxChars int) *ScriptRewriter {
	return &ScriptRewriter{
		client:   openai.NewClient(apiKey),
		model:    "gpt-5-mini",
		language: language,
		maxChars: maxChars,
	}
}

// Rewrite condenses raw article text into a spoken narration script.
func (s *ScriptRewriter) Rewrite(ctx context.Context, title, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text to rewrite")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildRewriteSystemPrompt(s.language, s.maxChars),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildRewriteUserPrompt(title, text),
			},
		},
		Temperature: 1.0,
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	script := strings.TrimSpace(resp.Choices[0].Message.Content)
	if script == "" {
		return "", fmt.Errorf("openai returned an empty script")
	}

	log.Printf("[ScriptWriter] Rewrote %d chars of source text into a %d char script", len(text), len(script))
	return script, nil
}

func buildRewriteSystemPrompt(language string, maxChars int) string {
	return fmt.Sprintf(`You are a narration writer for short recap videos.

Rewrite the article text the user provides into a voiceover script in the "%s" language.

Guidelines:
- Write for the ear, not the eye: short sentences, natural speech rhythm.
- Keep every plot point and name from the source, drop filler and site boilerplate.
- No headings, no bullet points, no stage directions. Plain narration only.
- Stay under %d characters.
- Reply with the narration text and nothing else.`, language, maxChars)
}

func buildRewriteUserPrompt(title, text string) string {
	return fmt.Sprintf("Title: %s\n\nArticle text:\n%s", title, text)
}
