package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"articleforge/pkg/llm"
)

const (
	DefaultArticleLength = 1000
	MinArticleLength     = 100
	MaxArticleLength     = 5000
	DefaultTone          = "professional"
)

var (
	ErrMissingTopic  = errors.New("topic is required")
	ErrInvalidLength = fmt.Errorf("length must be between %d and %d words", MinArticleLength, MaxArticleLength)
	ErrNotConfigured = errors.New("article generation is not configured")
)

type ArticleRequest struct {
	Topic  string
	Length int
	Tone   string
}

// Normalize trims the request, applies defaults and validates it.
func (r *ArticleRequest) Normalize() error {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Tone = strings.TrimSpace(r.Tone)

	if r.Topic == "" {
		return ErrMissingTopic
	}
	if r.Length == 0 {
		r.Length = DefaultArticleLength
	}
	if r.Length < MinArticleLength || r.Length > MaxArticleLength {
		return ErrInvalidLength
	}
	if r.Tone == "" {
		r.Tone = DefaultTone
	}
	return nil
}

type ArticleWriter struct {
	llm llm.TextGenerator
}

func NewArticleWriter(gen llm.TextGenerator) *ArticleWriter {
	return &ArticleWriter{llm: gen}
}

func (w *ArticleWriter) Configured() bool {
	return w.llm != nil
}

// Write asks the model for an article on req.Topic and returns markdown
// headed by the topic. A failed humanize pass keeps the draft.
func (w *ArticleWriter) Write(ctx context.Context, req ArticleRequest) (string, error) {
	if w.llm == nil {
		return "", ErrNotConfigured
	}
	if err := req.Normalize(); err != nil {
		return "", err
	}

	draft, err := w.llm.Generate(ctx, llm.Prompt{
		System:      "You are a skilled technology journalist writing in-depth markdown articles.",
		User:        articlePrompt(req),
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", fmt.Errorf("generating article: %w", err)
	}

	content := fmt.Sprintf("# %s\n\n%s", req.Topic, draft)
	return w.humanize(ctx, content), nil
}

func (w *ArticleWriter) humanize(ctx context.Context, text string) string {
	out, err := w.llm.Generate(ctx, llm.Prompt{
		User:        humanizePrompt(text),
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	if err != nil {
		slog.Warn("humanize pass failed, keeping draft", "error", err)
		return text
	}
	return out
}
