package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyResponse = errors.New("empty response from model")

type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
}

// TextGenerator is the upstream text generation API.
type TextGenerator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Name() string
}

const defaultMaxTokens = 2048

func New(provider, apiKey, model string) (TextGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: api key not configured")
	}

	switch provider {
	case "openai", "":
		return NewOpenAIClient(apiKey, model), nil
	case "anthropic":
		return NewAnthropicClient(apiKey, model), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q (valid: openai, anthropic)", provider)
	}
}

func cleanTextResponse(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	// Models sometimes wrap a whole markdown answer in a fence.
	content = strings.TrimPrefix(content, "```markdown")
	content = strings.TrimPrefix(content, "```md")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func maxTokens(p Prompt) int64 {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return defaultMaxTokens
}
