package generator

import (
	"context"
	"math/rand/v2"
	"sync"

	"articleforge/pkg/llm"
)

type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []llm.Prompt
}

func (f *fakeLLM) Generate(_ context.Context, p llm.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.prompts)
	f.prompts = append(f.prompts, p)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", llm.ErrEmptyResponse
}

func (f *fakeLLM) Name() string { return "fake" }

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}
