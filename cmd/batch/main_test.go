package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"articleforge/internal/generator"
	"articleforge/internal/model"
	"articleforge/internal/throttle"
)

type scriptedWriter struct {
	errs  []error
	calls int
}

func (w *scriptedWriter) Write(_ context.Context, req generator.ArticleRequest) (string, error) {
	i := w.calls
	w.calls++
	if i < len(w.errs) && w.errs[i] != nil {
		return "", w.errs[i]
	}
	return "# " + req.Topic, nil
}

type memoryStore struct {
	saved []string
}

func (m *memoryStore) Save(topic, content string) (*model.Article, error) {
	m.saved = append(m.saved, topic)
	return &model.Article{ID: "1", Topic: topic, Content: content}, nil
}

func newTestBatch(w articleWriter, store articleSaver) (*batch, *[]time.Duration) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration

	b := &batch{
		writer:   w,
		store:    store,
		cooldown: throttle.New(throttle.DefaultConfig(), throttle.WithClock(func() time.Time { return now })),
		sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			now = now.Add(d)
			return nil
		},
	}
	return b, &slept
}

func TestRun_PacesTopicsThroughCooldown(t *testing.T) {
	store := &memoryStore{}
	b, slept := newTestBatch(&scriptedWriter{}, store)

	saved := b.run(context.Background(), []string{"Edge AI", "Quantum chips", "6G"})

	assert.Equal(t, 3, saved)
	assert.Equal(t, []string{"Edge AI", "Quantum chips", "6G"}, store.saved)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, *slept)
}

func TestRun_RetriesWithWidenedInterval(t *testing.T) {
	store := &memoryStore{}
	w := &scriptedWriter{errs: []error{errors.New("503"), nil}}
	b, slept := newTestBatch(w, store)

	saved := b.run(context.Background(), []string{"Edge AI"})

	assert.Equal(t, 1, saved)
	assert.Equal(t, 2, w.calls)
	assert.Equal(t, []time.Duration{40 * time.Second}, *slept)
}

func TestRun_GivesUpAfterMaxRetries(t *testing.T) {
	store := &memoryStore{}
	fail := errors.New("503")
	w := &scriptedWriter{errs: []error{fail, fail, fail}}
	b, _ := newTestBatch(w, store)

	saved := b.run(context.Background(), []string{"Edge AI", "  "})

	assert.Equal(t, 0, saved)
	assert.Equal(t, maxRetries, w.calls)
	assert.Equal(t, 0, len(store.saved))
}

func TestRun_StopsWhenInterrupted(t *testing.T) {
	store := &memoryStore{}
	b, _ := newTestBatch(&scriptedWriter{}, store)
	b.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	saved := b.run(context.Background(), []string{"Edge AI", "Quantum chips"})

	assert.Equal(t, 1, saved)
}
