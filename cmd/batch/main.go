// Command batch generates one article per topic given on the command line,
// pacing upstream calls through the same cooldown the API server uses.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"articleforge/internal/config"
	"articleforge/internal/generator"
	"articleforge/internal/model"
	"articleforge/internal/repository"
	"articleforge/internal/throttle"
	"articleforge/pkg/llm"
)

const maxRetries = 3

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	topics := os.Args[1:]
	if len(topics) == 0 {
		log.Fatalf("usage: %s topic [topic ...]", os.Args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if !cfg.AIEnabled() {
		log.Fatalf("no upstream API key configured")
	}

	textGen, err := llm.New(cfg.Provider, cfg.APIKey, cfg.Model)
	if err != nil {
		log.Fatalf("error creating LLM client: %v", err)
	}

	articleRepo, err := repository.NewArticleRepository(cfg.ArticlesDir)
	if err != nil {
		log.Fatalf("error preparing articles directory: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &batch{
		writer:   generator.NewArticleWriter(textGen),
		store:    articleRepo,
		cooldown: throttle.New(cfg.Throttle),
		timeout:  cfg.GenerationTimeout,
	}

	saved := b.run(ctx, topics)
	slog.Info("batch finished", "requested", len(topics), "saved", saved)
	if saved < len(topics) {
		os.Exit(1)
	}
}

type articleWriter interface {
	Write(ctx context.Context, req generator.ArticleRequest) (string, error)
}

type articleSaver interface {
	Save(topic, content string) (*model.Article, error)
}

type batch struct {
	writer   articleWriter
	store    articleSaver
	cooldown *throttle.Controller
	timeout  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// run generates every topic in order and returns how many were saved.
func (b *batch) run(ctx context.Context, topics []string) int {
	saved := 0
	for _, topic := range topics {
		req := generator.ArticleRequest{Topic: topic}
		if err := req.Normalize(); err != nil {
			slog.Error("skipping topic", "topic", topic, "error", err)
			continue
		}

		for attempt := 1; attempt <= maxRetries; attempt++ {
			if err := b.wait(ctx); err != nil {
				slog.Warn("batch interrupted", "error", err)
				return saved
			}

			content, err := b.generate(ctx, req)
			if err != nil {
				slog.Error("error generating article", "topic", req.Topic, "attempt", attempt, "error", err)
				continue
			}

			article, err := b.store.Save(req.Topic, content)
			if err != nil {
				slog.Error("error saving article", "topic", req.Topic, "error", err)
				break
			}

			slog.Info("article saved", "id", article.ID, "topic", article.Topic)
			saved++
			break
		}
	}
	return saved
}

// wait blocks until the cooldown admits a request.
func (b *batch) wait(ctx context.Context) error {
	for {
		if wait := b.cooldown.TimeUntilNextAllowed(); wait > 0 {
			slog.Info("waiting for cooldown", "wait", wait)
			if err := b.sleepFor(ctx, wait); err != nil {
				return err
			}
			continue
		}
		if b.cooldown.Admit().Allowed {
			return nil
		}
	}
}

func (b *batch) generate(ctx context.Context, req generator.ArticleRequest) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	content, err := b.writer.Write(ctx, req)
	if err != nil {
		b.cooldown.ReportFailure()
		return "", err
	}
	b.cooldown.ReportSuccess()
	return content, nil
}

func (b *batch) sleepFor(ctx context.Context, d time.Duration) error {
	if b.sleep != nil {
		return b.sleep(ctx, d)
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
