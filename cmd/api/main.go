package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"articleforge/db"
	"articleforge/internal/config"
	"articleforge/internal/generator"
	"articleforge/internal/handler"
	"articleforge/internal/middleware"
	"articleforge/internal/repository"
	"articleforge/internal/throttle"
	"articleforge/pkg/llm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	articleRepo, err := repository.NewArticleRepository(cfg.ArticlesDir)
	if err != nil {
		log.Fatalf("error preparing articles directory: %v", err)
	}

	var textGen llm.TextGenerator
	if cfg.AIEnabled() {
		textGen, err = llm.New(cfg.Provider, cfg.APIKey, cfg.Model)
		if err != nil {
			log.Fatalf("error creating LLM client: %v", err)
		}
		slog.Info("upstream text generation enabled", "provider", cfg.Provider, "model", textGen.Name())
	} else {
		slog.Warn("no upstream API key, generation endpoints will report a configuration error")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = db.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("error connecting to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	generateLimiter, closeGenerate := newLimiter(redisClient, cfg.GenerateRateLimit, cfg.RateLimitWindow)
	defer closeGenerate()
	generalLimiter, closeGeneral := newLimiter(redisClient, cfg.GeneralRateLimit, cfg.RateLimitWindow)
	defer closeGeneral()

	cooldown := throttle.New(cfg.Throttle)

	articleHandler := handler.NewArticleHandler(articleRepo, generator.NewArticleWriter(textGen), cooldown, cfg.GenerationTimeout)
	topicHandler := handler.NewTopicHandler(generator.NewTitleGenerator(textGen, nil, nil))

	r := gin.Default()

	slog.Info("CORS allowed origins", "origins", cfg.CORSOrigins)
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/health", handler.Health)

	general := middleware.RateLimit(generalLimiter, "general")

	api := r.Group("/api")
	api.GET("/topics/random", general, topicHandler.RandomTopics)
	api.GET("/topics/personalities", general, topicHandler.Personalities)
	api.POST("/articles/generate", middleware.RateLimit(generateLimiter, "generate"), articleHandler.Generate)
	api.GET("/articles", general, articleHandler.List)
	api.GET("/articles/:id", general, articleHandler.Get)
	api.DELETE("/articles/:id", general, articleHandler.Delete)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "port", cfg.Port, "articles_dir", articleRepo.Dir())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("error starting server: %v", err)
		}
	}()

	<-stop

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// newLimiter shares counters through Redis when a client is available and
// falls back to per-process buckets otherwise.
func newLimiter(client *redis.Client, limit int, window time.Duration) (middleware.Limiter, func()) {
	if client != nil {
		return middleware.NewRedisLimiter(client, db.RateLimitKeyPrefix, limit, window), func() {}
	}
	l := middleware.NewMemoryLimiter(limit, window)
	return l, l.Close
}
