package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"articleforge/internal/generator"
	"articleforge/internal/model"
	"articleforge/internal/repository"
	"articleforge/internal/throttle"
)

type ArticleStore interface {
	CheckTopic(topic string) error
	Save(topic, content string) (*model.Article, error)
	List() ([]model.Article, error)
	GetByID(id string) (*model.Article, error)
	DeleteByID(id string) (string, error)
}

type ArticleWriter interface {
	Configured() bool
	Write(ctx context.Context, req generator.ArticleRequest) (string, error)
}

// Throttle is the global cooldown in front of the upstream API.
type Throttle interface {
	Admit() throttle.Decision
	ReportSuccess()
	ReportFailure()
}

type ArticleHandler struct {
	store    ArticleStore
	writer   ArticleWriter
	throttle Throttle
	timeout  time.Duration
}

func NewArticleHandler(store ArticleStore, writer ArticleWriter, cooldown Throttle, timeout time.Duration) *ArticleHandler {
	return &ArticleHandler{store: store, writer: writer, throttle: cooldown, timeout: timeout}
}

func (h *ArticleHandler) Generate(c *gin.Context) {
	var body GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		slog.Warn("invalid generate request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	req := generator.ArticleRequest{Topic: body.Topic, Tone: body.Tone, Length: body.Length}
	if err := req.Normalize(); err != nil {
		if errors.Is(err, generator.ErrMissingTopic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Topic not specified"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.CheckTopic(req.Topic); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.writer.Configured() {
		slog.Error("article generation requested without an upstream API key")
		c.JSON(http.StatusInternalServerError, configurationError)
		return
	}

	decision := h.throttle.Admit()
	if !decision.Allowed {
		slog.Info("generation throttled", "wait", decision.Wait)
		c.JSON(http.StatusTooManyRequests, throttled(decision))
		return
	}

	// A client hanging up must not abort the upstream call; only the
	// generation timeout does.
	ctx := context.WithoutCancel(c.Request.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	content, err := h.writer.Write(ctx, req)
	if err != nil {
		h.throttle.ReportFailure()
		slog.Error("error generating article", "topic", req.Topic, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate article",
			"message": err.Error(),
		})
		return
	}
	h.throttle.ReportSuccess()

	article, err := h.store.Save(req.Topic, content)
	if err != nil {
		slog.Error("error saving article", "topic", req.Topic, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save article",
			"message": err.Error(),
		})
		return
	}

	slog.Info("article generated", "id", article.ID, "topic", article.Topic)
	c.JSON(http.StatusOK, toArticleResponse(*article))
}

func (h *ArticleHandler) List(c *gin.Context) {
	articles, err := h.store.List()
	if err != nil {
		slog.Error("error listing articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch articles",
			"message": err.Error(),
		})
		return
	}

	res := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		res = append(res, toArticleResponse(a))
	}
	c.JSON(http.StatusOK, res)
}

func (h *ArticleHandler) Get(c *gin.Context) {
	id := c.Param("id")

	article, err := h.store.GetByID(id)
	if err != nil {
		slog.Error("error fetching article", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch article",
			"message": err.Error(),
		})
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	c.JSON(http.StatusOK, toArticleResponse(*article))
}

func (h *ArticleHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Article id not specified"})
		return
	}

	file, err := h.store.DeleteByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
			return
		}
		slog.Error("error deleting article", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete article",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Success:     true,
		Message:     "Article deleted successfully",
		DeletedFile: file,
	})
}

var configurationError = gin.H{
	"error":   "Server configuration error",
	"details": "API key is not configured",
}

func throttled(d throttle.Decision) ThrottledResponse {
	return ThrottledResponse{
		Error:           "Rate limit exceeded",
		WaitTime:        d.Wait.Milliseconds(),
		Message:         fmt.Sprintf("Please wait %d seconds", int64(math.Ceil(d.Wait.Seconds()))),
		NextRequestTime: d.NextAllowed.UnixMilli(),
	}
}
