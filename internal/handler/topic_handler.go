package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"articleforge/internal/generator"
	"articleforge/internal/model"
)

type TitleSource interface {
	Configured() bool
	ValidTypes() []string
	Generate(ctx context.Context, typeName string, count int) ([]model.Title, error)
	Personalities(count int) []model.Title
}

type TopicHandler struct {
	titles TitleSource
}

func NewTopicHandler(titles TitleSource) *TopicHandler {
	return &TopicHandler{titles: titles}
}

func (h *TopicHandler) RandomTopics(c *gin.Context) {
	count := getQueryCount(c)
	typeName := c.DefaultQuery("type", generator.DefaultTitleType)

	validTypes := h.titles.ValidTypes()
	if !slices.Contains(validTypes, typeName) {
		slog.Warn("invalid article type", "type", typeName)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "Invalid article type",
			"validTypes":   validTypes,
			"receivedType": typeName,
		})
		return
	}

	if !h.titles.Configured() {
		slog.Error("title generation requested without an upstream API key")
		c.JSON(http.StatusInternalServerError, configurationError)
		return
	}

	titles, err := h.titles.Generate(c.Request.Context(), typeName, count)
	if err != nil {
		if errors.Is(err, generator.ErrInvalidTitleType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article type", "receivedType": typeName})
			return
		}
		slog.Error("error generating titles", "type", typeName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate titles"})
		return
	}

	c.JSON(http.StatusOK, toTitleResponses(titles))
}

func (h *TopicHandler) Personalities(c *gin.Context) {
	c.JSON(http.StatusOK, toTitleResponses(h.titles.Personalities(getQueryCount(c))))
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getQueryCount reads ?count, falling back to the default on anything that is
// not a number and clamping the rest.
func getQueryCount(c *gin.Context) int {
	raw := c.Query("count")
	if raw == "" {
		return generator.DefaultTitleCount
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid query parameter, using default", "param", "count", "value", raw, "error", err)
		return generator.DefaultTitleCount
	}
	return generator.ClampCount(n)
}
