package handler

import "articleforge/internal/model"

// isoMillis matches JavaScript's Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type GenerateRequest struct {
	Topic  string `json:"topic"`
	Tone   string `json:"tone"`
	Length int    `json:"length"`
}

type ArticleResponse struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type TitleResponse struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Keywords    []string `json:"keywords"`
	Summary     string   `json:"summary"`
	ReadingTime string   `json:"readingTime"`
	Category    string   `json:"category,omitempty"`
}

type ThrottledResponse struct {
	Error           string `json:"error"`
	WaitTime        int64  `json:"waitTime"`
	Message         string `json:"message"`
	NextRequestTime int64  `json:"nextRequestTime"`
}

type DeleteResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DeletedFile string `json:"deletedFile"`
}

func toArticleResponse(a model.Article) ArticleResponse {
	return ArticleResponse{
		ID:        a.ID,
		Topic:     a.Topic,
		Content:   a.Content,
		CreatedAt: a.CreatedAt.UTC().Format(isoMillis),
	}
}

func toTitleResponses(titles []model.Title) []TitleResponse {
	res := make([]TitleResponse, 0, len(titles))
	for _, t := range titles {
		res = append(res, TitleResponse{
			Title:       t.Title,
			Type:        t.Type,
			Keywords:    t.Keywords,
			Summary:     t.Summary,
			ReadingTime: t.ReadingTime,
			Category:    t.Category,
		})
	}
	return res
}
