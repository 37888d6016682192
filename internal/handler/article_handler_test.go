package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"articleforge/internal/generator"
	"articleforge/internal/model"
	"articleforge/internal/repository"
	"articleforge/internal/throttle"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

type fakeWriter struct {
	content      string
	err          error
	calls        int
	unconfigured bool
}

func (f *fakeWriter) Configured() bool { return !f.unconfigured }

func (f *fakeWriter) Write(ctx context.Context, req generator.ArticleRequest) (string, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return "# " + req.Topic + "\n\n" + f.content, nil
}

type failingStore struct {
	err error
}

func (f *failingStore) CheckTopic(string) error { return nil }

func (f *failingStore) Save(string, string) (*model.Article, error) { return nil, f.err }

func (f *failingStore) List() ([]model.Article, error) { return nil, f.err }

func (f *failingStore) GetByID(string) (*model.Article, error) { return nil, f.err }

func (f *failingStore) DeleteByID(string) (string, error) { return "", f.err }

type testEnv struct {
	router   *gin.Engine
	store    *repository.ArticleRepository
	writer   *fakeWriter
	throttle *throttle.Controller
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store, err := repository.NewArticleRepository(t.TempDir(), repository.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewArticleRepository: %v", err)
	}

	env := &testEnv{
		store:    store,
		writer:   &fakeWriter{content: "Body"},
		throttle: throttle.New(throttle.DefaultConfig(), throttle.WithClock(clock.Now)),
		clock:    clock,
	}
	env.router = newArticleRouter(store, env.writer, env.throttle)
	return env
}

func newArticleRouter(store ArticleStore, writer ArticleWriter, th Throttle) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewArticleHandler(store, writer, th, time.Second)
	r.POST("/api/articles/generate", h.Generate)
	r.GET("/api/articles", h.List)
	r.GET("/api/articles/:id", h.Get)
	r.DELETE("/api/articles/:id", h.Delete)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func TestGenerate_SavesArticle(t *testing.T) {
	env := newTestEnv(t)

	w := serve(env.router, "POST", "/api/articles/generate", `{"topic":"  Edge AI  "}`)

	assert.Equal(t, http.StatusOK, w.Code)

	res := decode[ArticleResponse](t, w)
	assert.Equal(t, "Edge AI", res.Topic)
	assert.Equal(t, "# Edge AI\n\nBody", res.Content)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", res.CreatedAt)
	assert.Equal(t, "1772366400000", res.ID)

	saved, err := env.store.GetByID(res.ID)
	assert.Equal(t, nil, err)
	assert.Equal(t, "# Edge AI\n\nBody", saved.Content)

	state := env.throttle.Snapshot()
	assert.Equal(t, 30*time.Second, state.MinInterval)
	assert.Equal(t, env.clock.now, state.LastRequest)
}

func TestGenerate_MissingTopic(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty topic", `{"topic":"   "}`, "Topic not specified"},
		{"no topic", `{"tone":"casual"}`, "Topic not specified"},
		{"length out of range", `{"topic":"Edge AI","length":20}`, generator.ErrInvalidLength.Error()},
		{"malformed body", `{"topic":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := serve(env.router, "POST", "/api/articles/generate", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decode[map[string]any](t, w)["error"])
			assert.Equal(t, 0, env.writer.calls)
			assert.Equal(t, true, env.throttle.Snapshot().LastRequest.IsZero())
		})
	}
}

func TestGenerate_TopicTooLongForStore(t *testing.T) {
	env := newTestEnv(t)

	w := serve(env.router, "POST", "/api/articles/generate", `{"topic":"`+strings.Repeat("x", 300)+`"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.writer.calls)
}

func TestGenerate_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.writer.unconfigured = true

	w := serve(env.router, "POST", "/api/articles/generate", `{"topic":"Edge AI"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server configuration error", decode[map[string]any](t, w)["error"])
	assert.Equal(t, true, env.throttle.Snapshot().LastRequest.IsZero())
}

func TestGenerate_ThrottledSecondRequest(t *testing.T) {
	env := newTestEnv(t)

	first := serve(env.router, "POST", "/api/articles/generate", `{"topic":"Edge AI"}`)
	assert.Equal(t, http.StatusOK, first.Code)
	admittedAt := env.clock.now

	env.clock.Advance(time.Second)
	w := serve(env.router, "POST", "/api/articles/generate", `{"topic":"Quantum chips"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	res := decode[ThrottledResponse](t, w)
	assert.Equal(t, "Rate limit exceeded", res.Error)
	assert.Equal(t, int64(29000), res.WaitTime)
	assert.Equal(t, "Please wait 29 seconds", res.Message)
	assert.Equal(t, admittedAt.Add(30*time.Second).UnixMilli(), res.NextRequestTime)
	assert.Equal(t, 1, env.writer.calls)
}

func TestGenerate_UpstreamFailureWidensInterval(t *testing.T) {
	env := newTestEnv(t)
	env.writer.err = errors.New("upstream 503")

	w := serve(env.router, "POST", "/api/articles/generate", `{"topic":"Edge AI"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to generate article", decode[map[string]any](t, w)["error"])

	state := env.throttle.Snapshot()
	assert.Equal(t, 40*time.Second, state.MinInterval)
	assert.Equal(t, 1, state.ConsecutiveErrors)

	articles, _ := env.store.List()
	assert.Equal(t, 0, len(articles))
}

func TestGenerate_StorageFailureDoesNotPenalize(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	th := throttle.New(throttle.DefaultConfig(), throttle.WithClock(clock.Now))
	writer := &fakeWriter{content: "Body"}
	store := &failingStore{err: &repository.StorageError{Op: "write", Path: "x", Err: errors.New("read-only file system")}}

	w := serve(newArticleRouter(store, writer, th), "POST", "/api/articles/generate", `{"topic":"Edge AI"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to save article", decode[map[string]any](t, w)["error"])
	assert.Equal(t, 0, th.Snapshot().ConsecutiveErrors)
	assert.Equal(t, 30*time.Second, th.Snapshot().MinInterval)
}

func TestGenerate_ClientDisconnectDoesNotPenalize(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/api/articles/generate", strings.NewReader(`{"topic":"Edge AI"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.throttle.Snapshot().ConsecutiveErrors)
	assert.Equal(t, 30*time.Second, env.throttle.Snapshot().MinInterval)

	articles, _ := env.store.List()
	assert.Equal(t, 1, len(articles))
}

func TestList_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.store.Save("First", "one")
	env.clock.Advance(time.Second)
	env.store.Save("Second", "two")

	w := serve(env.router, "GET", "/api/articles", "")

	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[[]ArticleResponse](t, w)
	assert.Equal(t, 2, len(res))
	assert.Equal(t, "Second", res[0].Topic)
	assert.Equal(t, "First", res[1].Topic)
}

func TestList_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	w := serve(env.router, "GET", "/api/articles", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestList_StorageError(t *testing.T) {
	store := &failingStore{err: &repository.StorageError{Op: "readdir", Path: "articles", Err: errors.New("permission denied")}}

	w := serve(newArticleRouter(store, &fakeWriter{}, throttle.New(throttle.DefaultConfig())), "GET", "/api/articles", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to fetch articles", decode[map[string]any](t, w)["error"])
}

func TestGetArticle(t *testing.T) {
	env := newTestEnv(t)
	article, _ := env.store.Save("Edge AI", "body")

	w := serve(env.router, "GET", "/api/articles/"+article.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Edge AI", decode[ArticleResponse](t, w).Topic)

	assert.Equal(t, http.StatusNotFound, serve(env.router, "GET", "/api/articles/123", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(env.router, "GET", "/api/articles/abc", "").Code)
}

func TestDeleteArticle(t *testing.T) {
	env := newTestEnv(t)
	article, _ := env.store.Save("Edge AI", "body")

	w := serve(env.router, "DELETE", "/api/articles/"+article.ID, "")

	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[DeleteResponse](t, w)
	assert.Equal(t, true, res.Success)
	assert.Equal(t, true, strings.HasPrefix(res.DeletedFile, article.ID+"-"))

	again := serve(env.router, "DELETE", "/api/articles/"+article.ID, "")
	assert.Equal(t, http.StatusNotFound, again.Code)
	assert.Equal(t, "Article not found", decode[map[string]any](t, again)["error"])
}

func TestDeleteArticle_StorageError(t *testing.T) {
	store := &failingStore{err: &repository.StorageError{Op: "remove", Path: "x", Err: errors.New("busy")}}

	w := serve(newArticleRouter(store, &fakeWriter{}, throttle.New(throttle.DefaultConfig())), "DELETE", "/api/articles/1", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
