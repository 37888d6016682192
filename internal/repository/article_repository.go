package repository

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"articleforge/internal/model"
)

var ErrArticleNotFound = errors.New("article not found")

// StorageError wraps a filesystem failure with the operation and path involved.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

type Option func(*ArticleRepository)

func WithClock(now func() time.Time) Option {
	return func(r *ArticleRepository) {
		r.now = now
	}
}

// ArticleRepository keeps one markdown file per article in a flat directory.
// Nothing is locked: a list or delete running alongside a save of the same id
// can observe a half-finished state.
type ArticleRepository struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	lastID int64
}

func NewArticleRepository(dir string, opts ...Option) (*ArticleRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	r := &ArticleRepository{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *ArticleRepository) Dir() string {
	return r.dir
}

// nextID returns the current Unix millisecond, bumped past the previous id so
// two saves in the same millisecond still sort.
func (r *ArticleRepository) nextID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return id
}

// CheckTopic reports whether topic can be stored, without writing anything.
func (r *ArticleRepository) CheckTopic(topic string) error {
	_, err := NewFilename(r.now().UnixMilli(), topic)
	return err
}

func (r *ArticleRepository) Save(topic, content string) (*model.Article, error) {
	id := r.nextID()

	name, err := NewFilename(id, topic)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(r.dir, name.String())
	tmp := filepath.Join(r.dir, "."+name.String()+".tmp")

	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return nil, &StorageError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, &StorageError{Op: "rename", Path: path, Err: err}
	}

	return &model.Article{
		ID:        name.ID,
		Topic:     topic,
		Content:   content,
		CreatedAt: time.UnixMilli(id).UTC(),
	}, nil
}

// List returns every readable article, newest first. Entries whose names do
// not decode or whose content cannot be read are skipped.
func (r *ArticleRepository) List() ([]model.Article, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, &StorageError{Op: "readdir", Path: r.dir, Err: err}
	}

	type listed struct {
		millis  int64
		article model.Article
	}

	var found []listed
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		article, name, err := r.load(entry.Name())
		if err != nil {
			slog.Warn("skipping article file", "file", entry.Name(), "error", err)
			continue
		}
		found = append(found, listed{millis: name.Millis(), article: *article})
	}

	slices.SortFunc(found, func(a, b listed) int {
		switch {
		case a.millis > b.millis:
			return -1
		case a.millis < b.millis:
			return 1
		default:
			return strings.Compare(b.article.ID, a.article.ID)
		}
	})

	articles := make([]model.Article, 0, len(found))
	for _, f := range found {
		articles = append(articles, f.article)
	}
	return articles, nil
}

func (r *ArticleRepository) GetByID(id string) (*model.Article, error) {
	file, err := r.findByID(id)
	if err != nil {
		return nil, err
	}
	if file == "" {
		return nil, nil
	}

	article, _, err := r.load(file)
	if err != nil {
		return nil, err
	}
	return article, nil
}

// DeleteByID removes the first file belonging to id and returns its name.
func (r *ArticleRepository) DeleteByID(id string) (string, error) {
	file, err := r.findByID(id)
	if err != nil {
		return "", err
	}
	if file == "" {
		return "", fmt.Errorf("%w: %s", ErrArticleNotFound, id)
	}

	path := filepath.Join(r.dir, file)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrArticleNotFound, id)
		}
		return "", &StorageError{Op: "remove", Path: path, Err: err}
	}

	slog.Info("article deleted", "file", file)
	return file, nil
}

// findByID matches on "{id}-" so that id 17 never selects 1700000000000.
func (r *ArticleRepository) findByID(id string) (string, error) {
	if !isDigits(id) {
		return "", nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return "", &StorageError{Op: "readdir", Path: r.dir, Err: err}
	}

	prefix := id + idSeparator
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), prefix) {
			return entry.Name(), nil
		}
	}
	return "", nil
}

func (r *ArticleRepository) load(file string) (*model.Article, Filename, error) {
	name, err := ParseFilename(file)
	if err != nil {
		return nil, Filename{}, err
	}

	topic, err := name.Topic()
	if err != nil {
		return nil, Filename{}, err
	}

	path := filepath.Join(r.dir, file)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, Filename{}, &StorageError{Op: "read", Path: path, Err: err}
	}

	return &model.Article{
		ID:        name.ID,
		Topic:     topic,
		Content:   string(content),
		CreatedAt: time.UnixMilli(name.Millis()).UTC(),
	}, name, nil
}
