package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"articleforge/internal/model"
	"articleforge/pkg/llm"
)

const (
	DefaultTitleType  = "tech-trends"
	DefaultTitleCount = 5
	MaxTitleCount     = 10

	personalityTitleType = "tech-personality"
)

var (
	ErrInvalidTitleType = errors.New("invalid article type")
	errTooFewTitles     = errors.New("model returned too few usable titles")
)

var numberedLine = regexp.MustCompile(`^\d+\.`)

// ClampCount maps a requested title count onto [1, MaxTitleCount], with
// non-positive values meaning the default.
func ClampCount(n int) int {
	if n < 1 {
		return DefaultTitleCount
	}
	return min(n, MaxTitleCount)
}

type TitleGenerator struct {
	llm     llm.TextGenerator
	catalog *Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTitleGenerator builds a generator. gen may be nil, in which case only
// the local catalog is used; rng may be nil to seed from the clock.
func NewTitleGenerator(gen llm.TextGenerator, catalog *Catalog, rng *rand.Rand) *TitleGenerator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &TitleGenerator{llm: gen, catalog: catalog, rng: rng}
}

func (g *TitleGenerator) Configured() bool {
	return g.llm != nil
}

func (g *TitleGenerator) ValidTypes() []string {
	return g.catalog.TypeNames()
}

// Generate returns count distinct titles of the given type. Upstream errors
// never surface: the local catalog answers instead.
func (g *TitleGenerator) Generate(ctx context.Context, typeName string, count int) ([]model.Title, error) {
	t, ok := g.catalog.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTitleType, typeName)
	}
	count = ClampCount(count)

	if g.llm != nil {
		titles, err := g.modelTitles(ctx, t, count)
		if err == nil {
			return titles, nil
		}
		slog.Warn("title generation failed, using fallback titles", "type", t.Name, "count", count, "error", err)
	}

	return g.Fallback(t, count), nil
}

func (g *TitleGenerator) modelTitles(ctx context.Context, t TitleType, count int) ([]model.Title, error) {
	text, err := g.llm.Generate(ctx, llm.Prompt{
		User:        titlePrompt(t, count),
		Temperature: 0.9,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, err
	}

	lines := parseTitles(text, count)
	if len(lines) < count {
		return nil, fmt.Errorf("%w: got %d of %d", errTooFewTitles, len(lines), count)
	}

	titles := make([]model.Title, 0, len(lines))
	for _, line := range lines {
		titles = append(titles, model.Title{
			Title:       line,
			Type:        t.Name,
			Keywords:    g.catalog.KeywordsForTitle(line),
			Summary:     fmt.Sprintf("A detailed analysis and review about %s.", line),
			ReadingTime: g.readingTime(),
		})
	}
	return titles, nil
}

// Fallback builds count distinct titles from the catalog alone: curated titles
// first, then keyword and template combinations. Given the same random
// source it returns the same titles.
func (g *TitleGenerator) Fallback(t TitleType, count int) []model.Title {
	count = ClampCount(count)

	g.mu.Lock()
	picked := make([]string, 0, count)
	seen := make(map[string]bool, count)
	add := func(title string) {
		if len(picked) < count && title != "" && !seen[title] {
			seen[title] = true
			picked = append(picked, title)
		}
	}

	for _, i := range g.rng.Perm(len(t.BackupTitles)) {
		add(t.BackupTitles[i])
	}
	if len(picked) < count {
		for _, i := range g.rng.Perm(len(t.Templates) * len(t.Keywords)) {
			template := t.Templates[i%len(t.Templates)]
			keyword := t.Keywords[i/len(t.Templates)]
			add(strings.ReplaceAll(template, "{keyword}", keyword))
		}
	}
	g.mu.Unlock()

	titles := make([]model.Title, 0, len(picked))
	for _, title := range picked {
		titles = append(titles, model.Title{
			Title:       title,
			Type:        t.Name,
			Keywords:    g.catalog.KeywordsForTitle(title),
			Summary:     fmt.Sprintf("A detailed analysis and evaluation of %s.", title),
			ReadingTime: g.readingTime(),
		})
	}
	return titles
}

type personalityPick struct {
	title       string
	personality Personality
}

// Personalities builds count distinct titles about well-known tech leaders.
func (g *TitleGenerator) Personalities(count int) []model.Title {
	count = ClampCount(count)

	var all []personalityPick
	for _, p := range g.catalog.Personalities {
		for _, template := range g.catalog.PersonalityTemplates {
			for _, keyword := range p.Keywords {
				title := strings.NewReplacer("{name}", p.Name, "{keyword}", keyword).Replace(template)
				all = append(all, personalityPick{title: title, personality: p})
			}
		}
	}

	g.mu.Lock()
	order := g.rng.Perm(len(all))
	g.mu.Unlock()

	seen := make(map[string]bool, count)
	titles := make([]model.Title, 0, count)
	for _, i := range order {
		if len(titles) == count {
			break
		}
		pick := all[i]
		if seen[pick.title] {
			continue
		}
		seen[pick.title] = true

		p := pick.personality
		keywords := uniqueStrings(append(append([]string{}, p.Keywords[:min(3, len(p.Keywords))]...), "leadership", "technology"))
		titles = append(titles, model.Title{
			Title:    pick.title,
			Type:     personalityTitleType,
			Keywords: keywords,
			Summary: fmt.Sprintf("Discover the insights and strategies behind %s, exploring how modern technology "+
				"and leadership principles intersect in today's rapidly evolving tech landscape.", strings.ToLower(pick.title)),
			ReadingTime: g.readingTime(),
			Category:    keywords[0],
		})
	}
	return titles
}

func (g *TitleGenerator) readingTime() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%d minutes", g.rng.IntN(5)+3)
}

// parseTitles keeps the first count distinct title lines, dropping blanks,
// bullets and numbered lines.
func parseTitles(text string, count int) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") || numberedLine.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(strings.Trim(line, `"*`))
		if line == "" {
			continue
		}

		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true

		titles = append(titles, line)
		if len(titles) == count {
			break
		}
	}
	return titles
}
