package ingest

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pders01/folio/internal/idgen"
	"github.com/pders01/folio/internal/keywords"
	"github.com/pders01/folio/internal/storage"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Parser turns a feed into one chapter and its articles.
type Parser struct {
	parser *gofeed.Parser
	// User is recorded as the owner of imported records.
	User string
	// MaxKeywords caps the keywords taken from item categories.
	MaxKeywords int
	now         func() time.Time
}

func NewParser(user string) *Parser {
	return &Parser{
		parser:      gofeed.NewParser(),
		User:        user,
		MaxKeywords: keywords.DefaultMax,
		now:         time.Now,
	}
}

// Parse maps a feed document to a chapter holding its items as articles.
// IDs derive from the source URL and item GUIDs, so a re-import overwrites
// the earlier records.
func (p *Parser) Parse(data []byte, sourceURL string) (storage.Chapter, []storage.Article, error) {
	feed, err := p.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return storage.Chapter{}, nil, fmt.Errorf("parsing feed: %w", err)
	}

	now := p.now().UTC()
	chapter := storage.Chapter{
		ID:          idgen.Derive(sourceURL),
		Title:       strings.TrimSpace(feed.Title),
		Description: plainText(feed.Description),
		User:        p.User,
		Visibility:  storage.VisibilityPublic,
		Keywords:    p.keywords(feed.Categories),
		Created:     timeOr(feed.PublishedParsed, now),
		Updated:     timeOr(feed.UpdatedParsed, now),
	}
	if chapter.Title == "" {
		chapter.Title = sourceURL
	}

	articles := make([]storage.Article, 0, len(feed.Items))
	for i, item := range feed.Items {
		key := item.GUID
		if key == "" {
			key = item.Link
		}
		if key == "" {
			key = fmt.Sprintf("%d:%s", i, item.Title)
		}
		created := timeOr(item.PublishedParsed, now)
		article := storage.Article{
			ID:          idgen.Derive(sourceURL + "#" + key),
			Title:       strings.TrimSpace(item.Title),
			Description: plainText(item.Description),
			Content:     getContent(item),
			User:        p.User,
			Chapter:     chapter.ID,
			Visibility:  storage.VisibilityPublic,
			Keywords:    p.keywords(item.Categories),
			URL:         item.Link,
			Created:     created,
			Updated:     timeOr(item.UpdatedParsed, created),
		}
		chapter.Articles = append(chapter.Articles, article.ID)
		articles = append(articles, article)
	}

	return chapter, articles, nil
}

func (p *Parser) keywords(categories []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range categories {
		w := keywords.Normalize(c)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if p.MaxKeywords > 0 && len(out) == p.MaxKeywords {
			break
		}
	}
	return out
}

func getContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}

// plainText strips markup and collapses whitespace.
func plainText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.UTC()
}
