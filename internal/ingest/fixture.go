package ingest

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/folio/internal/idgen"
	"github.com/pders01/folio/internal/keywords"
	"github.com/pders01/folio/internal/storage"
)

//go:embed sample.toml
var sampleFixture []byte

// Fixture is a TOML document of chapters and articles:
//
//	[[chapters]]
//	id = "calculus"
//	title = "Calculus"
//
//	[[articles]]
//	title = "Limits"
//	chapter = "calculus"
//	keywords = ["calculo"]
type Fixture struct {
	Chapters []storage.Chapter `toml:"chapters"`
	Articles []storage.Article `toml:"articles"`
}

// Sample is the fixture shipped with folio.
func Sample() (*Fixture, error) {
	return ParseFixture(sampleFixture)
}

func ReadFixture(r io.Reader) (*Fixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a fixture and fills in what the file may leave out:
// IDs, visibility, timestamps and chapter article lists. Fixture IDs that
// are not record IDs are treated as names and mapped to stable IDs.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	now := time.Now().UTC()
	chapterIDs := map[string]string{}
	for i := range f.Chapters {
		c := &f.Chapters[i]
		name := c.ID
		if name == "" {
			name = "chapter:" + c.Title
		}
		c.ID = recordID(name)
		chapterIDs[name] = c.ID
		chapterIDs[c.ID] = c.ID
		c.Articles = nil
		if err := fillDefaults(&c.Visibility, &c.Created, &c.Updated, now); err != nil {
			return nil, fmt.Errorf("chapter %q: %w", c.Title, err)
		}
		if err := checkKeywords(c.Keywords); err != nil {
			return nil, fmt.Errorf("chapter %q: %w", c.Title, err)
		}
	}

	byID := map[string]*storage.Chapter{}
	for i := range f.Chapters {
		byID[f.Chapters[i].ID] = &f.Chapters[i]
	}

	for i := range f.Articles {
		a := &f.Articles[i]
		name := a.ID
		if name == "" {
			name = "article:" + a.Title
		}
		a.ID = recordID(name)
		if err := fillDefaults(&a.Visibility, &a.Created, &a.Updated, now); err != nil {
			return nil, fmt.Errorf("article %q: %w", a.Title, err)
		}
		if err := checkKeywords(a.Keywords); err != nil {
			return nil, fmt.Errorf("article %q: %w", a.Title, err)
		}
		if a.Chapter == "" {
			continue
		}
		id, ok := chapterIDs[a.Chapter]
		if !ok {
			return nil, fmt.Errorf("article %q: unknown chapter %q", a.Title, a.Chapter)
		}
		a.Chapter = id
		byID[id].Articles = append(byID[id].Articles, a.ID)
	}
	return &f, nil
}

// Seed stores every record of the fixture.
func Seed(ctx context.Context, saver Saver, f *Fixture) error {
	if len(f.Chapters) > 0 {
		if err := saver.SaveChapters(ctx, f.Chapters...); err != nil {
			return fmt.Errorf("seeding chapters: %w", err)
		}
	}
	if len(f.Articles) > 0 {
		if err := saver.SaveArticles(ctx, f.Articles...); err != nil {
			return fmt.Errorf("seeding articles: %w", err)
		}
	}
	return nil
}

func recordID(name string) string {
	if idgen.Valid(name) {
		return name
	}
	return idgen.Derive("fixture:" + name)
}

func fillDefaults(visibility *string, created, updated *time.Time, now time.Time) error {
	switch *visibility {
	case "":
		*visibility = storage.VisibilityPublic
	case storage.VisibilityPublic, storage.VisibilityPrivate:
	default:
		return fmt.Errorf("visibility must be public or private, got %q", *visibility)
	}
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
	return nil
}

func checkKeywords(words []string) error {
	if len(words) > keywords.DefaultMax {
		return fmt.Errorf("at most %d keywords, got %d", keywords.DefaultMax, len(words))
	}
	for _, w := range words {
		if !keywords.ValidWord(w) {
			return fmt.Errorf("malformed keyword %q", w)
		}
	}
	return nil
}
