package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/storage"
)

const (
	typeArticle = "article"
	typeChapter = "chapter"
	typeKeyword = "keyword"

	// MaxSimilar is how many keyword suggestions a lookup returns.
	MaxSimilar = 10
)

// Result is one full-text hit.
type Result struct {
	Kind    query.Kind
	ID      string
	Title   string
	Snippet string
	Score   float64
}

// Index is the bleve index over articles, chapters and keywords.
type Index struct {
	idx bleve.Index
}

// Open opens the index at indexPath, creating it when it does not exist.
func Open(indexPath string) (*Index, error) {
	idx, err := bleve.Open(indexPath)
	if err == nil {
		return &Index{idx: idx}, nil
	}
	if mkErr := os.MkdirAll(filepath.Dir(indexPath), 0o755); mkErr != nil {
		return nil, fmt.Errorf("creating index directory: %w", mkErr)
	}
	idx, err = bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// NewMemOnly builds an in-memory index.
func NewMemOnly() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{idx: idx}, nil
}

func (i *Index) Close() error {
	return i.idx.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	exact := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		fm.DocValues = true
		return fm
	}

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = true

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = true

	dm.AddFieldMappingsAt("type", exact())
	dm.AddFieldMappingsAt("word", exact())
	dm.AddFieldMappingsAt("keywords", exact())
	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("content", content)

	im.DefaultMapping = dm
	return im
}

// Reindex loads every record from the store into the index.
func (i *Index) Reindex(store *storage.Store) error {
	articles, err := store.AllArticles()
	if err != nil {
		return err
	}
	chapters, err := store.AllChapters()
	if err != nil {
		return err
	}
	words, err := store.Keywords()
	if err != nil {
		return err
	}

	batch := i.idx.NewBatch()
	for _, a := range articles {
		if err := batch.Index(docID(typeArticle, a.ID), articleDoc(a)); err != nil {
			return err
		}
	}
	for _, c := range chapters {
		if err := batch.Index(docID(typeChapter, c.ID), chapterDoc(c)); err != nil {
			return err
		}
	}
	for _, k := range words {
		if err := batch.Index(docID(typeKeyword, k.ID), keywordDoc(k)); err != nil {
			return err
		}
	}
	return i.idx.Batch(batch)
}

func (i *Index) IndexArticles(articles ...storage.Article) error {
	batch := i.idx.NewBatch()
	for _, a := range articles {
		if err := batch.Index(docID(typeArticle, a.ID), articleDoc(a)); err != nil {
			return err
		}
	}
	return i.idx.Batch(batch)
}

func (i *Index) IndexChapters(chapters ...storage.Chapter) error {
	batch := i.idx.NewBatch()
	for _, c := range chapters {
		if err := batch.Index(docID(typeChapter, c.ID), chapterDoc(c)); err != nil {
			return err
		}
	}
	return i.idx.Batch(batch)
}

func (i *Index) IndexKeywords(words ...storage.Keyword) error {
	batch := i.idx.NewBatch()
	for _, k := range words {
		if err := batch.Index(docID(typeKeyword, k.ID), keywordDoc(k)); err != nil {
			return err
		}
	}
	return i.idx.Batch(batch)
}

// Search runs a boosted full-text query over one kind. Queries shorter than
// two characters return nothing.
func (i *Index) Search(kind query.Kind, text string, limit int) ([]Result, error) {
	if len(strings.TrimSpace(text)) < 2 {
		return []Result{}, nil
	}
	terms := tokenize(text)
	if len(terms) == 0 {
		return []Result{}, nil
	}

	boosts := []struct {
		field string
		match float64
		pre   float64
	}{
		{"title", 4.0, 3.5},
		{"description", 2.0, 1.8},
		{"content", 1.0, 0.8},
		{"keywords", 2.5, 0},
	}
	var qs []bleveQuery.Query
	for _, term := range terms {
		for _, b := range boosts {
			if b.field == "keywords" {
				tq := bleve.NewTermQuery(term)
				tq.SetField(b.field)
				tq.SetBoost(b.match)
				qs = append(qs, tq)
				continue
			}
			mq := bleve.NewMatchQuery(term)
			mq.SetField(b.field)
			mq.SetBoost(b.match)
			pq := bleve.NewPrefixQuery(term)
			pq.SetField(b.field)
			pq.SetBoost(b.pre)
			qs = append(qs, mq, pq)
		}
	}

	typeQuery := bleve.NewTermQuery(docType(kind))
	typeQuery.SetField("type")
	q := bleve.NewConjunctionQuery(typeQuery, bleve.NewDisjunctionQuery(qs...))

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"title", "description", "content"}
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", kind, err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := Result{Kind: kind, ID: strings.TrimPrefix(h.ID, docType(kind)+":"), Score: h.Score}
		r.Title, _ = h.Fields["title"].(string)
		body, _ := h.Fields["content"].(string)
		if body == "" {
			body, _ = h.Fields["description"].(string)
		}
		r.Snippet = bestSnippet(body, terms, 160)
		out = append(out, r)
	}
	return out, nil
}

// SimilarKeywords suggests stored keywords for a fragment: substring and
// prefix matches plus one-edit typos, sorted by word.
func (i *Index) SimilarKeywords(ctx context.Context, fragment string) ([]string, error) {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return []string{}, nil
	}

	prefix := bleve.NewPrefixQuery(fragment)
	prefix.SetField("word")
	prefix.SetBoost(2)
	wildcard := bleve.NewWildcardQuery("*" + escapeWildcard(fragment) + "*")
	wildcard.SetField("word")
	fuzzy := bleve.NewFuzzyQuery(fragment)
	fuzzy.SetField("word")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.5)

	typeQuery := bleve.NewTermQuery(typeKeyword)
	typeQuery.SetField("type")
	q := bleve.NewConjunctionQuery(typeQuery, bleve.NewDisjunctionQuery(prefix, wildcard, fuzzy))

	req := bleve.NewSearchRequestOptions(q, MaxSimilar, 0, false)
	req.Fields = []string{"word"}
	req.SortBy([]string{"word"})
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword lookup: %w", err)
	}
	out := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		if w, ok := h.Fields["word"].(string); ok {
			out = append(out, w)
		}
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (i *Index) DocCount() (int, error) {
	n, err := i.idx.DocCount()
	return int(n), err
}

func articleDoc(a storage.Article) map[string]any {
	return map[string]any{
		"type":        typeArticle,
		"title":       a.Title,
		"description": a.Description,
		"content":     a.Content,
		"keywords":    a.Keywords,
	}
}

func chapterDoc(c storage.Chapter) map[string]any {
	return map[string]any{
		"type":        typeChapter,
		"title":       c.Title,
		"description": c.Description,
		"keywords":    c.Keywords,
	}
}

func keywordDoc(k storage.Keyword) map[string]any {
	return map[string]any{
		"type": typeKeyword,
		"word": k.Word,
	}
}

func docType(kind query.Kind) string {
	if kind == query.Chapters {
		return typeChapter
	}
	return typeArticle
}

func docID(typ, id string) string { return typ + ":" + id }

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `\`, `\\`)
	return r.Replace(s)
}
