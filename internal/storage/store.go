package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	bolt "go.etcd.io/bbolt"

	"github.com/pders01/folio/internal/debuglog"
	"github.com/pders01/folio/internal/idgen"
	"github.com/pders01/folio/internal/query"
)

var (
	articlesBucket = []byte("articles")
	chaptersBucket = []byte("chapters")
	keywordsBucket = []byte("keywords")
)

// ErrNotFound is returned when a record ID does not exist.
var ErrNotFound = errors.New("record not found")

type record interface {
	query.Fielder
	Key() string
}

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

// NewStoreWithTimeout opens the database, waiting at most timeout for the
// file lock held by another process.
func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{articlesBucket, chaptersBucket, keywordsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveArticles(articles ...Article) error {
	return putAll(s.db, articlesBucket, articles)
}

func (s *Store) GetArticle(id string) (*Article, error) {
	return get[Article](s.db, articlesBucket, id)
}

func (s *Store) AllArticles() ([]Article, error) {
	return getAll[Article](s.db, articlesBucket)
}

// ListArticles filters, sorts and pages articles the way the list API does.
func (s *Store) ListArticles(opts query.Options) (*query.Page[Article], error) {
	all, err := s.AllArticles()
	if err != nil {
		return nil, err
	}
	return List(all, opts)
}

func (s *Store) SaveChapters(chapters ...Chapter) error {
	return putAll(s.db, chaptersBucket, chapters)
}

func (s *Store) GetChapter(id string) (*Chapter, error) {
	return get[Chapter](s.db, chaptersBucket, id)
}

func (s *Store) AllChapters() ([]Chapter, error) {
	return getAll[Chapter](s.db, chaptersBucket)
}

func (s *Store) ListChapters(opts query.Options) (*query.Page[Chapter], error) {
	all, err := s.AllChapters()
	if err != nil {
		return nil, err
	}
	return List(all, opts)
}

func (s *Store) Keywords() ([]Keyword, error) {
	return getAll[Keyword](s.db, keywordsBucket)
}

func (s *Store) GetKeyword(id string) (*Keyword, error) {
	return get[Keyword](s.db, keywordsBucket, id)
}

func (s *Store) ListKeywords(opts query.Options) (*query.Page[Keyword], error) {
	all, err := s.Keywords()
	if err != nil {
		return nil, err
	}
	return List(all, opts)
}

// SaveKeywords stores the words that are not known yet and returns the newly
// created records. Known words are skipped.
func (s *Store) SaveKeywords(words ...string) ([]Keyword, error) {
	var created []Keyword
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(keywordsBucket)
		known := map[string]bool{}
		err := b.ForEach(func(key []byte, v []byte) error {
			var k Keyword
			if err := json.Unmarshal(v, &k); err != nil {
				debuglog.Warnf("skipping undecodable keyword %q: %v", key, err)
				return nil
			}
			known[k.Word] = true
			return nil
		})
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, w := range words {
			w = strings.TrimSpace(w)
			if w == "" || known[w] {
				continue
			}
			id, err := idgen.New()
			if err != nil {
				return backoff.Permanent(err)
			}
			k := Keyword{ID: id, Word: w, Created: now}
			data, err := json.Marshal(k)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("encoding keyword %q: %w", w, err))
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
			known[w] = true
			created = append(created, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Counts reports how many records each bucket holds.
func (s *Store) Counts() (articles, chapters, keywords int, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		articles = tx.Bucket(articlesBucket).Stats().KeyN
		chapters = tx.Bucket(chaptersBucket).Stats().KeyN
		keywords = tx.Bucket(keywordsBucket).Stats().KeyN
		return nil
	})
	return articles, chapters, keywords, err
}

func putAll[T record](db *bolt.DB, bucket []byte, items []T) error {
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		for _, item := range items {
			if item.Key() == "" {
				return backoff.Permanent(fmt.Errorf("saving %s: record without id", bucket))
			}
			data, err := json.Marshal(item)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("encoding %s %q: %w", bucket, item.Key(), err))
			}
			if err := b.Put([]byte(item.Key()), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func get[T any](db *bolt.DB, bucket []byte, id string) (*T, error) {
	var item T
	err := db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s %q: %w", strings.TrimSuffix(string(bucket), "s"), id, ErrNotFound)
		}
		return json.Unmarshal(data, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func getAll[T any](db *bolt.DB, bucket []byte) ([]T, error) {
	var items []T
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(key []byte, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				debuglog.Warnf("skipping undecodable %s record %q: %v", bucket, key, err)
				return nil
			}
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

// List applies filter, sort and pagination to an in-memory collection.
// Unknown filter or sort fields are validation errors, as they are for the
// remote backend.
func List[T record](all []T, opts query.Options) (*query.Page[T], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	expr, err := query.ParseFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	var zero T
	for _, f := range query.Fields(expr) {
		if _, ok := zero.Field(f); !ok {
			return nil, &query.ValidationError{Field: "filter", Value: f, Reason: "unknown field"}
		}
	}
	if opts.SortField != "" {
		if _, ok := zero.Field(opts.SortField); !ok {
			return nil, &query.ValidationError{Field: "sort", Value: opts.SortField, Reason: "unknown field"}
		}
	}

	matched := make([]T, 0, len(all))
	for _, item := range all {
		if expr.Match(item) {
			matched = append(matched, item)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		c := 0
		if opts.SortField != "" {
			c = compareField(matched[i], matched[j], opts.SortField)
			if opts.SortDirection == query.Desc {
				c = -c
			}
		}
		if c == 0 {
			return matched[i].Key() < matched[j].Key()
		}
		return c < 0
	})

	return query.Paginate(matched, opts), nil
}

func compareField(a, b query.Fielder, field string) int {
	av, bv := first(a, field), first(b, field)
	af, aerr := strconv.ParseFloat(av, 64)
	bf, berr := strconv.ParseFloat(bv, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(av), strings.ToLower(bv))
}

func first(rec query.Fielder, field string) string {
	values, _ := rec.Field(field)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
