package browse

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/folio/internal/query"
)

//go:embed columns.toml
var columnsTOML []byte

// Column is one table column of a kind.
type Column struct {
	Field    string `toml:"field"`
	Label    string `toml:"label"`
	Width    int    `toml:"width"`
	Sortable bool   `toml:"sortable"`
	Format   string `toml:"format"`
}

// Layout is the column set and defaults of one kind.
type Layout struct {
	DefaultSort  string   `toml:"default_sort"`
	SearchFields []string `toml:"search_fields"`
	Columns      []Column `toml:"columns"`
}

// Catalog holds the layouts of every kind.
type Catalog struct {
	Articles Layout `toml:"articles"`
	Chapters Layout `toml:"chapters"`
}

// ParseCatalog decodes a column catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing column catalog: %w", err)
	}
	for _, kind := range query.Kinds {
		if len(c.Layout(kind).Columns) == 0 {
			return nil, fmt.Errorf("column catalog: no columns for %s", kind)
		}
	}
	return &c, nil
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(columnsTOML)
})

// DefaultCatalog is the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Layout(kind query.Kind) Layout {
	if kind == query.Chapters {
		return c.Chapters
	}
	return c.Articles
}

// Sortable reports whether field is a sortable column of kind.
func (c *Catalog) Sortable(kind query.Kind, field string) bool {
	for _, col := range c.Layout(kind).Columns {
		if col.Field == field {
			return col.Sortable
		}
	}
	return false
}

// SortableFields lists the sortable columns of kind in display order.
func (c *Catalog) SortableFields(kind query.Kind) []string {
	var out []string
	for _, col := range c.Layout(kind).Columns {
		if col.Sortable {
			out = append(out, col.Field)
		}
	}
	return out
}

// Options are the starting options of kind with the given page size.
func (c *Catalog) Options(kind query.Kind, pageSize int) query.Options {
	opts := query.DefaultOptions()
	if s := c.Layout(kind).DefaultSort; s != "" {
		opts.SortField, opts.SortDirection = query.ParseSortToken(s)
	}
	if pageSize > 0 {
		opts.PageSize = pageSize
	}
	return opts
}

// Cell renders a record's value for a column.
func (col Column) Cell(rec query.Fielder) string {
	values, _ := rec.Field(col.Field)
	switch col.Format {
	case "list":
		return strings.Join(values, ", ")
	case "length":
		return strconv.Itoa(len(values))
	case "date":
		if len(values) == 0 || values[0] == "" {
			return "-"
		}
		t, err := time.Parse(time.RFC3339, values[0])
		if err != nil {
			return values[0]
		}
		return t.Format("2006-01-02")
	default:
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}
}
