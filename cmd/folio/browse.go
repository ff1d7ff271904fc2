package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/keywords"
	"github.com/pders01/folio/internal/query"
)

type browseFlags struct {
	kind     string
	search   string
	sort     string
	page     int
	perPage  int
	keywords []string
	overview bool
	json     bool
}

func newBrowseCmd(c *cli) *cobra.Command {
	var f browseFlags
	cmd := &cobra.Command{
		Use:     "browse",
		Short:   "Print one page of articles or chapters",
		GroupID: "browse",
		Example: "  folio browse --kind chapters --sort -likes\n" +
			"  folio browse --search limits --filter calculo --page 2",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSources(c.cfg)
			if err != nil {
				return err
			}
			defer src.Close()

			if f.overview {
				return runOverview(cmd.Context(), cmd.OutOrStdout(), src, f)
			}
			kindName := f.kind
			if kindName == "" {
				kindName = c.cfg.Browse.DefaultKind
			}
			kind, err := query.ParseKind(kindName)
			if err != nil {
				return err
			}
			perPage := f.perPage
			if perPage == 0 {
				perPage = c.cfg.Browse.PageSize
			}
			return runBrowse(cmd.Context(), cmd.OutOrStdout(), src, kind, perPage, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.kind, "kind", "k", "", "articles or chapters (default from config)")
	flags.StringVarP(&f.search, "search", "s", "", "free-text search over titles and descriptions")
	flags.StringVar(&f.sort, "sort", "", "sort token such as -created or +title")
	flags.IntVarP(&f.page, "page", "p", 1, "page number")
	flags.IntVar(&f.perPage, "per-page", 0, "page size (default from config)")
	flags.StringSliceVarP(&f.keywords, "filter", "f", nil, "keep records tagged with every given keyword")
	flags.BoolVar(&f.overview, "overview", false, "show the most liked articles and chapters side by side")
	flags.BoolVar(&f.json, "json", false, "output as JSON")
	return cmd
}

func runBrowse(ctx context.Context, out io.Writer, src *sources, kind query.Kind, perPage int, f browseFlags) error {
	catalog := browse.DefaultCatalog()
	opts := catalog.Options(kind, perPage)
	if f.sort != "" {
		field, dir := query.ParseSortToken(f.sort)
		if !catalog.Sortable(kind, field) {
			return &query.ValidationError{Field: "sort", Value: f.sort, Reason: fmt.Sprintf("sortable %s columns are %v", kind, catalog.SortableFields(kind))}
		}
		opts = opts.WithSort(field, dir)
	}

	var clauses []string
	for _, w := range f.keywords {
		w = keywords.Normalize(w)
		if !keywords.ValidWord(w) {
			return &query.ValidationError{Field: "filter", Value: w, Reason: "only lowercase letters, digits and hyphens"}
		}
		clauses = append(clauses, query.Eq("keywords", w))
	}

	layout := catalog.Layout(kind)
	if kind == query.Chapters {
		page, err := fetchOne(ctx, browse.NewController(kind, src.chapters, opts, layout.SearchFields...), clauses, f.search, f.page)
		if err != nil {
			return err
		}
		return printPage(out, kind, layout, page, f.json)
	}
	page, err := fetchOne(ctx, browse.NewController(kind, src.articles, opts, layout.SearchFields...), clauses, f.search, f.page)
	if err != nil {
		return err
	}
	return printPage(out, kind, layout, page, f.json)
}

// fetchOne drives a controller through one request, the same way the
// browser does, and returns the committed page.
func fetchOne[T any](ctx context.Context, c *browse.Controller[T], clauses []string, search string, page int) (*query.Page[T], error) {
	c.SetFilter(clauses...)
	c.SetSearch(search)
	req, err := c.SetPage(page)
	if err != nil {
		return nil, err
	}
	resp := c.Fetch(ctx, req)
	c.Apply(resp)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.Page, nil
}

func runOverview(ctx context.Context, out io.Writer, src *sources, f browseFlags) error {
	perPage := f.perPage
	if perPage == 0 {
		perPage = 5
	}
	opts := query.DefaultOptions().WithSort("likes", query.Desc).WithPageSize(perPage)
	ov, err := browse.FetchOverview(ctx, src.articles, src.chapters, opts)
	if err != nil {
		return err
	}
	if f.json {
		return writeJSON(out, ov)
	}

	catalog := browse.DefaultCatalog()
	fmt.Fprintln(out, "Best articles")
	if err := printPage(out, query.Articles, catalog.Articles, ov.Articles, false); err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Best chapters")
	return printPage(out, query.Chapters, catalog.Chapters, ov.Chapters, false)
}
