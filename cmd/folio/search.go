package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/search"
	"github.com/pders01/folio/internal/storage"
)

func newSearchCmd(c *cli) *cobra.Command {
	var (
		kindName string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full-text search across articles and chapters",
		Long: "search ranks matches from the local index. Against a remote backend\n" +
			"it falls back to the title and description filter the browser uses.",
		GroupID: "browse",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			kinds := query.Kinds
			if kindName != "" {
				kind, err := query.ParseKind(kindName)
				if err != nil {
					return err
				}
				kinds = []query.Kind{kind}
			}

			src, err := openSources(c.cfg)
			if err != nil {
				return err
			}
			defer src.Close()

			if src.local == nil {
				return searchRemote(cmd.Context(), cmd.OutOrStdout(), src, kinds, text, limit)
			}
			var hits []search.Result
			for _, kind := range kinds {
				found, err := src.local.Search(kind, text, limit)
				if err != nil {
					return err
				}
				hits = append(hits, found...)
			}
			return printHits(cmd.OutOrStdout(), text, hits)
		},
	}
	cmd.Flags().StringVarP(&kindName, "kind", "k", "", "restrict to articles or chapters")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results per kind")
	return cmd
}

func printHits(out io.Writer, text string, hits []search.Result) error {
	if len(hits) == 0 {
		fmt.Fprintf(out, "No matches for %q.\n", text)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tTITLE\tSCORE")
	for _, h := range hits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", h.Kind, h.ID, truncate(h.Title, 48), h.Score)
		if h.Snippet != "" {
			fmt.Fprintf(w, "\t\t  %s\t\n", truncate(h.Snippet, 72))
		}
	}
	return w.Flush()
}

func searchRemote(ctx context.Context, out io.Writer, src *sources, kinds []query.Kind, text string, limit int) error {
	catalog := browse.DefaultCatalog()
	for _, kind := range kinds {
		layout := catalog.Layout(kind)
		opts := catalog.Options(kind, limit)
		fmt.Fprintf(out, "%s matching %q\n", strings.ToUpper(kind.Label()[:1])+kind.Label()[1:], text)
		var err error
		if kind == query.Chapters {
			var page *query.Page[storage.Chapter]
			page, err = fetchOne(ctx, browse.NewController(kind, src.chapters, opts, layout.SearchFields...), nil, text, 1)
			if err == nil {
				err = printPage(out, kind, layout, page, false)
			}
		} else {
			var page *query.Page[storage.Article]
			page, err = fetchOne(ctx, browse.NewController(kind, src.articles, opts, layout.SearchFields...), nil, text, 1)
			if err == nil {
				err = printPage(out, kind, layout, page, false)
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}
