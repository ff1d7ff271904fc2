package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/query"
)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPage writes a page as a table of the layout's columns, preceded by
// the record ID, and a position footer.
func printPage[T query.Fielder](out io.Writer, kind query.Kind, layout browse.Layout, page *query.Page[T], asJSON bool) error {
	if asJSON {
		return writeJSON(out, page)
	}
	if len(page.Items) == 0 {
		fmt.Fprintf(out, "No %s found.\n", kind.Label())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := []string{"ID"}
	for _, col := range layout.Columns {
		header = append(header, strings.ToUpper(col.Label))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, rec := range page.Items {
		id, _ := rec.Field("id")
		row := []string{strings.Join(id, "")}
		for _, col := range layout.Columns {
			row = append(row, truncate(col.Cell(rec), col.Width))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\npage %d/%d • %d %s\n", page.Page, page.TotalPages, page.TotalItems, kind.Label())
	return nil
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
