package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/folio/internal/keywords"
	"github.com/pders01/folio/internal/local"
	"github.com/pders01/folio/internal/query"
)

func newTagCmd(c *cli) *cobra.Command {
	var (
		kindName string
		remove   []string
	)
	cmd := &cobra.Command{
		Use:   "tag <id> [keyword...]",
		Short: "Add or remove keywords on an article or chapter",
		Long: "tag adds keywords to a record, up to the configured limit. Unknown\n" +
			"keywords are created and marked with +. Free text is normalized, so\n" +
			"\"Linear Algebra\" becomes linear-algebra.",
		Example: "  folio tag abc123def456ghi calculo limits\n" +
			"  folio tag --kind chapters abc123def456ghi --remove draft",
		GroupID: "content",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := query.ParseKind(kindName)
			if err != nil {
				return err
			}
			b, err := openLocal(c.cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			return runTag(cmd.Context(), cmd.OutOrStdout(), b, c.cfg.Keywords.Max, kind, args[0], args[1:], remove)
		},
	}
	cmd.Flags().StringVarP(&kindName, "kind", "k", "articles", "kind of the record")
	cmd.Flags().StringSliceVarP(&remove, "remove", "r", nil, "keywords to remove")
	return cmd
}

func runTag(ctx context.Context, out io.Writer, b *local.Backend, limit int, kind query.Kind, id string, add, remove []string) error {
	known, err := b.Store().Keywords()
	if err != nil {
		return fmt.Errorf("loading keywords: %w", err)
	}
	exists := make(map[string]bool, len(known))
	for _, k := range known {
		exists[k.Word] = true
	}

	var (
		title   string
		current []string
		save    func(words []string) error
	)
	now := time.Now().UTC()
	switch kind {
	case query.Chapters:
		ch, err := b.Store().GetChapter(id)
		if err != nil {
			return err
		}
		title, current = ch.Title, ch.Keywords
		save = func(words []string) error {
			ch.Keywords, ch.Updated = words, now
			return b.SaveChapters(ctx, *ch)
		}
	default:
		a, err := b.Store().GetArticle(id)
		if err != nil {
			return err
		}
		title, current = a.Title, a.Keywords
		save = func(words []string) error {
			a.Keywords, a.Updated = words, now
			return b.SaveArticles(ctx, *a)
		}
	}

	set, err := editKeywords(limit, current, exists, add, remove)
	if err != nil {
		return err
	}
	if err := save(set.Selected()); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %s\n", title, formatKeywords(set))
	return nil
}

// editKeywords applies removals, then additions, to the record's keywords.
// Words not in exists are minted.
func editKeywords(limit int, current []string, exists map[string]bool, add, remove []string) (*keywords.Set, error) {
	if len(current) > limit {
		limit = len(current)
	}
	set := keywords.NewSet(limit, current...)
	for _, w := range remove {
		set.Deselect(keywords.Normalize(w))
	}
	for _, raw := range add {
		w := keywords.Normalize(raw)
		if set.Contains(w) {
			continue
		}
		if exists[w] {
			if !set.Select(w) {
				return nil, &query.ValidationError{Field: "keywords", Value: w, Reason: fmt.Sprintf("limit of %d reached", set.Max())}
			}
			continue
		}
		if err := set.CreateNew(w); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func formatKeywords(set *keywords.Set) string {
	words := set.Selected()
	if len(words) == 0 {
		return "(no keywords)"
	}
	for i, w := range words {
		if set.IsMinted(w) {
			words[i] = w + " +"
		}
	}
	return strings.Join(words, ", ")
}
