package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/folio/internal/ingest"
)

func newSeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [fixture.toml]",
		Short: "Load chapters and articles from a TOML fixture",
		Long: "seed stores every chapter and article of a fixture in the local store.\n" +
			"Without a file it loads the bundled sample. Seeding twice updates the\n" +
			"same records.",
		GroupID: "content",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := readFixture(args)
			if err != nil {
				return err
			}
			b, err := openLocal(c.cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := ingest.Seed(cmd.Context(), b, fixture); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d chapters and %d articles into %s\n",
				len(fixture.Chapters), len(fixture.Articles), c.cfg.Database.Path)
			return nil
		},
	}
}

func readFixture(args []string) (*ingest.Fixture, error) {
	if len(args) == 0 {
		return ingest.Sample()
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()
	return ingest.ReadFixture(f)
}

func newImportCmd(c *cli) *cobra.Command {
	var (
		user       string
		workers    int
		timeout    time.Duration
		allowLocal bool
	)
	cmd := &cobra.Command{
		Use:   "import <feed-url>...",
		Short: "Import RSS or Atom feeds as chapters",
		Long: "import turns each feed into a chapter and its items into articles.\n" +
			"Item categories become keywords. Importing a feed again updates it.",
		GroupID: "content",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openLocal(c.cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			im := ingest.NewImporter(b, user, timeout)
			im.Workers = workers
			im.SetPermissiveValidation(allowLocal)

			results, importErr := im.ImportAll(cmd.Context(), args)
			out := cmd.OutOrStdout()
			imported := 0
			for _, r := range results {
				if r == nil {
					continue
				}
				imported++
				fmt.Fprintf(out, "✓ %s: %d articles (%s)\n", r.Chapter.Title, r.Articles, r.URL)
			}
			fmt.Fprintf(out, "Imported %d of %d feeds\n", imported, len(args))
			if importErr != nil {
				return errors.Join(errors.New("some feeds failed"), importErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "folio", "owner recorded on imported records")
	cmd.Flags().IntVarP(&workers, "workers", "w", 5, "feeds fetched concurrently")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-feed fetch timeout")
	cmd.Flags().BoolVar(&allowLocal, "allow-local", false, "allow localhost and private network feed URLs")
	return cmd
}
