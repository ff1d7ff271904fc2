package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/folio/internal/browse"
	"github.com/pders01/folio/internal/config"
	"github.com/pders01/folio/internal/debuglog"
	"github.com/pders01/folio/internal/tui"
	"github.com/pders01/folio/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

// cli carries the global flags and the loaded config to every command.
type cli struct {
	configPath string
	dbPath     string
	indexPath  string
	backend    string
	quiet      bool

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "folio [location]",
		Short: "Browse articles and chapters from the terminal",
		Long: "folio browses articles and chapters, sorted, filtered and paged.\n" +
			"The optional location opens a search entry point such as\n" +
			"/browse/chapters?search=algebra.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			debuglog.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			location := ""
			if len(args) == 1 {
				location = args[0]
			}
			return c.runTUI(location)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to configuration file")
	flags.StringVar(&c.dbPath, "db", "", "path to database file (overrides config)")
	flags.StringVar(&c.indexPath, "index", "", "path to search index (overrides config)")
	flags.StringVar(&c.backend, "backend", "", "backend to read from: local or remote URL")
	root.Flags().BoolVarP(&c.quiet, "quiet", "q", false, "skip startup banner")

	root.AddGroup(
		&cobra.Group{ID: "browse", Title: "Browsing:"},
		&cobra.Group{ID: "content", Title: "Content:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	root.AddCommand(newBrowseCmd(c))
	root.AddCommand(newSearchCmd(c))
	root.AddCommand(newSeedCmd(c))
	root.AddCommand(newImportCmd(c))
	root.AddCommand(newTagCmd(c))
	root.AddCommand(newServeCmd(c))
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// load reads the config, applies flag overrides and starts logging.
func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if c.dbPath != "" {
		if cfg.Database.Path, err = validation.ExpandPath(c.dbPath); err != nil {
			return fmt.Errorf("--db: %w", err)
		}
	}
	if c.indexPath != "" {
		if cfg.Database.SearchIndex, err = validation.ExpandPath(c.indexPath); err != nil {
			return fmt.Errorf("--index: %w", err)
		}
	}
	switch c.backend {
	case "":
	case config.BackendLocal:
		cfg.Backend.Mode = config.BackendLocal
	default:
		cfg.Backend.Mode = config.BackendRemote
		cfg.Backend.URL = c.backend
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return err
	}
	debuglog.Infof("folio %s starting, backend=%s", Version, cfg.Backend.Mode)

	c.cfg = cfg
	return nil
}

func (c *cli) runTUI(location string) error {
	var entry browse.Entry
	if location != "" {
		var err error
		if entry, err = browse.ParseLocation(location); err != nil {
			return err
		}
	}

	src, err := openSources(c.cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	if !c.quiet {
		tui.ShowBanner(Version)
	}

	app := tui.NewApp(src.Backend(), c.cfg, entry)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}
