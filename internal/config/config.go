package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/folio/internal/validation"
)

// Backend modes.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Browse   BrowseConfig   `mapstructure:"browse"`
	Keywords KeywordsConfig `mapstructure:"keywords"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

// BackendConfig selects where records come from: the local store or a
// remote list API.
type BackendConfig struct {
	Mode    string        `mapstructure:"mode"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BrowseConfig struct {
	PageSize    int           `mapstructure:"page_size"`
	DefaultKind string        `mapstructure:"default_kind"`
	Debounce    time.Duration `mapstructure:"debounce"`
}

type KeywordsConfig struct {
	Max      int           `mapstructure:"max"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Mode is the gin mode: release, debug or test.
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type UIConfig struct {
	Colors      UIColors     `mapstructure:"colors"`
	Reader      ReaderConfig `mapstructure:"reader"`
	OpenCommand string       `mapstructure:"open_command"`
	// WebURL is the web front end that "open" points at for records without
	// a link of their own.
	WebURL string `mapstructure:"web_url"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type ReaderConfig struct {
	MaxDescriptionLength int `mapstructure:"max_description_length"`
	WordWrapMaxWidth     int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth     int `mapstructure:"word_wrap_min_width"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit         string `mapstructure:"quit"`
	Search       string `mapstructure:"search"`
	SwitchKind   string `mapstructure:"switch_kind"`
	NextSort     string `mapstructure:"next_sort"`
	FlipSort     string `mapstructure:"flip_sort"`
	NextPage     string `mapstructure:"next_page"`
	PrevPage     string `mapstructure:"prev_page"`
	PageSizeUp   string `mapstructure:"page_size_up"`
	PageSizeDown string `mapstructure:"page_size_down"`
	Keywords     string `mapstructure:"keywords"`
	Open         string `mapstructure:"open"`
	Refresh      string `mapstructure:"refresh"`
	Back         string `mapstructure:"back"`
	Help         string `mapstructure:"help"`
}

func defaultConfig() *Config {
	dataDir, err := validation.DataDir()
	if err != nil {
		dataDir = ".folio"
	}

	return &Config{
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "folio.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		Backend: BackendConfig{
			Mode:    BackendLocal,
			URL:     "http://127.0.0.1:8090",
			Timeout: 15 * time.Second,
		},
		Browse: BrowseConfig{
			PageSize:    5,
			DefaultKind: "articles",
			Debounce:    300 * time.Millisecond,
		},
		Keywords: KeywordsConfig{
			Max:      5,
			Debounce: 300 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8090",
			Mode: "release",
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "folio.log"),
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Reader: ReaderConfig{
				MaxDescriptionLength: 150,
				WordWrapMaxWidth:     120,
				WordWrapMinWidth:     40,
			},
			OpenCommand: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:         "q",
				Search:       "/",
				SwitchKind:   "tab",
				NextSort:     "s",
				FlipSort:     "S",
				NextPage:     "right",
				PrevPage:     "left",
				PageSizeUp:   "+",
				PageSizeDown: "-",
				Keywords:     "k",
				Open:         "o",
				Refresh:      "r",
				Back:         "esc",
				Help:         "?",
			},
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "rundll32 url.dll,FileProtocolHandler"
	default:
		return "open"
	}
}

// DefaultPath is ~/.config/folio/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "folio", "config.toml")
}

// Load reads the config file at configPath, or the default locations when
// it is empty, and applies FOLIO_ environment overrides such as
// FOLIO_BACKEND_MODE.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := expandPaths(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults registers every leaf key so environment overrides reach
// nested values.
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
}

func flatten(cfg *Config) map[string]any {
	b := cfg.Keys.Bindings
	c := cfg.UI.Colors
	return map[string]any{
		"database.path":         cfg.Database.Path,
		"database.timeout":      cfg.Database.Timeout,
		"database.search_index": cfg.Database.SearchIndex,

		"backend.mode":    cfg.Backend.Mode,
		"backend.url":     cfg.Backend.URL,
		"backend.timeout": cfg.Backend.Timeout,

		"browse.page_size":    cfg.Browse.PageSize,
		"browse.default_kind": cfg.Browse.DefaultKind,
		"browse.debounce":     cfg.Browse.Debounce,

		"keywords.max":      cfg.Keywords.Max,
		"keywords.debounce": cfg.Keywords.Debounce,

		"server.addr": cfg.Server.Addr,
		"server.mode": cfg.Server.Mode,

		"log.level": cfg.Log.Level,
		"log.file":  cfg.Log.File,

		"ui.colors.primary":                c.Primary,
		"ui.colors.secondary":              c.Secondary,
		"ui.colors.accent":                 c.Accent,
		"ui.colors.background":             c.Background,
		"ui.colors.surface":                c.Surface,
		"ui.colors.text":                   c.Text,
		"ui.colors.muted":                  c.Muted,
		"ui.colors.error":                  c.Error,
		"ui.colors.success":                c.Success,
		"ui.reader.max_description_length": cfg.UI.Reader.MaxDescriptionLength,
		"ui.reader.word_wrap_max_width":    cfg.UI.Reader.WordWrapMaxWidth,
		"ui.reader.word_wrap_min_width":    cfg.UI.Reader.WordWrapMinWidth,
		"ui.open_command":                  cfg.UI.OpenCommand,
		"ui.web_url":                       cfg.UI.WebURL,

		"keys.modifier":                cfg.Keys.Modifier,
		"keys.bindings.quit":           b.Quit,
		"keys.bindings.search":         b.Search,
		"keys.bindings.switch_kind":    b.SwitchKind,
		"keys.bindings.next_sort":      b.NextSort,
		"keys.bindings.flip_sort":      b.FlipSort,
		"keys.bindings.next_page":      b.NextPage,
		"keys.bindings.prev_page":      b.PrevPage,
		"keys.bindings.page_size_up":   b.PageSizeUp,
		"keys.bindings.page_size_down": b.PageSizeDown,
		"keys.bindings.keywords":       b.Keywords,
		"keys.bindings.open":           b.Open,
		"keys.bindings.refresh":        b.Refresh,
		"keys.bindings.back":           b.Back,
		"keys.bindings.help":           b.Help,
	}
}

func expandPaths(cfg *Config) error {
	for _, p := range []*string{&cfg.Database.Path, &cfg.Database.SearchIndex, &cfg.Log.File} {
		if *p == "" {
			continue
		}
		expanded, err := validation.ExpandPath(*p)
		if err != nil {
			return fmt.Errorf("config path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate rejects settings folio cannot run with.
func (c *Config) Validate() error {
	switch c.Backend.Mode {
	case BackendLocal:
	case BackendRemote:
		if strings.TrimSpace(c.Backend.URL) == "" {
			return fmt.Errorf("backend.url is required in remote mode")
		}
	default:
		return fmt.Errorf("backend.mode must be %q or %q, got %q", BackendLocal, BackendRemote, c.Backend.Mode)
	}
	if c.Browse.PageSize < 1 {
		return fmt.Errorf("browse.page_size must be >= 1, got %d", c.Browse.PageSize)
	}
	if c.Keywords.Max < 1 {
		return fmt.Errorf("keywords.max must be >= 1, got %d", c.Keywords.Max)
	}
	if c.Browse.Debounce < 0 || c.Keywords.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	return nil
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings for TOML readability
	for key, value := range flatten(config) {
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
