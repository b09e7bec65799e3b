// Package config provides configuration types, defaults, and persistence for vgrid.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/vgrid/internal/flags"
	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/log"
	"github.com/zjrosen/vgrid/internal/pool"
	"github.com/zjrosen/vgrid/internal/render"
	"github.com/zjrosen/vgrid/internal/tracing"
)

// ColumnConfig defines a single grid column.
type ColumnConfig struct {
	ID    string `mapstructure:"id"`
	Title string `mapstructure:"title"`
	Width int    `mapstructure:"width"`

	// Field is the data column index. Nil uses the column's position.
	Field *int `mapstructure:"field"`

	// Renderer names a registered renderer; empty uses the default.
	Renderer string `mapstructure:"renderer"`

	AutoHeight bool `mapstructure:"auto_height"`
	Hidden     bool `mapstructure:"hidden"`
}

// Config holds all configuration options for vgrid.
type Config struct {
	Data     DataConfig      `mapstructure:"data"`
	Grid     GridConfig      `mapstructure:"grid"`
	Cache    CacheConfig     `mapstructure:"cache"`
	Pool     PoolConfig      `mapstructure:"pool"`
	Scroll   ScrollConfig    `mapstructure:"scroll"`
	Markdown MarkdownConfig  `mapstructure:"markdown"`
	Columns  []ColumnConfig  `mapstructure:"columns"`
	Tracing  tracing.Config  `mapstructure:"tracing"`
	Flags    map[string]bool `mapstructure:"flags"`

	// AutoReload re-applies engine tuning when the config file changes.
	AutoReload bool `mapstructure:"auto_reload"`

	// AutoRefresh repaints the grid when the database file changes.
	AutoRefresh         bool          `mapstructure:"auto_refresh"`
	AutoRefreshDebounce time.Duration `mapstructure:"auto_refresh_debounce"`

	Debug   bool   `mapstructure:"debug"`
	LogPath string `mapstructure:"log_path"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`

	// LogCategories limits debug output, for example [grid, pool].
	LogCategories []string `mapstructure:"log_categories"`
}

// DataConfig selects the rows shown in the grid.
type DataConfig struct {
	// Path is a SQLite database. Empty uses a synthetic data set.
	Path  string `mapstructure:"path"`
	Table string `mapstructure:"table"`

	// Rows and Cols size the synthetic data set.
	Rows int `mapstructure:"rows"`
	Cols int `mapstructure:"cols"`

	// PageSize is the number of rows fetched per query.
	PageSize int `mapstructure:"page_size"`
}

// GridConfig holds layout settings.
type GridConfig struct {
	RowHeight          int           `mapstructure:"row_height"`
	MinRowHeight       int           `mapstructure:"min_row_height"`
	OverscanRows       int           `mapstructure:"overscan_rows"`
	OverscanCols       int           `mapstructure:"overscan_cols"`
	DefaultColumnWidth int           `mapstructure:"default_column_width"`
	FrameInterval      time.Duration `mapstructure:"frame_interval"`
	ShowStatusBar      bool          `mapstructure:"show_status_bar"`

	// PersistLayout writes column widths, order and visibility back to the
	// config file on exit.
	PersistLayout bool `mapstructure:"persist_layout"`
}

// CacheConfig sizes the rendered content cache.
type CacheConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PoolConfig sizes the cell handle pool.
type PoolConfig struct {
	Ceiling int `mapstructure:"ceiling"`
	Prewarm int `mapstructure:"prewarm"`
}

// ScrollConfig holds scrolling behavior.
type ScrollConfig struct {
	// VelocityThreshold in rows or columns per second above which scrolls
	// render immediately.
	VelocityThreshold float64 `mapstructure:"velocity_threshold"`

	// WheelStep is the number of rows a mouse wheel notch scrolls.
	WheelStep int `mapstructure:"wheel_step"`
}

// MarkdownConfig configures the markdown renderer.
type MarkdownConfig struct {
	Style       string        `mapstructure:"style"`
	RendererTTL time.Duration `mapstructure:"renderer_ttl"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	tuning := grid.DefaultTuning()
	return Config{
		Data: DataConfig{
			Table:    "records",
			Rows:     10000,
			Cols:     6,
			PageSize: 256,
		},
		Grid: GridConfig{
			RowHeight:          1,
			MinRowHeight:       tuning.MinRowHeight,
			OverscanRows:       tuning.OverscanRows,
			OverscanCols:       tuning.OverscanCols,
			DefaultColumnWidth: 16,
			FrameInterval:      16 * time.Millisecond,
			ShowStatusBar:      true,
		},
		Cache: CacheConfig{
			Capacity: tuning.CacheCapacity,
		},
		Pool: PoolConfig{
			Ceiling: pool.DefaultCeiling,
		},
		Scroll: ScrollConfig{
			VelocityThreshold: tuning.VelocityThreshold,
			WheelStep:         3,
		},
		Markdown: MarkdownConfig{
			Style:       "dark",
			RendererTTL: 10 * time.Minute,
		},
		Tracing:             tracing.DefaultConfig(),
		Flags:               flags.Defaults(),
		AutoReload:          true,
		AutoRefresh:         true,
		AutoRefreshDebounce: 300 * time.Millisecond,
	}
}

// Tuning returns the engine tuning described by the config with feature
// flags applied.
func (c Config) Tuning(fl *flags.Registry) grid.Tuning {
	return grid.Tuning{
		OverscanRows:      c.Grid.OverscanRows,
		OverscanCols:      c.Grid.OverscanCols,
		MinRowHeight:      c.Grid.MinRowHeight,
		VelocityThreshold: c.Scroll.VelocityThreshold,
		CacheCapacity:     c.Cache.Capacity,
		CacheEnabled:      fl.Enabled(flags.FlagContentCache),
		FastScrollBypass:  fl.Enabled(flags.FlagFastScrollBypass),
		AutoHeight:        fl.Enabled(flags.FlagAutoHeight),
	}
}

// PoolOptions returns the pool sizing from the config.
func (c Config) PoolOptions() pool.Options {
	return pool.Options{Ceiling: c.Pool.Ceiling, Prewarm: c.Pool.Prewarm}
}

// MarkdownOptions returns the markdown renderer options from the config.
func (c Config) MarkdownOptions() render.MarkdownOptions {
	return render.MarkdownOptions{Style: c.Markdown.Style, TTL: c.Markdown.RendererTTL}
}

// GridColumn converts the column config at position pos.
func (c ColumnConfig) GridColumn(pos int) grid.Column {
	field := pos
	if c.Field != nil {
		field = *c.Field
	}
	title := c.Title
	if title == "" {
		title = c.ID
	}
	var ref render.Ref
	if c.Renderer != "" {
		ref = render.Named(c.Renderer)
	}
	return grid.Column{
		ID:         c.ID,
		Title:      title,
		Width:      c.Width,
		Field:      field,
		Renderer:   ref,
		AutoHeight: c.AutoHeight,
	}
}

// BuildColumns creates a column source from cols, hiding the hidden ones.
// Columns without a width get defaultWidth.
func BuildColumns(cols []ColumnConfig, defaultWidth int) (*grid.StaticColumns, error) {
	out := make([]grid.Column, len(cols))
	for i, c := range cols {
		gc := c.GridColumn(i)
		if gc.Width == 0 {
			gc.Width = defaultWidth
		}
		out[i] = gc
	}
	src := grid.NewStaticColumns(out...)
	for _, c := range cols {
		if !c.Hidden {
			continue
		}
		if err := src.SetVisible(c.ID, false); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// ColumnsFrom captures the current layout of src, for saving.
func ColumnsFrom(src *grid.StaticColumns) []ColumnConfig {
	all := src.All()
	out := make([]ColumnConfig, len(all))
	for i, c := range all {
		field := c.Field
		out[i] = ColumnConfig{
			ID:         c.ID,
			Title:      c.Title,
			Width:      c.Width,
			Field:      &field,
			AutoHeight: c.AutoHeight,
			Hidden:     src.Hidden(c.ID),
		}
		if !c.Renderer.IsZero() {
			out[i].Renderer = c.Renderer.Name()
		}
	}
	return out
}

// DefaultConfigPath returns ~/.config/vgrid/config.yaml or empty string if
// the home dir is unavailable.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vgrid", "config.yaml")
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/vgrid/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vgrid", "traces", "traces.jsonl")
}

// Validate checks every section of cfg.
func Validate(cfg Config) error {
	if err := ValidateGrid(cfg.Grid); err != nil {
		return err
	}
	if err := ValidateCache(cfg.Cache); err != nil {
		return err
	}
	if cfg.Pool.Ceiling < 0 || cfg.Pool.Prewarm < 0 {
		return fmt.Errorf("pool.ceiling and pool.prewarm must not be negative")
	}
	if cfg.Scroll.VelocityThreshold < 0 {
		return fmt.Errorf("scroll.velocity_threshold must not be negative, got %v", cfg.Scroll.VelocityThreshold)
	}
	if err := ValidateColumns(cfg.Columns); err != nil {
		return err
	}
	if err := ValidateMarkdown(cfg.Markdown); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateGrid checks layout settings.
func ValidateGrid(g GridConfig) error {
	if g.RowHeight < 0 {
		return fmt.Errorf("grid.row_height must not be negative, got %d", g.RowHeight)
	}
	if g.MinRowHeight < 0 {
		return fmt.Errorf("grid.min_row_height must not be negative, got %d", g.MinRowHeight)
	}
	if g.OverscanRows < 0 || g.OverscanCols < 0 {
		return fmt.Errorf("grid.overscan_rows and grid.overscan_cols must not be negative")
	}
	if g.FrameInterval < 0 {
		return fmt.Errorf("grid.frame_interval must not be negative, got %s", g.FrameInterval)
	}
	return nil
}

// ValidateCache checks cache sizing.
func ValidateCache(c CacheConfig) error {
	if c.Capacity < 0 {
		return fmt.Errorf("cache.capacity must not be negative, got %d", c.Capacity)
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.TTL)
	}
	return nil
}

// ValidateColumns checks column ids are present and unique and that widths
// and fields are not negative. Empty columns are valid; the data source
// supplies them.
func ValidateColumns(cols []ColumnConfig) error {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if c.ID == "" {
			return fmt.Errorf("column %d: id is required", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("column %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.Width < 0 {
			return fmt.Errorf("column %q: width must not be negative, got %d", c.ID, c.Width)
		}
		if c.Field != nil && *c.Field < 0 {
			return fmt.Errorf("column %q: field must not be negative, got %d", c.ID, *c.Field)
		}
	}
	return nil
}

// ValidateMarkdown checks the markdown style is a glamour built-in.
func ValidateMarkdown(m MarkdownConfig) error {
	switch m.Style {
	case "", "dark", "light", "ascii", "notty", "dracula", "pink", "tokyo-night":
	default:
		return fmt.Errorf("markdown.style must be a glamour style (dark, light, ascii, notty, dracula, pink, tokyo-night), got %q", m.Style)
	}
	if m.RendererTTL < 0 {
		return fmt.Errorf("markdown.renderer_ttl must not be negative, got %s", m.RendererTTL)
	}
	return nil
}

// ValidateTracing checks the tracing configuration.
func ValidateTracing(tracing tracing.Config) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Path requirements only matter when tracing is on.
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the config written on first run.
func DefaultConfigTemplate() string {
	return `# vgrid configuration

# Data shown in the grid
data:
  # path: ./records.db     # SQLite database; omit for synthetic rows
  table: records
  rows: 10000              # synthetic row count
  cols: 6                  # synthetic column count
  page_size: 256           # rows fetched per query

# Layout
grid:
  row_height: 1
  min_row_height: 1
  overscan_rows: 2         # extra rows rendered above and below the viewport
  overscan_cols: 1
  default_column_width: 16
  frame_interval: 16ms
  show_status_bar: true
  persist_layout: false    # save column widths and order on exit

# Rendered content cache
cache:
  capacity: 10000
  # ttl: 5m

# Cell handle pool
pool:
  ceiling: 4096
  prewarm: 0

scroll:
  velocity_threshold: 240  # rows per second before scrolling renders immediately
  wheel_step: 3

markdown:
  style: dark              # dark, light, ascii, notty, dracula, pink, tokyo-night
  renderer_ttl: 10m

# Columns (omit to use the data source's columns)
# columns:
#   - id: title
#     width: 24
#   - id: notes
#     width: 40
#     renderer: markdown   # text, wrap, number, badge, markdown
#     auto_height: true
#   - id: status
#     renderer: badge
#     hidden: false

# Feature flags
flags:
  fast-scroll-bypass: true
  content-cache: true
  auto-height: true

auto_reload: true
auto_refresh: true
auto_refresh_debounce: 300ms

# Debug logging (enabled with --debug or VGRID_DEBUG)
# log_path: debug.log
# log_level: debug         # debug, info, warn, error
# log_categories: [grid, pool]

# Tracing of frame passes
tracing:
  enabled: false
  exporter: file           # none, file, stdout, otlp
  # file_path: ~/.config/vgrid/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file with default settings and
// helpful comments.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
