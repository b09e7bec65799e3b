// Package cmd implements the vgrid command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/vgrid/internal/config"
	"github.com/zjrosen/vgrid/internal/datasource"
	"github.com/zjrosen/vgrid/internal/flags"
	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/log"
	"github.com/zjrosen/vgrid/internal/render"
	"github.com/zjrosen/vgrid/internal/tracing"
	"github.com/zjrosen/vgrid/internal/ui/gridview"
	"github.com/zjrosen/vgrid/internal/watcher"
)

func init() {
	// Query the terminal background before any program starts so the OSC 11
	// reply does not race the Bubble Tea input loop.
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// localConfigPath is checked before the user config and is where a default
// config is written when none exists.
const localConfigPath = ".vgrid/config.yaml"

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
	loadErr error
)

var rootCmd = &cobra.Command{
	Use:   "vgrid",
	Short: "A virtualized data grid for the terminal",
	Long: `vgrid renders large tables in the terminal, painting only the cells in view.
Rows come from a SQLite table or a generated data set.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.Defaults()
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/vgrid/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "write debug logs to the log path")
	rootCmd.Flags().String("db", "", "SQLite database to browse (default: generated rows)")
	rootCmd.Flags().String("table", defaults.Data.Table, "table to read from --db")
	rootCmd.PersistentFlags().Int("rows", defaults.Data.Rows, "generated row count when no database is given")
	rootCmd.PersistentFlags().Int("cols", defaults.Data.Cols, "generated column count when no database is given")
	rootCmd.Flags().Bool("no-auto-refresh", false, "disable reloading when the database changes")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("data.path", rootCmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("data.table", rootCmd.Flags().Lookup("table"))
	_ = viper.BindPFlag("data.rows", rootCmd.PersistentFlags().Lookup("rows"))
	_ = viper.BindPFlag("data.cols", rootCmd.PersistentFlags().Lookup("cols"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .vgrid/config.yaml (current directory)
		// 2. ~/.config/vgrid/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "vgrid"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				viper.SetConfigFile(localConfigPath)
				_ = viper.ReadInConfig()
			}
			// A failed write leaves the built-in defaults in place.
		} else {
			loadErr = fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, loadErr = decodeConfig(viper.GetViper(), loadErr)
}

// decodeConfig unmarshals v over the defaults. A previous error is kept.
func decodeConfig(v *viper.Viper, prev error) (config.Config, error) {
	c := config.Defaults()
	if err := v.Unmarshal(&c); err != nil {
		return c, errors.Join(prev, fmt.Errorf("decoding config: %w", err))
	}
	return c, prev
}

// reloadTuning re-reads the config file after it changed on disk.
func reloadTuning() (grid.Tuning, error) {
	if err := viper.ReadInConfig(); err != nil {
		return grid.Tuning{}, fmt.Errorf("reading config: %w", err)
	}
	next, err := decodeConfig(viper.GetViper(), nil)
	if err != nil {
		return grid.Tuning{}, err
	}
	if err := config.Validate(next); err != nil {
		return grid.Tuning{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return next.Tuning(flags.New(next.Flags)), nil
}

func runApp(cmd *cobra.Command, args []string) error {
	if loadErr != nil {
		return loadErr
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if noAutoRefresh, _ := cmd.Flags().GetBool("no-auto-refresh"); noAutoRefresh {
		cfg.AutoRefresh = false
	}

	cleanupLog, err := initLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanupLog()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.ErrorErr(log.CatTracing, "Failed to flush spans", err)
		}
	}()

	src, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	columns, err := buildColumns(cfg, src)
	if err != nil {
		return err
	}
	defer columns.Close()

	configFilePath := viper.ConfigFileUsed()
	if configFilePath == "" {
		configFilePath = localConfigPath
	}

	gcfg := gridview.Config{
		Columns:       columns,
		Rows:          src,
		Registry:      render.NewDefaultRegistry(cfg.MarkdownOptions()),
		Tuning:        cfg.Tuning(flags.New(cfg.Flags)),
		Pool:          cfg.PoolOptions(),
		CacheTTL:      cfg.Cache.TTL,
		RowHeight:     cfg.Grid.RowHeight,
		FrameInterval: cfg.Grid.FrameInterval,
		WheelStep:     cfg.Scroll.WheelStep,
		ShowStatusBar: cfg.Grid.ShowStatusBar,
		Tracer:        tp.Tracer(),
	}

	if cfg.AutoRefresh && cfg.Data.Path != "" {
		wcfg := watcher.DatabaseConfig(cfg.Data.Path)
		wcfg.DebounceDur = cfg.AutoRefreshDebounce
		ch, stop, err := startWatcher(wcfg)
		if err != nil {
			log.ErrorErr(log.CatWatcher, "Database watcher unavailable", err)
		} else {
			defer stop()
			gcfg.DataChanged = ch
		}
	}
	if cfg.AutoReload {
		if _, err := os.Stat(configFilePath); err == nil {
			ch, stop, err := startWatcher(watcher.DefaultConfig(configFilePath))
			if err != nil {
				log.ErrorErr(log.CatWatcher, "Config watcher unavailable", err)
			} else {
				defer stop()
				gcfg.ConfigChanged = ch
				gcfg.ReloadTuning = reloadTuning
			}
		}
	}

	model, err := gridview.New(gcfg)
	if err != nil {
		return err
	}

	zone.NewGlobal()
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()

	if cfg.Grid.PersistLayout {
		if saveErr := config.SaveColumns(configFilePath, config.ColumnsFrom(model.Columns())); saveErr != nil {
			log.ErrorErr(log.CatConfig, "Failed to save column layout", saveErr, "path", configFilePath)
		}
	}
	if closeErr := model.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// initLogging enables the file logger in debug mode. The returned cleanup is
// never nil.
func initLogging(c config.Config) (func(), error) {
	if !c.Debug && os.Getenv("VGRID_DEBUG") == "" {
		return func() {}, nil
	}
	path := c.LogPath
	if path == "" {
		path = "debug.log"
	}
	opts := log.Options{Level: log.ParseLevel(c.LogLevel)}
	for _, name := range c.LogCategories {
		opts.Categories = append(opts.Categories, log.Category(name))
	}
	cleanup, err := log.Init(path, opts)
	if err != nil {
		return nil, err
	}
	log.Info(log.CatConfig, "Starting vgrid", "version", version, "config", viper.ConfigFileUsed())
	return cleanup, nil
}

// openSource opens the configured database, or generates rows when none is
// set.
func openSource(ctx context.Context, c config.Config) (datasource.Source, error) {
	if c.Data.Path == "" {
		return datasource.NewSynthetic(c.Data.Rows, c.Data.Cols), nil
	}
	src, err := datasource.OpenSQLite(ctx, c.Data.Path, c.Data.Table, datasource.SQLiteOptions{
		PageSize: c.Data.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", c.Data.Path, err)
	}
	return src, nil
}

// buildColumns uses the configured layout when present and the source's own
// columns otherwise.
func buildColumns(c config.Config, src datasource.Source) (*grid.StaticColumns, error) {
	if len(c.Columns) > 0 {
		cols, err := config.BuildColumns(resolveFields(c.Columns, src.Columns(0)), c.Grid.DefaultColumnWidth)
		if err != nil {
			return nil, fmt.Errorf("building columns: %w", err)
		}
		return cols, nil
	}
	return grid.NewStaticColumns(src.Columns(c.Grid.DefaultColumnWidth)...), nil
}

// resolveFields fills the field, title and renderer of configured columns
// from the source column with the same id. Unknown ids keep their position.
func resolveFields(cols []config.ColumnConfig, known []grid.Column) []config.ColumnConfig {
	byID := make(map[string]grid.Column, len(known))
	for _, k := range known {
		byID[k.ID] = k
	}
	out := make([]config.ColumnConfig, len(cols))
	for i, c := range cols {
		k, ok := byID[c.ID]
		if ok {
			if c.Field == nil {
				field := k.Field
				c.Field = &field
			}
			if c.Title == "" {
				c.Title = k.Title
			}
			if c.Renderer == "" {
				c.Renderer = k.Renderer.Name()
			}
		}
		out[i] = c
	}
	return out
}

func startWatcher(wcfg watcher.Config) (<-chan struct{}, func(), error) {
	w, err := watcher.New(wcfg)
	if err != nil {
		return nil, nil, err
	}
	ch, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, nil, err
	}
	return ch, func() { _ = w.Stop() }, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
