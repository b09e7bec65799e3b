package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vgrid/internal/config"
	"github.com/zjrosen/vgrid/internal/datasource"
	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/render"
)

func readYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return v
}

func TestDecodeConfig_OverlaysDefaults(t *testing.T) {
	v := readYAML(t, `
grid:
  overscan_rows: 7
  frame_interval: 33ms
cache:
  ttl: 2m
flags:
  content-cache: false
columns:
  - id: notes
    width: 40
    renderer: markdown
    auto_height: true
`)
	c, err := decodeConfig(v, nil)
	require.NoError(t, err)

	defaults := config.Defaults()
	require.Equal(t, 7, c.Grid.OverscanRows)
	require.Equal(t, 33*time.Millisecond, c.Grid.FrameInterval)
	require.Equal(t, 2*time.Minute, c.Cache.TTL)
	require.Equal(t, defaults.Grid.RowHeight, c.Grid.RowHeight, "unset keys keep defaults")
	require.Equal(t, defaults.Data.Table, c.Data.Table)
	require.False(t, c.Flags["content-cache"])
	require.True(t, c.Flags["auto-height"], "unset flags keep defaults")
	require.Len(t, c.Columns, 1)
	require.True(t, c.Columns[0].AutoHeight)
}

func TestDecodeConfig_DefaultTemplateIsValid(t *testing.T) {
	c, err := decodeConfig(readYAML(t, config.DefaultConfigTemplate()), nil)
	require.NoError(t, err)
	require.NoError(t, config.Validate(c))
	require.Equal(t, config.Defaults().Grid, c.Grid)
}

func TestReloadTuning(t *testing.T) {
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid:\n  overscan_rows: 4\n"), 0o600))
	viper.SetConfigFile(path)

	tuning, err := reloadTuning()
	require.NoError(t, err)
	require.Equal(t, 4, tuning.OverscanRows)

	require.NoError(t, os.WriteFile(path, []byte("flags:\n  fast-scroll-bypass: false\ngrid:\n  overscan_rows: 9\n"), 0o600))
	tuning, err = reloadTuning()
	require.NoError(t, err)
	require.Equal(t, 9, tuning.OverscanRows)
	require.False(t, tuning.FastScrollBypass)

	require.NoError(t, os.WriteFile(path, []byte("grid:\n  row_height: -1\n"), 0o600))
	_, err = reloadTuning()
	require.Error(t, err, "invalid config is rejected")
}

func TestOpenSource_Synthetic(t *testing.T) {
	c := config.Defaults()
	c.Data.Rows, c.Data.Cols = 50, 3

	src, err := openSource(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, 50, src.Len())
	require.Len(t, src.Columns(10), 3)
}

func TestOpenSource_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	require.NoError(t, datasource.Seed(context.Background(), path, 12))

	c := config.Defaults()
	c.Data.Path = path
	src, err := openSource(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	require.Equal(t, 12, src.Len())

	c.Data.Table = "missing"
	_, err = openSource(context.Background(), c)
	require.ErrorIs(t, err, datasource.ErrNoTable)
}

func TestBuildColumns(t *testing.T) {
	src := datasource.NewSynthetic(10, 4)
	c := config.Defaults()

	cols, err := buildColumns(c, src)
	require.NoError(t, err)
	t.Cleanup(cols.Close)
	require.Equal(t, []string{"id", "title", "status", "score"}, datasource.IDs(cols.OrderedVisibleColumns()))
	require.Equal(t, c.Grid.DefaultColumnWidth, cols.All()[1].Width)

	c.Columns = []config.ColumnConfig{
		{ID: "status", Renderer: "badge"},
		{ID: "title", Width: 30, Hidden: true},
	}
	cols, err = buildColumns(c, src)
	require.NoError(t, err)
	t.Cleanup(cols.Close)
	visible := cols.OrderedVisibleColumns()
	require.Len(t, visible, 1)
	require.Equal(t, render.Named("badge"), visible[0].Renderer)
	require.Equal(t, 2, visible[0].Field, "fields resolve by id")
	require.Equal(t, "Status", visible[0].Title)
	require.True(t, cols.Hidden("title"))

	c.Columns = []config.ColumnConfig{{ID: "a"}, {ID: "a"}}
	_, err = buildColumns(c, src)
	require.Error(t, err)
}

func TestRunBench(t *testing.T) {
	opts := benchOptions{
		Rows:        200,
		Cols:        4,
		Frames:      20,
		Step:        3,
		Width:       40,
		Height:      10,
		ColumnWidth: 10,
		Tuning:      grid.DefaultTuning(),
		Markdown:    render.MarkdownOptions{Style: "notty"},
	}
	res, err := runBench(opts)
	require.NoError(t, err)
	require.Equal(t, 20, res.Frames)
	require.Equal(t, 60, res.FinalTop)
	require.Positive(t, res.Totals.Renders)
	require.Positive(t, res.Totals.Released, "rows leaving the viewport release handles")

	var out bytes.Buffer
	printBench(&out, opts, res)
	require.Contains(t, out.String(), "200 rows x 4 cols")
	require.Contains(t, out.String(), "pool ")

	_, err = runBench(benchOptions{Rows: 10, Cols: 1})
	require.Error(t, err)
}

func TestRunBench_StopsAtBottom(t *testing.T) {
	res, err := runBench(benchOptions{
		Rows: 30, Cols: 2, Frames: 100, Step: 5,
		Width: 20, Height: 10, ColumnWidth: 8,
		Tuning: grid.DefaultTuning(),
	})
	require.NoError(t, err)
	require.Equal(t, 20, res.FinalTop)
	require.Equal(t, 4, res.Frames)
}

func TestSeedCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeded.db")
	var out bytes.Buffer
	seedCmd.SetOut(&out)
	seedCmd.SetContext(context.Background())
	require.NoError(t, seedCmd.Flags().Set("rows", "15"))
	t.Cleanup(func() { _ = seedCmd.Flags().Set("rows", "10000") })

	require.NoError(t, runSeed(seedCmd, []string{path}))
	require.Contains(t, out.String(), "Seeded 15 rows")

	src, err := datasource.OpenSQLite(context.Background(), path, datasource.SeedTable, datasource.SQLiteOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	require.Equal(t, 15, src.Len())
}
