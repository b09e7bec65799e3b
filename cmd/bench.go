package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vgrid/internal/config"
	"github.com/zjrosen/vgrid/internal/datasource"
	"github.com/zjrosen/vgrid/internal/flags"
	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/render"
	"github.com/zjrosen/vgrid/internal/viewport"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Simulate scrolling without a terminal and report engine counters",
	Long: `Drive the grid engine headlessly over a generated data set: scroll down by a
fixed step once per simulated frame, then report render, cache and pool counters.`,
	RunE: runBenchCmd,
}

func init() {
	benchCmd.Flags().Int("frames", 500, "number of simulated frames")
	benchCmd.Flags().Int("step", 3, "rows scrolled per frame")
	benchCmd.Flags().Int("width", 120, "viewport width")
	benchCmd.Flags().Int("height", 40, "viewport height")
	rootCmd.AddCommand(benchCmd)
}

// benchOptions drives one headless run.
type benchOptions struct {
	Rows, Cols    int
	Frames, Step  int
	Width, Height int
	ColumnWidth   int
	FrameInterval time.Duration
	Tuning        grid.Tuning
	Markdown      render.MarkdownOptions
}

type benchResult struct {
	Frames   int
	Elapsed  time.Duration
	Totals   grid.FrameStats
	Pool     string
	Cache    string
	FinalTop int
}

func runBenchCmd(cmd *cobra.Command, args []string) error {
	if loadErr != nil {
		return loadErr
	}
	opts := benchOptions{
		Rows:          cfg.Data.Rows,
		Cols:          cfg.Data.Cols,
		ColumnWidth:   cfg.Grid.DefaultColumnWidth,
		FrameInterval: cfg.Grid.FrameInterval,
		Tuning:        cfg.Tuning(flags.New(cfg.Flags)),
		Markdown:      config.Defaults().MarkdownOptions(),
	}
	opts.Markdown.Style = "notty"
	opts.Frames, _ = cmd.Flags().GetInt("frames")
	opts.Step, _ = cmd.Flags().GetInt("step")
	opts.Width, _ = cmd.Flags().GetInt("width")
	opts.Height, _ = cmd.Flags().GetInt("height")

	res, err := runBench(opts)
	if err != nil {
		return err
	}
	printBench(cmd.OutOrStdout(), opts, res)
	return nil
}

// runBench scrolls a synthetic grid with a manual scheduler and a simulated
// clock so the velocity bypass sees a steady frame rate.
func runBench(opts benchOptions) (benchResult, error) {
	if opts.Frames <= 0 || opts.Step <= 0 {
		return benchResult{}, fmt.Errorf("frames and step must be positive")
	}
	src := datasource.NewSynthetic(opts.Rows, opts.Cols)
	cols := grid.NewStaticColumns(src.Columns(opts.ColumnWidth)...)
	defer cols.Close()

	now := time.Unix(0, 0)
	sched := grid.NewManualScheduler()
	engine, err := grid.New(grid.Options{
		Columns:   cols,
		Values:    src,
		RowCount:  src.Len(),
		Registry:  render.NewDefaultRegistry(opts.Markdown),
		Scheduler: sched,
		Viewport:  viewport.Size{Width: opts.Width, Height: opts.Height},
		Tuning:    &opts.Tuning,
		Clock:     func() time.Time { return now },
	})
	if err != nil {
		return benchResult{}, err
	}
	defer engine.Destroy()

	interval := opts.FrameInterval
	if interval <= 0 {
		interval = grid.DefaultFrameInterval
	}

	var res benchResult
	start := time.Now()
	if err := engine.RenderVisible(0, 0); err != nil {
		return res, err
	}
	add(&res.Totals, engine.LastFrame())

	maxTop := max(engine.Rows().Total()-opts.Height, 0)
	top := 0
	for i := 0; i < opts.Frames && top < maxTop; i++ {
		now = now.Add(interval)
		top = min(top+opts.Step, maxTop)
		if err := engine.Scroll(top, 0); err != nil {
			return res, err
		}
		sched.Flush()
		add(&res.Totals, engine.LastFrame())
		res.Frames++
	}
	// Settle deferred measurement passes.
	for sched.Pending() > 0 {
		sched.Flush()
	}
	if err := engine.Err(); err != nil {
		return res, err
	}

	res.Elapsed = time.Since(start)
	res.FinalTop = engine.ScrollPosition().Top
	ps := engine.PoolStats()
	cs := engine.CacheStats()
	res.Pool = fmt.Sprintf("%d active, %d idle, %d allocated, %d discarded", ps.Active, ps.Idle, ps.Allocated, ps.Discarded)
	res.Cache = fmt.Sprintf("%.1f%% hits, %d/%d entries, %d evictions", cs.HitRate(), cs.Size, cs.Capacity, cs.Evictions)
	return res, nil
}

func add(total *grid.FrameStats, f grid.FrameStats) {
	total.Cells += f.Cells
	total.Renders += f.Renders
	total.Updates += f.Updates
	total.Skipped += f.Skipped
	total.CacheHits += f.CacheHits
	total.Destroys += f.Destroys
	total.Released += f.Released
}

func printBench(w io.Writer, opts benchOptions, res benchResult) {
	_, _ = fmt.Fprintf(w, "grid      %d rows x %d cols, viewport %dx%d\n", opts.Rows, opts.Cols, opts.Width, opts.Height)
	_, _ = fmt.Fprintf(w, "frames    %d (final top %d) in %s\n", res.Frames, res.FinalTop, res.Elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "cells     %d visited, %d rendered, %d updated, %d skipped, %d cache hits\n",
		res.Totals.Cells, res.Totals.Renders, res.Totals.Updates, res.Totals.Skipped, res.Totals.CacheHits)
	_, _ = fmt.Fprintf(w, "handles   %d released, %d destroyed\n", res.Totals.Released, res.Totals.Destroys)
	_, _ = fmt.Fprintf(w, "pool      %s\n", res.Pool)
	_, _ = fmt.Fprintf(w, "cache     %s\n", res.Cache)
}
