package grid

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zjrosen/vgrid/internal/cache"
	"github.com/zjrosen/vgrid/internal/log"
	"github.com/zjrosen/vgrid/internal/pool"
	"github.com/zjrosen/vgrid/internal/render"
	"github.com/zjrosen/vgrid/internal/tracing"
	"github.com/zjrosen/vgrid/internal/viewport"
)

type passMode int

const (
	passNormal passMode = iota
	// passForce repaints every cell and skips cache reads.
	passForce
)

// pass runs Scan, Render-or-Update and Reconcile over rng, then schedules a
// measurement frame when rows are waiting to be measured. A renderer error
// aborts the pass before Reconcile.
func (e *Engine) pass(rng viewport.Range, mode passMode, reason string) (FrameStats, error) {
	_, span := e.tracer.Start(context.Background(), tracing.SpanFrame)
	defer span.End()

	var st FrameStats
	e.frame = &st
	defer func() {
		e.frame = nil
		e.lastFrame = st
	}()

	e.lastRange = rng
	e.hasRange = true

	active := make(map[pool.CellKey]struct{}, rng.Cells())
	for r := rng.StartRow; r < rng.EndRow; r++ {
		for c := rng.StartCol; c < rng.EndCol; c++ {
			key := pool.CellKey{Row: r, Col: c}
			active[key] = struct{}{}
			if err := e.paintCell(key, mode == passForce, &st); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return st, err
			}
		}
	}
	st.Cells = len(active)
	st.Released = e.pool.ReleaseExcept(active)
	e.scheduleMeasure()

	span.SetAttributes(
		attribute.String(tracing.AttrFrameReason, reason),
		attribute.Int(tracing.AttrRangeStart, rng.StartRow),
		attribute.Int(tracing.AttrRangeRows, rng.Rows()),
		attribute.Int(tracing.AttrRangeCols, rng.Cols()),
		attribute.Int(tracing.AttrRenders, st.Renders),
		attribute.Int(tracing.AttrUpdates, st.Updates),
		attribute.Int(tracing.AttrSkipped, st.Skipped),
		attribute.Int(tracing.AttrCacheHits, st.CacheHits),
		attribute.Int(tracing.AttrReleased, st.Released),
	)
	if log.Enabled(log.LevelDebug, log.CatGrid) {
		log.Debug(log.CatGrid, "frame",
			"reason", reason,
			"range", rng,
			"renders", st.Renders,
			"updates", st.Updates,
			"skipped", st.Skipped,
			"cache_hits", st.CacheHits,
			"released", st.Released)
	}
	return st, nil
}

// paintCell brings one cell up to date. Unchanged cells painted by the same
// renderer are skipped unless force is set.
func (e *Engine) paintCell(key pool.CellKey, force bool, st *FrameStats) error {
	col := e.visible[key.Col]
	res, err := e.registry.Resolve(col.Renderer)
	if err != nil {
		return fmt.Errorf("cell %s: column %q: %w", key, col.ID, err)
	}
	height, err := e.rows.Size(key.Row)
	if err != nil {
		return fmt.Errorf("cell %s: %w", key, err)
	}
	y, _ := e.rows.Offset(key.Row)
	x, _ := e.cols.Offset(key.Col)

	dataRow, dataCol := e.dataRow(key.Row), e.dataCol(key.Col)
	value := e.values.Value(dataRow, dataCol)
	flags := e.flags(key.Row, key.Col)
	p := render.Params{
		Value:    value,
		Row:      key.Row,
		Col:      key.Col,
		DataRow:  dataRow,
		DataCol:  dataCol,
		ColumnID: col.ID,
		Width:    col.Width,
		Height:   height,
		Flags:    flags,
	}

	// Columns sharing a field differ only in width, so it is part of the key.
	cacheKey := e.cache.KeyFor(dataCol, value, res.Identity+"@"+strconv.Itoa(col.Width), flags)
	contentKey := string(cacheKey)

	h := e.pool.Acquire(key)
	h.SetGeometry(pool.Geometry{X: x, Y: y, Width: col.Width, Height: height})
	measure := e.needsMeasure(key.Row, col)

	tr, seen := e.tracked[key]
	if seen && !force && tr.identity == res.Identity && tr.contentKey == contentKey {
		st.Skipped++
		e.layout(h, key, height, measure)
		return nil
	}

	if seen && tr.identity != res.Identity {
		tr.renderer.Destroy(h)
		st.Destroys++
		seen = false
	}
	if !seen {
		// The handle is fresh from the pool or its tracking was dropped;
		// either way nothing on it is known.
		for _, m := range h.Markers() {
			h.RemoveMarker(m)
		}
		tr = &tracked{}
		e.tracked[key] = tr
	}
	tr.identity = res.Identity
	tr.renderer = res.Renderer
	tr.contentKey = ""
	stripRendererMarkers(h, tr)

	var entry cache.Entry
	hit := false
	if !force {
		entry, hit = e.cache.Get(cacheKey)
	}
	if hit {
		st.CacheHits++
		h.SetContent(entry.Content)
		for _, m := range entry.Markers {
			h.AddMarker(m)
		}
		tr.rendererMarkers = entry.Markers
	} else {
		before := make(map[string]struct{})
		for _, m := range h.Markers() {
			before[m] = struct{}{}
		}
		if seen {
			st.Updates++
			err = res.Renderer.Update(h, p)
		} else {
			st.Renders++
			err = res.Renderer.Render(h, p)
		}
		if err != nil {
			return fmt.Errorf("render cell %s (column %q): %w", key, col.ID, err)
		}
		var added []string
		for _, m := range h.Markers() {
			if _, ok := before[m]; !ok {
				added = append(added, m)
			}
		}
		tr.rendererMarkers = added
		e.cache.Put(cacheKey, cache.Entry{Content: h.Content(), Markers: added})
	}

	if mc, ok := res.Renderer.(render.MarkerClasser); ok {
		if cls := mc.MarkerClass(p); cls != "" {
			h.AddMarker(cls)
			tr.class = cls
		}
	}
	e.applyInteraction(h, flags)
	tr.contentKey = contentKey
	e.layout(h, key, height, measure)
	return nil
}

// stripRendererMarkers removes what the previous paint of tr added.
func stripRendererMarkers(h *pool.Handle, tr *tracked) {
	for _, m := range tr.rendererMarkers {
		h.RemoveMarker(m)
	}
	if tr.class != "" {
		h.RemoveMarker(tr.class)
	}
	tr.rendererMarkers = nil
	tr.class = ""
}

// layout constrains the handle to its row height, or relaxes it and
// registers it for measurement.
func (e *Engine) layout(h *pool.Handle, key pool.CellKey, height int, measure bool) {
	if !measure {
		h.Constrain(height)
		return
	}
	h.Relax()
	keys, ok := e.pending[key.Row]
	if !ok {
		keys = make(map[pool.CellKey]struct{})
		e.pending[key.Row] = keys
	}
	keys[key] = struct{}{}
}

func (e *Engine) needsMeasure(row int, col Column) bool {
	if !e.tuning.AutoHeight || !col.AutoHeight {
		return false
	}
	_, done := e.measured[row]
	return !done
}
