package grid

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/vgrid/internal/dimension"
	"github.com/zjrosen/vgrid/internal/log"
	"github.com/zjrosen/vgrid/internal/pool"
	"github.com/zjrosen/vgrid/internal/tracing"
)

// scheduleMeasure requests the measurement frame if rows are pending and no
// measurement frame is queued yet.
func (e *Engine) scheduleMeasure() {
	if len(e.pending) == 0 || e.measureFrame != 0 {
		return
	}
	e.measureFrame = e.sched.RequestFrame(e.measureFrameFn)
}

// MeasurePending reports whether a measurement frame is queued.
func (e *Engine) MeasurePending() bool { return e.measureFrame != 0 }

func (e *Engine) measureFrameFn() {
	e.measureFrame = 0
	if e.destroyed {
		return
	}
	if err := e.measureRows(); err != nil {
		e.fail("measure frame", err)
	}
}

// measureRows reads the natural height of every pending row, applies the
// heights that changed in one batch and repaints the last range when any did.
func (e *Engine) measureRows() error {
	if len(e.pending) == 0 {
		return nil
	}
	_, span := e.tracer.Start(context.Background(), tracing.SpanMeasure)
	defer span.End()

	pending := e.pending
	e.pending = make(map[int]map[pool.CellKey]struct{})
	updates := make(map[int]int)
	for row, keys := range pending {
		natural, seen := 0, false
		for key := range keys {
			h, ok := e.pool.Active(key)
			if !ok {
				continue
			}
			natural = max(natural, e.measure(h))
			seen = true
		}
		if !seen || row >= e.rows.Count() {
			continue
		}
		e.measured[row] = struct{}{}
		natural = max(natural, e.tuning.MinRowHeight)
		current, err := e.rows.Size(row)
		if err != nil {
			return err
		}
		if natural != current {
			updates[row] = natural
		}
	}
	span.SetAttributes(
		attribute.Int(tracing.AttrPendingRows, len(pending)),
		attribute.Int(tracing.AttrChangedRows, len(updates)),
	)
	if len(updates) == 0 {
		return nil
	}

	if err := e.applyRowHeights(updates); err != nil {
		return err
	}
	lowest := slices.Min(slices.Collect(maps.Keys(updates)))
	for key := range e.tracked {
		if key.Row >= lowest {
			delete(e.tracked, key)
		}
	}
	log.Debug(log.CatGrid, "row heights measured", "changed", len(updates), "lowest", lowest)

	_, err := e.pass(e.lastRange, passNormal, "measure")
	return err
}

// applyRowHeights batch-updates the row provider, upgrading it to a Dynamic
// provider when it cannot be mutated.
func (e *Engine) applyRowHeights(updates map[int]int) error {
	err := e.rows.BatchSetSize(updates)
	if errors.Is(err, dimension.ErrUnsupported) {
		d := dimension.Upgrade(e.rows)
		if err := d.BatchSetSize(updates); err != nil {
			return fmt.Errorf("apply row heights: %w", err)
		}
		log.Debug(log.CatGrid, "row provider upgraded to dynamic", "rows", d.Count())
		e.rows = d
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply row heights: %w", err)
	}
	return nil
}
