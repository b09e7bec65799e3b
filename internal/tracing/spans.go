package tracing

// Span names.
const (
	SpanFrame   = "grid.frame"
	SpanMeasure = "grid.measure"
)

// Span attribute keys.
const (
	AttrRangeRows   = "grid.range.rows"
	AttrRangeCols   = "grid.range.cols"
	AttrRangeStart  = "grid.range.start_row"
	AttrFrameReason = "grid.frame.reason"
	AttrRenders     = "grid.renders"
	AttrUpdates     = "grid.updates"
	AttrSkipped     = "grid.skipped"
	AttrCacheHits   = "grid.cache.hits"
	AttrReleased    = "grid.pool.released"
	AttrPendingRows = "grid.measure.pending_rows"
	AttrChangedRows = "grid.measure.changed_rows"
	AttrErrorType   = "error.type"
)
