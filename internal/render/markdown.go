package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/vgrid/internal/cachemanager"
	"github.com/zjrosen/vgrid/internal/pool"
)

// noMarginStyle removes glamour's document margins so output fits the cell.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// MarkdownOptions configures the markdown renderer.
type MarkdownOptions struct {
	// Style is a glamour built-in style name. Defaults to "dark". Use
	// "ascii" or "notty" for uncolored output.
	Style string

	// Renderers caches glamour renderers per width. Nil creates a private
	// in-memory cache.
	Renderers cachemanager.CacheManager[string, *glamour.TermRenderer]

	// TTL is how long an unused width's renderer is kept.
	TTL time.Duration
}

// Markdown renders the value as markdown word-wrapped to the cell width.
// Building a glamour renderer is expensive, so one is kept per width.
type Markdown struct {
	style     string
	renderers cachemanager.CacheManager[string, *glamour.TermRenderer]
	ttl       time.Duration
}

// NewMarkdown creates a markdown renderer.
func NewMarkdown(opts MarkdownOptions) *Markdown {
	if opts.Style == "" {
		opts.Style = "dark"
	}
	if opts.TTL <= 0 {
		opts.TTL = cachemanager.DefaultExpiration
	}
	if opts.Renderers == nil {
		opts.Renderers = cachemanager.NewInMemoryCacheManager[string, *glamour.TermRenderer](
			"markdown-renderers", opts.TTL, cachemanager.DefaultCleanupInterval)
	}
	return &Markdown{style: opts.Style, renderers: opts.Renderers, ttl: opts.TTL}
}

// Identity keeps the cache key stable across engine restarts.
func (m *Markdown) Identity() string { return "markdown:" + m.style }

func (m *Markdown) Render(h *pool.Handle, p Params) error {
	if p.Width <= 0 {
		h.SetContent("")
		return nil
	}
	r, err := m.renderer(p.Width)
	if err != nil {
		return err
	}
	out, err := r.Render(FormatValue(p.Value))
	if err != nil {
		return fmt.Errorf("render markdown for cell %d-%d: %w", p.Row, p.Col, err)
	}
	h.SetContent(tidy(out))
	return nil
}

func (m *Markdown) Update(h *pool.Handle, p Params) error { return m.Render(h, p) }

func (m *Markdown) Destroy(h *pool.Handle) { h.SetContent("") }

func (m *Markdown) renderer(width int) (*glamour.TermRenderer, error) {
	ctx := context.Background()
	key := m.style + ":" + strconv.Itoa(width)
	if r, ok := m.renderers.GetWithRefresh(ctx, key, m.ttl); ok {
		return r, nil
	}
	// Use a named style rather than WithAutoStyle so glamour never queries
	// the terminal for its background color.
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(m.style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer (style %q, width %d): %w", m.style, width, err)
	}
	m.renderers.Set(ctx, key, r, m.ttl)
	return r, nil
}

// tidy drops glamour's surrounding blank lines and trailing padding.
func tidy(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
