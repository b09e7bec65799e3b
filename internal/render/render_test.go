package render

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vgrid/internal/cachemanager"
	"github.com/zjrosen/vgrid/internal/pool"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func handle(t *testing.T) *pool.Handle {
	t.Helper()
	return pool.New(pool.Options{Ceiling: 4}).Acquire(pool.CellKey{})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 5, "hello"},
		{"cut", "hello world", 6, "hello…"},
		{"zero width", "hello", 0, ""},
		{"wide runes are not split", "日本語テキスト", 5, "日本…"},
		{"combining marks stay with their base", "e\u0301e\u0301e\u0301e\u0301", 3, "e\u0301e\u0301…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.width)
			require.Equal(t, tt.want, got)
			require.LessOrEqual(t, DisplayWidth(got), max(tt.width, 0))
		})
	}
}

func TestText(t *testing.T) {
	h := handle(t)
	require.NoError(t, Text{}.Render(h, Params{Value: "line one\nline two", Width: 40}))
	require.Equal(t, "line one line two", h.Content())

	require.NoError(t, Text{}.Update(h, Params{Value: 12.5, Width: 40}))
	require.Equal(t, "12.5", h.Content())

	require.NoError(t, Text{}.Render(h, Params{Value: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), Width: 40}))
	require.Equal(t, "2024-05-01 09:30:00", h.Content())

	Text{}.Destroy(h)
	require.Empty(t, h.Content())
}

func TestWrap(t *testing.T) {
	h := handle(t)
	require.NoError(t, Wrap{}.Render(h, Params{Value: "the quick brown fox jumps", Width: 10}))
	require.Equal(t, "the quick\nbrown fox\njumps", h.Content())
	require.Equal(t, 3, lipgloss.Height(h.Content()))

	require.NoError(t, Wrap{}.Render(h, Params{Value: "abcdefghijkl", Width: 5}))
	require.Equal(t, "abcde\nfghij\nkl", h.Content(), "long words are hard wrapped")

	require.NoError(t, Wrap{MaxLines: 2}.Render(h, Params{Value: "one two three four five six", Width: 9}))
	lines := strings.Split(h.Content(), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasSuffix(lines[1], "…"))
}

func TestNumber(t *testing.T) {
	h := handle(t)
	n := Number{Precision: 2}

	require.NoError(t, n.Render(h, Params{Value: -3.14159, Width: 8}))
	require.Equal(t, "   -3.14", h.Content())
	require.True(t, h.HasMarker(MarkerNegative))

	require.NoError(t, n.Update(h, Params{Value: 42, Width: 5}))
	require.Equal(t, "   42", h.Content())
	require.False(t, h.HasMarker(MarkerNegative), "update removes a stale marker")

	require.NoError(t, n.Update(h, Params{Value: "n/a", Width: 5}))
	require.Equal(t, "  n/a", h.Content())

	require.NoError(t, n.Render(h, Params{Value: "-7", Width: 6}))
	require.Equal(t, " -7.00", h.Content())

	n.Destroy(h)
	require.False(t, h.HasMarker(MarkerNegative))
}

func TestBadge(t *testing.T) {
	h := handle(t)
	b := Badge{Colors: map[string]lipgloss.Color{"open": "2"}}

	require.NoError(t, b.Render(h, Params{Value: "open", Width: 10}))
	require.Equal(t, " open ", h.Content())
	require.Equal(t, "badge-open", b.MarkerClass(Params{Value: "open"}))
	require.Equal(t, "badge-in-progress", b.MarkerClass(Params{Value: "In Progress!"}))
	require.Empty(t, b.MarkerClass(Params{Value: nil}))
}

func TestMarkdown_CachesRendererPerWidth(t *testing.T) {
	renderers := cachemanager.NewInMemoryCacheManager[string, *glamour.TermRenderer]("test", time.Minute, time.Minute)
	md := NewMarkdown(MarkdownOptions{Style: "ascii", Renderers: renderers})
	h := handle(t)

	require.NoError(t, md.Render(h, Params{Value: "# Title\n\nsome *text*", Width: 30}))
	require.Contains(t, h.Content(), "Title")
	require.Contains(t, h.Content(), "text")
	require.False(t, strings.HasPrefix(h.Content(), "\n"))

	require.NoError(t, md.Update(h, Params{Value: "other", Width: 30}))
	require.Equal(t, 1, renderers.Len(), "same width reuses the renderer")

	require.NoError(t, md.Render(h, Params{Value: "other", Width: 20}))
	require.Equal(t, 2, renderers.Len())

	require.Equal(t, "markdown:ascii", md.Identity())
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewDefaultRegistry(MarkdownOptions{Style: "ascii"})
	require.Equal(t, []string{"badge", "markdown", "number", "text", "wrap"}, reg.Names())

	def, err := reg.Resolve(Ref{})
	require.NoError(t, err)
	require.IsType(t, Text{}, def.Renderer)
	require.Equal(t, "named:text", def.Identity)

	named, err := reg.Resolve(Named("wrap"))
	require.NoError(t, err)
	require.Equal(t, "named:wrap", named.Identity)
	require.Equal(t, "wrap", Named("wrap").Name())
	require.Empty(t, Ref{}.Name())
	require.Empty(t, Instance(Text{}).Name())

	_, err = reg.Resolve(Named("sparkline"))
	require.ErrorIs(t, err, ErrUnknownRenderer)

	_, err = reg.Resolve(Instance(nil))
	require.ErrorIs(t, err, ErrUnknownRenderer)

	require.Error(t, reg.Register("", Text{}))
	require.Error(t, reg.Register("x", nil))
}

func TestRegistry_InstanceIdentity(t *testing.T) {
	reg := NewRegistry()

	a := NewMarkdown(MarkdownOptions{Style: "ascii"})
	ra, err := reg.Resolve(Instance(a))
	require.NoError(t, err)
	require.Equal(t, "instance:markdown:ascii", ra.Identity, "Identifier wins")

	p1, _ := reg.Resolve(Instance(Number{Precision: 1}))
	p2, _ := reg.Resolve(Instance(Number{Precision: 2}))
	require.NotEqual(t, p1.Identity, p2.Identity, "value renderers differ by configuration")

	f := Func(func(p Params) (string, error) { return "x", nil })
	rf1, _ := reg.Resolve(Instance(f))
	rf2, _ := reg.Resolve(Instance(f))
	require.Equal(t, rf1.Identity, rf2.Identity)

	named, _ := reg.Resolve(Named("text"))
	require.NotEqual(t, named.Identity, "instance:"+instanceIdentity(Text{}))
}

func TestFunc(t *testing.T) {
	h := handle(t)
	f := Func(func(p Params) (string, error) {
		if p.Value == nil {
			return "", errors.New("no value")
		}
		return FormatValue(p.Value), nil
	})
	require.NoError(t, f.Render(h, Params{Value: "v"}))
	require.Equal(t, "v", h.Content())
	require.EqualError(t, f.Update(h, Params{}), "no value")
	f.Destroy(h)
	require.Empty(t, h.Content())
}
