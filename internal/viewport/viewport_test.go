package viewport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/vgrid/internal/dimension"
)

func uniform(t *testing.T, count, size int) dimension.Provider {
	t.Helper()
	u, err := dimension.NewUniform(count, size)
	require.NoError(t, err)
	return u
}

func TestCompute_UniformRows(t *testing.T) {
	rows := uniform(t, 100, 30)
	cols := uniform(t, 5, 10)

	r := Compute(rows, cols, Scroll{}, Size{Width: 50, Height: 300}, Overscan{})
	require.Equal(t, 0, r.StartRow)
	require.Equal(t, 10, r.EndRow)
	require.Equal(t, 0, r.StartCol)
	require.Equal(t, 5, r.EndCol)
}

func TestCompute_VariableRows(t *testing.T) {
	rows, err := dimension.NewStatic([]int{30, 40, 50, 30, 60})
	require.NoError(t, err)
	cols := uniform(t, 1, 10)

	r := Compute(rows, cols, Scroll{Top: 70}, Size{Width: 10, Height: 100}, Overscan{})
	require.Equal(t, 2, r.StartRow, "offset 70 falls in row 2")
	require.Equal(t, 5, r.EndRow, "last visible pixel 169 is in row 4")
}

func TestCompute_Overscan(t *testing.T) {
	rows := uniform(t, 100, 10)
	cols := uniform(t, 20, 10)

	r := Compute(rows, cols, Scroll{Top: 200, Left: 50}, Size{Width: 30, Height: 50}, Overscan{Rows: 3, Cols: 1})
	require.Equal(t, Range{StartRow: 17, EndRow: 28, StartCol: 4, EndCol: 9}, r)

	r = Compute(rows, cols, Scroll{}, Size{Width: 30, Height: 50}, Overscan{Rows: 3, Cols: 1})
	require.Equal(t, 0, r.StartRow, "overscan clamps at zero")
	require.Equal(t, 0, r.StartCol)
}

func TestCompute_EdgeCases(t *testing.T) {
	t.Run("zero count axis", func(t *testing.T) {
		r := Compute(uniform(t, 0, 30), uniform(t, 4, 10), Scroll{}, Size{Width: 40, Height: 300}, Overscan{Rows: 2})
		require.Equal(t, 0, r.StartRow)
		require.Equal(t, 0, r.EndRow)
		require.True(t, r.Empty())
	})

	t.Run("negative scroll clamps to zero", func(t *testing.T) {
		r := Compute(uniform(t, 100, 30), uniform(t, 4, 10), Scroll{Top: -500, Left: -3}, Size{Width: 40, Height: 90}, Overscan{})
		require.Equal(t, Range{StartRow: 0, EndRow: 3, StartCol: 0, EndCol: 4}, r)
	})

	t.Run("huge scroll clamps to final page", func(t *testing.T) {
		r := Compute(uniform(t, 100, 30), uniform(t, 4, 10), Scroll{Top: 1 << 40}, Size{Width: 40, Height: 300}, Overscan{})
		require.Equal(t, 90, r.StartRow)
		require.Equal(t, 100, r.EndRow)
	})

	t.Run("zero viewport", func(t *testing.T) {
		r := Compute(uniform(t, 100, 30), uniform(t, 4, 10), Scroll{Top: 60}, Size{Width: 40, Height: 0}, Overscan{})
		require.Equal(t, 2, r.StartRow)
		require.Equal(t, 2, r.EndRow)
		require.True(t, r.Empty())
	})
}

func TestRange_Helpers(t *testing.T) {
	r := Range{StartRow: 2, EndRow: 4, StartCol: 1, EndCol: 3}
	require.Equal(t, 2, r.Rows())
	require.Equal(t, 2, r.Cols())
	require.Equal(t, 4, r.Cells())
	require.True(t, r.Contains(3, 2))
	require.False(t, r.Contains(4, 2))
	require.True(t, r.Equal(Range{StartRow: 2, EndRow: 4, StartCol: 1, EndCol: 3}))
	require.Equal(t, "rows[2,4) cols[1,3)", r.String())

	var visited [][2]int
	r.Each(func(row, col int) { visited = append(visited, [2]int{row, col}) })
	require.Equal(t, [][2]int{{2, 1}, {2, 2}, {3, 1}, {3, 2}}, visited, "row-major order")
}

func TestProperty_RangeInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sizes := rapid.SliceOfN(rapid.IntRange(0, 60), 0, 300).Draw(t, "sizes")
		rows, err := dimension.NewDynamic(sizes)
		if err != nil {
			t.Fatal(err)
		}
		cols, _ := dimension.NewUniform(rapid.IntRange(0, 40).Draw(t, "cols"), 8)

		scroll := Scroll{
			Top:  rapid.IntRange(-100, 20_000).Draw(t, "top"),
			Left: rapid.IntRange(-100, 1_000).Draw(t, "left"),
		}
		size := Size{
			Width:  rapid.IntRange(0, 400).Draw(t, "width"),
			Height: rapid.IntRange(0, 900).Draw(t, "height"),
		}
		over := Overscan{Rows: rapid.IntRange(0, 10).Draw(t, "orows"), Cols: rapid.IntRange(0, 4).Draw(t, "ocols")}

		r := Compute(rows, cols, scroll, size, over)
		if r.StartRow < 0 || r.StartRow > r.EndRow || r.EndRow > rows.Count() {
			t.Fatalf("row range %s violates 0 <= start <= end <= %d", r, rows.Count())
		}
		if r.StartCol < 0 || r.StartCol > r.EndCol || r.EndCol > cols.Count() {
			t.Fatalf("col range %s violates 0 <= start <= end <= %d", r, cols.Count())
		}
		if again := Compute(rows, cols, scroll, size, over); !again.Equal(r) {
			t.Fatalf("compute is not idempotent: %s vs %s", r, again)
		}
	})
}

func TestVelocity(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	v := NewVelocity(clock)

	require.Zero(t, v.Record(Scroll{Top: 0}), "one sample has no speed")

	now = now.Add(10 * time.Millisecond)
	require.InDelta(t, 10_000.0, v.Record(Scroll{Top: 100}), 0.001)

	now = now.Add(time.Second)
	require.Zero(t, v.Speed(), "stale samples are pruned")

	v.Reset()
	require.Zero(t, v.Record(Scroll{Left: 40}))
}
