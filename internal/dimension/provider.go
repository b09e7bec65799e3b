// Package dimension maps row/column indices to sizes and cumulative offsets.
//
// Three strategies implement Provider:
//
//   - Uniform: every index has the same size. O(1) for all queries, immutable.
//   - Static: precomputed prefix sums. O(1) offset, O(log n) IndexAtOffset,
//     O(n) SetSize. Suited to sizes that are known up front and rarely change.
//   - Dynamic: sum segment tree. O(log n) offset and update, O(1) total.
//     Suited to content-driven sizes that change after the first layout.
//
// All strategies share the same boundary conventions: Size accepts [0, count),
// Offset accepts [0, count] and IndexAtOffset clamps into [0, count], returning
// count for any offset at or beyond Total.
package dimension

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned for index queries outside the valid range.
	ErrOutOfBounds = errors.New("dimension: index out of bounds")

	// ErrUnsupported is returned when a strategy cannot perform an operation.
	ErrUnsupported = errors.New("dimension: unsupported operation")

	// ErrInvalidSize is returned when a size or count is rejected at construction or update.
	ErrInvalidSize = errors.New("dimension: invalid size")
)

// Provider converts between indices, sizes and pixel offsets along one axis.
type Provider interface {
	// Count returns the number of items on the axis.
	Count() int

	// Size returns the size of item i, i in [0, Count()).
	Size(i int) (int, error)

	// Offset returns the sum of sizes before item i, i in [0, Count()].
	Offset(i int) (int, error)

	// Total returns the sum of all sizes.
	Total() int

	// IndexAtOffset returns the item containing pixel x, clamped to [0, Count()].
	IndexAtOffset(x int) int

	// SetSize changes the size of item i.
	SetSize(i, size int) error

	// BatchSetSize applies several size changes as one update.
	BatchSetSize(updates map[int]int) error
}

func sizeIndexError(i, count int) error {
	return fmt.Errorf("%w: size index %d not in [0, %d)", ErrOutOfBounds, i, count)
}

func offsetIndexError(i, count int) error {
	return fmt.Errorf("%w: offset index %d not in [0, %d]", ErrOutOfBounds, i, count)
}

func validateSizes(sizes []int) error {
	for i, s := range sizes {
		if s < 0 {
			return fmt.Errorf("%w: size %d at index %d is negative", ErrInvalidSize, s, i)
		}
	}
	return nil
}

func validateUpdates(updates map[int]int, count int) error {
	for i, s := range updates {
		if i < 0 || i >= count {
			return sizeIndexError(i, count)
		}
		if s < 0 {
			return fmt.Errorf("%w: size %d at index %d is negative", ErrInvalidSize, s, i)
		}
	}
	return nil
}

// Sizes returns every size of p in index order.
func Sizes(p Provider) []int {
	out := make([]int, p.Count())
	for i := range out {
		out[i], _ = p.Size(i)
	}
	return out
}

// Upgrade returns a Dynamic provider with the same sizes as p. A Dynamic
// provider is returned unchanged.
func Upgrade(p Provider) *Dynamic {
	if d, ok := p.(*Dynamic); ok {
		return d
	}
	if u, ok := p.(*Uniform); ok {
		d, _ := NewDynamicUniform(u.count, u.size)
		return d
	}
	d, _ := NewDynamic(Sizes(p))
	return d
}
