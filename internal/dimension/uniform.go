package dimension

import "fmt"

// Uniform is a Provider where every item has the same size.
type Uniform struct {
	count int
	size  int
}

// NewUniform creates a uniform provider. size must be positive and count non-negative.
func NewUniform(count, size int) (*Uniform, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: uniform size must be positive, got %d", ErrInvalidSize, size)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: count must be non-negative, got %d", ErrInvalidSize, count)
	}
	return &Uniform{count: count, size: size}, nil
}

// Count returns the number of items.
func (u *Uniform) Count() int { return u.count }

// ItemSize returns the shared item size.
func (u *Uniform) ItemSize() int { return u.size }

// Size returns the size of item i.
func (u *Uniform) Size(i int) (int, error) {
	if i < 0 || i >= u.count {
		return 0, sizeIndexError(i, u.count)
	}
	return u.size, nil
}

// Offset returns i*size.
func (u *Uniform) Offset(i int) (int, error) {
	if i < 0 || i > u.count {
		return 0, offsetIndexError(i, u.count)
	}
	return i * u.size, nil
}

// Total returns count*size.
func (u *Uniform) Total() int { return u.count * u.size }

// IndexAtOffset returns x/size clamped to [0, count].
func (u *Uniform) IndexAtOffset(x int) int {
	if x <= 0 || u.count == 0 {
		return 0
	}
	return min(x/u.size, u.count)
}

// SetSize is not supported; uniform providers are immutable in shape.
func (u *Uniform) SetSize(i, size int) error {
	return fmt.Errorf("%w: uniform provider cannot resize index %d; use dimension.NewDynamic or dimension.NewStatic for variable sizes", ErrUnsupported, i)
}

// BatchSetSize is not supported; uniform providers are immutable in shape.
func (u *Uniform) BatchSetSize(updates map[int]int) error {
	return fmt.Errorf("%w: uniform provider cannot apply %d size updates; use dimension.NewDynamic or dimension.NewStatic for variable sizes", ErrUnsupported, len(updates))
}
