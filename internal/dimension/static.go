package dimension

import "sort"

// Static is a Provider backed by a prefix-sum array.
// prefix[i] is the offset of item i; prefix[count] is the total.
type Static struct {
	sizes  []int
	prefix []int
}

// NewStatic creates a static provider. The sizes slice is copied.
func NewStatic(sizes []int) (*Static, error) {
	if err := validateSizes(sizes); err != nil {
		return nil, err
	}
	s := &Static{
		sizes:  append([]int(nil), sizes...),
		prefix: make([]int, len(sizes)+1),
	}
	for i, v := range s.sizes {
		s.prefix[i+1] = s.prefix[i] + v
	}
	return s, nil
}

// Count returns the number of items.
func (s *Static) Count() int { return len(s.sizes) }

// Size returns the size of item i.
func (s *Static) Size(i int) (int, error) {
	if i < 0 || i >= len(s.sizes) {
		return 0, sizeIndexError(i, len(s.sizes))
	}
	return s.sizes[i], nil
}

// Offset returns the prefix sum before item i.
func (s *Static) Offset(i int) (int, error) {
	if i < 0 || i > len(s.sizes) {
		return 0, offsetIndexError(i, len(s.sizes))
	}
	return s.prefix[i], nil
}

// Total returns the sum of all sizes.
func (s *Static) Total() int { return s.prefix[len(s.sizes)] }

// IndexAtOffset binary searches the prefix sums.
func (s *Static) IndexAtOffset(x int) int {
	n := len(s.sizes)
	if x < 0 || n == 0 {
		return 0
	}
	if x >= s.Total() {
		return n
	}
	// first i with prefix[i] > x, minus one
	return sort.Search(n+1, func(i int) bool { return s.prefix[i] > x }) - 1
}

// SetSize changes one size and shifts every downstream prefix sum.
func (s *Static) SetSize(i, size int) error {
	return s.BatchSetSize(map[int]int{i: size})
}

// BatchSetSize applies all updates, then rebuilds the prefix sums from the
// lowest changed index.
func (s *Static) BatchSetSize(updates map[int]int) error {
	if err := validateUpdates(updates, len(s.sizes)); err != nil {
		return err
	}
	lowest := len(s.sizes)
	for i, v := range updates {
		if s.sizes[i] == v {
			continue
		}
		s.sizes[i] = v
		lowest = min(lowest, i)
	}
	for i := lowest; i < len(s.sizes); i++ {
		s.prefix[i+1] = s.prefix[i] + s.sizes[i]
	}
	return nil
}
