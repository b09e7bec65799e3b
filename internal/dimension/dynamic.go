package dimension

import (
	"fmt"
	"sort"

	"github.com/zjrosen/vgrid/internal/log"
)

// ChangeFunc is notified once per changed leaf with its new size.
type ChangeFunc func(index, newSize int)

type subscriber struct {
	id int
	fn ChangeFunc
}

// Dynamic is a Provider backed by a sum segment tree.
//
// The tree is stored as a flat array of 2*leaves nodes where leaves is the
// next power of two >= count. Node 1 is the root, node k has children 2k and
// 2k+1, and leaf i lives at leaves+i. Padding leaves hold zero.
type Dynamic struct {
	count  int
	leaves int
	tree   []int

	subs   []subscriber
	nextID int
}

// NewDynamic creates a dynamic provider from per-index sizes.
func NewDynamic(sizes []int) (*Dynamic, error) {
	if err := validateSizes(sizes); err != nil {
		return nil, err
	}
	d := newDynamic(len(sizes))
	copy(d.tree[d.leaves:], sizes)
	d.build()
	return d, nil
}

// NewDynamicUniform creates a dynamic provider where every index starts at size.
func NewDynamicUniform(count, size int) (*Dynamic, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must be non-negative, got %d", ErrInvalidSize, count)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: size %d is negative", ErrInvalidSize, size)
	}
	d := newDynamic(count)
	for i := 0; i < count; i++ {
		d.tree[d.leaves+i] = size
	}
	d.build()
	return d, nil
}

func newDynamic(count int) *Dynamic {
	leaves := 1
	for leaves < count {
		leaves <<= 1
	}
	return &Dynamic{
		count:  count,
		leaves: leaves,
		tree:   make([]int, 2*leaves),
	}
}

func (d *Dynamic) build() {
	for k := d.leaves - 1; k >= 1; k-- {
		d.tree[k] = d.tree[2*k] + d.tree[2*k+1]
	}
}

// Count returns the number of items.
func (d *Dynamic) Count() int { return d.count }

// Size returns the leaf value for item i.
func (d *Dynamic) Size(i int) (int, error) {
	if i < 0 || i >= d.count {
		return 0, sizeIndexError(i, d.count)
	}
	return d.tree[d.leaves+i], nil
}

// Offset returns the sum of leaves [0, i).
func (d *Dynamic) Offset(i int) (int, error) {
	if i < 0 || i > d.count {
		return 0, offsetIndexError(i, d.count)
	}
	return d.prefix(i), nil
}

// prefix sums leaves [0, i) bottom-up.
func (d *Dynamic) prefix(i int) int {
	sum := 0
	lo, hi := d.leaves, d.leaves+i
	for lo < hi {
		if lo&1 == 1 {
			sum += d.tree[lo]
			lo++
		}
		if hi&1 == 1 {
			hi--
			sum += d.tree[hi]
		}
		lo >>= 1
		hi >>= 1
	}
	return sum
}

// Total returns the root aggregate.
func (d *Dynamic) Total() int {
	if d.count == 0 {
		return 0
	}
	return d.tree[1]
}

// IndexAtOffset descends from the root, keeping left when the left subtree
// already covers x.
func (d *Dynamic) IndexAtOffset(x int) int {
	if x < 0 || d.count == 0 {
		return 0
	}
	if x >= d.Total() {
		return d.count
	}
	node, rem := 1, x
	for node < d.leaves {
		left := 2 * node
		if d.tree[left] <= rem {
			rem -= d.tree[left]
			node = left + 1
		} else {
			node = left
		}
	}
	return min(node-d.leaves, d.count-1)
}

// SetSize updates one leaf and its ancestors.
func (d *Dynamic) SetSize(i, size int) error {
	return d.BatchSetSize(map[int]int{i: size})
}

// BatchSetSize validates every update first so a bad entry leaves the tree
// untouched, then applies each changed leaf in O(log n).
func (d *Dynamic) BatchSetSize(updates map[int]int) error {
	if err := validateUpdates(updates, d.count); err != nil {
		return err
	}

	changed := make([]int, 0, len(updates))
	for i, v := range updates {
		leaf := d.leaves + i
		if d.tree[leaf] == v {
			continue
		}
		delta := v - d.tree[leaf]
		for k := leaf; k >= 1; k >>= 1 {
			d.tree[k] += delta
		}
		changed = append(changed, i)
	}

	sort.Ints(changed)
	for _, i := range changed {
		d.notify(i, d.tree[d.leaves+i])
	}
	return nil
}

// Subscribe registers fn for per-leaf change notifications.
// The returned function removes the subscription.
func (d *Dynamic) Subscribe(fn ChangeFunc) func() {
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

func (d *Dynamic) notify(index, size int) {
	for _, s := range d.subs {
		d.safeNotify(s, index, size)
	}
}

// safeNotify isolates a failing subscriber from the update and from the
// remaining subscribers.
func (d *Dynamic) safeNotify(s subscriber, index, size int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatDimension, "size subscriber panicked",
				"subscriber", s.id, "index", index, "size", size, "panic", r)
		}
	}()
	s.fn(index, size)
}
