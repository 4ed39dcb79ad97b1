// Package median maintains the lower median of a mutable multiset of
// integers.
package median

import "errors"

// ErrEmpty is returned by Median when the container holds no values.
var ErrEmpty = errors.New("median: container is empty")

// Container is the contract shared by every median implementation in this
// package.
type Container interface {
	Add(x int64)
	Remove(x int64) bool
	Median() (int64, error)
}

// MedianMultiset keeps the smaller half of its values in a max-heap (low) and
// the larger half in a min-heap (high), so the lower median is always the top
// of low. Removal is lazy: a removed value is tombstoned in the partition that
// owns it and only popped once it reaches that heap's top.
//
// A MedianMultiset is not safe for concurrent use.
type MedianMultiset struct {
	low    *partition
	high   *partition
	counts map[int64]int
}

// New returns an empty MedianMultiset.
func New() *MedianMultiset {
	return &MedianMultiset{
		low:    newLowPartition(),
		high:   newHighPartition(),
		counts: make(map[int64]int),
	}
}

// Add inserts one occurrence of x.
func (m *MedianMultiset) Add(x int64) {
	if top, ok := m.low.top(); !ok || x <= top {
		m.low.push(x)
	} else {
		m.high.push(x)
	}
	m.counts[x]++
	m.rebalance()
}

// Remove deletes one occurrence of x. It reports false, and changes nothing,
// when x is not present.
func (m *MedianMultiset) Remove(x int64) bool {
	if m.counts[x] == 0 {
		return false
	}
	m.counts[x]--
	if m.counts[x] == 0 {
		delete(m.counts, x)
	}

	// Every live value in high is >= the live top of low, so a live x <= that
	// top must sit in low and anything larger in high.
	if top, _ := m.low.top(); x <= top {
		m.low.bury(x)
	} else {
		m.high.bury(x)
	}
	m.rebalance()
	return true
}

// Median returns the lower median: the element at index ceil(n/2)-1 of the
// sorted values.
func (m *MedianMultiset) Median() (int64, error) {
	m.high.prune()
	v, ok := m.low.top()
	if !ok {
		return 0, ErrEmpty
	}
	return v, nil
}

// Len returns the number of values currently held.
func (m *MedianMultiset) Len() int {
	return m.low.live + m.high.live
}

// Count returns the number of occurrences of x.
func (m *MedianMultiset) Count(x int64) int {
	return m.counts[x]
}

// Stale returns the number of removed values still waiting to be popped off
// a heap.
func (m *MedianMultiset) Stale() int {
	return m.low.dead + m.high.dead
}

// Purged returns the total number of tombstones discarded so far.
func (m *MedianMultiset) Purged() int {
	return m.low.purged + m.high.purged
}

// rebalance restores low.live-high.live in {0, 1}. Each Add or Remove moves
// the difference by one, so a single transfer is enough.
func (m *MedianMultiset) rebalance() {
	switch {
	case m.low.live > m.high.live+1:
		m.high.push(m.low.pop())
	case m.high.live > m.low.live:
		m.low.push(m.high.pop())
	}
}
