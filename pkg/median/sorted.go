package median

import "slices"

// Sorted is a Container backed by a sorted slice. Add and Remove are O(n);
// it exists as a simple reference for MedianMultiset.
type Sorted struct {
	values []int64
}

func NewSorted() *Sorted {
	return &Sorted{}
}

func (s *Sorted) Add(x int64) {
	i, _ := slices.BinarySearch(s.values, x)
	s.values = slices.Insert(s.values, i, x)
}

func (s *Sorted) Remove(x int64) bool {
	i, found := slices.BinarySearch(s.values, x)
	if !found {
		return false
	}
	s.values = slices.Delete(s.values, i, i+1)
	return true
}

func (s *Sorted) Median() (int64, error) {
	n := len(s.values)
	if n == 0 {
		return 0, ErrEmpty
	}
	return s.values[(n+1)/2-1], nil
}

func (s *Sorted) Len() int {
	return len(s.values)
}
