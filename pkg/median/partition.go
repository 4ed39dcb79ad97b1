package median

import "container/heap"

// compactFloor is the number of tombstones a partition tolerates before it
// considers rebuilding its heap.
const compactFloor = 64

type maxHeap []int64

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h maxHeap) Top() int64         { return h[0] }

func (h *maxHeap) Push(x interface{}) {
	*h = append(*h, x.(int64))
}

func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func (h *maxHeap) filter(keep func(int64) bool) {
	kept := (*h)[:0]
	for _, v := range *h {
		if keep(v) {
			kept = append(kept, v)
		}
	}
	*h = kept
}

type minHeap []int64

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h minHeap) Top() int64         { return h[0] }

func (h *minHeap) Push(x interface{}) {
	*h = append(*h, x.(int64))
}

func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func (h *minHeap) filter(keep func(int64) bool) {
	kept := (*h)[:0]
	for _, v := range *h {
		if keep(v) {
			kept = append(kept, v)
		}
	}
	*h = kept
}

type intHeap interface {
	heap.Interface
	Top() int64
	filter(keep func(int64) bool)
}

// partition is one half of the multiset. Entries whose value has a positive
// stale count are tombstones and are dropped once they surface at the top.
type partition struct {
	h      intHeap
	stale  map[int64]int
	dead   int
	live   int
	purged int
}

func newLowPartition() *partition {
	return &partition{h: &maxHeap{}, stale: make(map[int64]int)}
}

func newHighPartition() *partition {
	return &partition{h: &minHeap{}, stale: make(map[int64]int)}
}

func (p *partition) push(x int64) {
	heap.Push(p.h, x)
	p.live++
}

// prune pops tombstones off the top until the top entry is live.
func (p *partition) prune() {
	for p.h.Len() > 0 {
		v := p.h.Top()
		if p.stale[v] == 0 {
			return
		}
		heap.Pop(p.h)
		p.unmark(v)
		p.purged++
	}
}

// top returns the extreme live value of the partition.
func (p *partition) top() (int64, bool) {
	p.prune()
	if p.h.Len() == 0 {
		return 0, false
	}
	return p.h.Top(), true
}

// pop removes and returns the extreme live value. The partition must hold at
// least one live entry.
func (p *partition) pop() int64 {
	p.prune()
	p.live--
	return heap.Pop(p.h).(int64)
}

// bury records that one live entry with value x is now dead.
func (p *partition) bury(x int64) {
	p.stale[x]++
	p.dead++
	p.live--
	if p.dead > compactFloor && p.dead > p.live {
		p.compact()
	}
}

func (p *partition) unmark(v int64) {
	p.dead--
	p.stale[v]--
	if p.stale[v] == 0 {
		delete(p.stale, v)
	}
}

// compact rebuilds the heap without its tombstones.
func (p *partition) compact() {
	p.h.filter(func(v int64) bool {
		if p.stale[v] > 0 {
			p.unmark(v)
			p.purged++
			return false
		}
		return true
	})
	heap.Init(p.h)
}
