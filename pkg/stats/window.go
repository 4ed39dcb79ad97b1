package stats

import (
	"container/list"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/pliu/medianmon/pkg/median"
)

// Window tracks the lower median of the values added during the last
// windowSize. A windowSize <= 0 keeps values until they are removed.
type Window struct {
	mu         sync.Mutex
	values     *median.MedianMultiset
	window     *list.List
	windowSize time.Duration
	clock      clock.Clock
	// evicted counts explicit removals that have not yet been matched with
	// an expiring measurement of the same value.
	evicted map[int64]int
	onExpire func(n int)
}

func NewWindow(windowSize time.Duration) *Window {
	return NewWindowWithClock(windowSize, clock.New())
}

func NewWindowWithClock(windowSize time.Duration, clk clock.Clock) *Window {
	return &Window{
		values:     median.New(),
		window:     list.New(),
		windowSize: windowSize,
		clock:      clk,
		evicted:    make(map[int64]int),
	}
}

// OnExpire registers a callback that receives the number of values dropped
// by each cleanup pass that dropped at least one.
func (w *Window) OnExpire(f func(n int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onExpire = f
}

type measurement struct {
	timestamp time.Time
	value     int64
}

func (w *Window) Add(value int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	w.values.Add(value)
	if w.windowSize > 0 {
		w.window.PushBack(&measurement{timestamp: now, value: value})
	}
	w.cleanup(now)
}

// Remove drops one occurrence of value. The oldest matching measurement is
// the one treated as removed.
func (w *Window) Remove(value int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cleanup(w.clock.Now())
	if !w.values.Remove(value) {
		return false
	}
	if w.windowSize > 0 {
		w.evicted[value]++
	}
	return true
}

func (w *Window) Median() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cleanup(w.clock.Now())
	return w.values.Median()
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.values.Len()
}

// Stale returns the number of removed values the underlying multiset has not
// yet discarded.
func (w *Window) Stale() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.values.Stale()
}

// cleanup removes measurements that are older than the window size.
func (w *Window) cleanup(now time.Time) {
	if w.windowSize <= 0 {
		return
	}

	expired := 0
	for e := w.window.Front(); e != nil; e = w.window.Front() {
		m := e.Value.(*measurement)
		if now.Sub(m.timestamp) <= w.windowSize {
			// The list is sorted by time, so we can stop here.
			break
		}
		if !w.forget(m.value) {
			w.values.Remove(m.value)
			expired++
		}
		w.window.Remove(e)
	}
	if expired > 0 && w.onExpire != nil {
		w.onExpire(expired)
	}
}

// forget consumes one pending explicit removal of value, if any.
func (w *Window) forget(value int64) bool {
	if w.evicted[value] == 0 {
		return false
	}
	w.evicted[value]--
	if w.evicted[value] == 0 {
		delete(w.evicted, value)
	}
	return true
}
