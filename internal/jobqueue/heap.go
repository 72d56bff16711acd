package jobqueue

import (
	"time"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// entry wraps a queued job with scheduling metadata for the priority heap.
// seq provides FIFO ordering within the same priority tier. index tracks the
// entry's current heap slot; promotion mutates priority in place and then
// re-establishes the heap order with heap.Init.
type entry struct {
	job        *job
	priority   coretypes.Priority
	seq        uint64
	enqueued   time.Time
	promotions int
	index      int
}

// jobHeap implements container/heap.Interface as a max-heap ordered by
// priority (descending), with FIFO tie-breaking on seq (ascending).
type jobHeap []*entry

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
