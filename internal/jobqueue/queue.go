// Package jobqueue implements C5: a bounded, priority-ordered job queue that
// gates access to scarce gpu/llm/cpu resource slots, with starvation
// protection for jobs waiting behind higher-tier work.
package jobqueue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// Work is the function a job runs once admitted. It must observe ctx
// cancellation for cooperative cancel to take effect.
type Work func(ctx context.Context) error

// job is the internal descriptor backing a Handle.
type job struct {
	id       string
	class    coretypes.ResourceClass
	gpuMemGB float64
	work     Work

	mu       sync.Mutex
	phase    coretypes.JobPhase
	progress int
	err      error
	cancel   context.CancelFunc
	done     chan struct{}
}

// Handle is returned by Submit and lets callers observe and cancel a job.
type Handle struct {
	j *job
}

// ID returns the job's opaque identifier.
func (h Handle) ID() string { return h.j.id }

// Status returns the job's current phase, progress (0-100), and terminal
// error if any.
func (h Handle) Status() (coretypes.JobPhase, int, error) {
	h.j.mu.Lock()
	defer h.j.mu.Unlock()
	return h.j.phase, h.j.progress, h.j.err
}

// Cancel requests cancellation. Queued jobs are canceled immediately;
// running jobs are asked to cooperate via context cancellation at their next
// checkpoint.
func (h Handle) Cancel() {
	h.j.mu.Lock()
	defer h.j.mu.Unlock()
	switch h.j.phase {
	case coretypes.JobQueued:
		h.j.phase = coretypes.JobCanceled
		close(h.j.done)
	case coretypes.JobRunning:
		if h.j.cancel != nil {
			h.j.cancel()
		}
	}
}

// Wait blocks until the job reaches a terminal phase or ctx is done.
func (h Handle) Wait(ctx context.Context) error {
	select {
	case <-h.j.done:
		_, _, err := h.Status()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config tunes admission control and starvation protection.
type Config struct {
	GPUSlots      int            // default 1
	LLMSlots      int            // default 2
	TotalSlots    int            // default 4
	QueueCapacity int            // default 256; Submit returns queue_full beyond this
	MaxWaitBoost  time.Duration  // default 30s
	MinGPUFreeGB  float64        // default 0.5
	GPUFreeGBFunc func() float64 // reports currently free GPU memory; nil disables the floor check
}

func (c Config) withDefaults() Config {
	if c.GPUSlots <= 0 {
		c.GPUSlots = 1
	}
	if c.LLMSlots <= 0 {
		c.LLMSlots = 2
	}
	if c.TotalSlots <= 0 {
		c.TotalSlots = 4
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 256
	}
	if c.MaxWaitBoost <= 0 {
		c.MaxWaitBoost = 30 * time.Second
	}
	if c.MinGPUFreeGB <= 0 {
		c.MinGPUFreeGB = 0.5
	}
	return c
}

// Queue is the C5 Job Queue: a priority heap gating admission through
// per-class weighted semaphores plus an overall concurrency cap.
type Queue struct {
	cfg Config

	gpuSem   *semaphore.Weighted
	llmSem   *semaphore.Weighted
	totalSem *semaphore.Weighted

	mu sync.Mutex
	// heap holds entries still waiting for admission. inFlight additionally
	// tracks running jobs, so its size is the true backpressure signal:
	// QueueCapacity bounds queued-plus-running jobs, not just the waiting
	// queue.
	heap     jobHeap
	seq      uint64
	inFlight map[string]struct{}
	jobs     map[string]*job
	closed   bool

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Queue and starts its dispatch and promotion goroutines.
// Call Close to stop them and drain queued jobs as canceled.
func New(cfg Config) *Queue {
	cfg = cfg.withDefaults()
	q := &Queue{
		cfg:      cfg,
		gpuSem:   semaphore.NewWeighted(int64(cfg.GPUSlots)),
		llmSem:   semaphore.NewWeighted(int64(cfg.LLMSlots)),
		totalSem: semaphore.NewWeighted(int64(cfg.TotalSlots)),
		inFlight: make(map[string]struct{}),
		jobs:     make(map[string]*job),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	heap.Init(&q.heap)
	q.wg.Add(2)
	go q.dispatchLoop()
	go q.promotionLoop()
	return q
}

// SubmitInput describes a job to enqueue.
type SubmitInput struct {
	Class       coretypes.ResourceClass
	Priority    coretypes.Priority
	GPUMemoryGB float64 // estimated memory need for gpu-class jobs
	Work        Work
}

// Submit enqueues a job and returns a Handle. It fails with
// apperr.KindResourceExhausted ("queue_full") once QueueCapacity jobs are
// already queued or running.
func (q *Queue) Submit(in SubmitInput) (Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Handle{}, apperr.New(apperr.KindInvalidInput, "queue is closed")
	}
	if len(q.inFlight) >= q.cfg.QueueCapacity {
		return Handle{}, apperr.New(apperr.KindResourceExhausted, "queue_full")
	}

	j := &job{
		id:       uuid.NewString(),
		class:    in.Class,
		gpuMemGB: in.GPUMemoryGB,
		work:     in.Work,
		phase:    coretypes.JobQueued,
		done:     make(chan struct{}),
	}
	q.seq++
	e := &entry{
		job:      j,
		priority: in.Priority,
		seq:      q.seq,
		enqueued: time.Now(),
	}
	heap.Push(&q.heap, e)
	q.inFlight[j.id] = struct{}{}
	q.jobs[j.id] = j

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return Handle{j: j}, nil
}

// Lookup returns the Handle for a previously submitted job id. It remains
// valid after the job finishes so callers can poll terminal status.
func (q *Queue) Lookup(id string) (Handle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return Handle{}, false
	}
	return Handle{j: j}, true
}

// Close stops the dispatch and promotion goroutines, canceling any jobs
// still queued. Running jobs are neither canceled nor waited for; callers
// that need a clean drain should Cancel and Wait on outstanding handles
// first.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for q.heap.Len() > 0 {
		e := heap.Pop(&q.heap).(*entry)
		e.job.mu.Lock()
		if e.job.phase == coretypes.JobQueued {
			e.job.phase = coretypes.JobCanceled
			close(e.job.done)
		}
		e.job.mu.Unlock()
		delete(q.inFlight, e.job.id)
	}
	close(q.done)
	q.mu.Unlock()
	q.wg.Wait()
}

// dispatchLoop pops the highest-priority admissible job and runs it on its
// own goroutine, respecting per-class and total slot limits.
func (q *Queue) dispatchLoop() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case <-q.notify:
		case <-time.After(50 * time.Millisecond):
		}
		q.drainAdmissible()
	}
}

func (q *Queue) drainAdmissible() {
	for {
		q.mu.Lock()
		if q.closed || q.heap.Len() == 0 {
			q.mu.Unlock()
			return
		}
		e := q.heap[0]

		e.job.mu.Lock()
		alreadyCanceled := e.job.phase == coretypes.JobCanceled
		e.job.mu.Unlock()
		if alreadyCanceled {
			heap.Pop(&q.heap)
			delete(q.inFlight, e.job.id)
			q.mu.Unlock()
			continue
		}

		classSem := q.classSemaphore(e.job.class)
		if !q.tryAdmit(e, classSem) {
			q.mu.Unlock()
			return
		}
		heap.Pop(&q.heap)
		q.mu.Unlock()

		q.run(e, classSem)
	}
}

func (q *Queue) classSemaphore(class coretypes.ResourceClass) *semaphore.Weighted {
	switch class {
	case coretypes.ResourceGPU:
		return q.gpuSem
	case coretypes.ResourceLLM:
		return q.llmSem
	default:
		return nil
	}
}

// tryAdmit checks the GPU memory floor and acquires both the class and
// total slots for e in one atomic-looking step (single dispatch goroutine,
// so no other admitter can interleave). On success the semaphores remain
// held until run's worker goroutine releases them. Must be called with
// q.mu held.
func (q *Queue) tryAdmit(e *entry, classSem *semaphore.Weighted) bool {
	if e.job.class == coretypes.ResourceGPU && q.cfg.GPUFreeGBFunc != nil {
		if q.cfg.GPUFreeGBFunc() < q.cfg.MinGPUFreeGB {
			return false
		}
	}
	if classSem != nil && !classSem.TryAcquire(1) {
		return false
	}
	if !q.totalSem.TryAcquire(1) {
		if classSem != nil {
			classSem.Release(1)
		}
		return false
	}
	return true
}

func (q *Queue) run(e *entry, classSem *semaphore.Weighted) {
	j := e.job
	ctx, cancel := context.WithCancel(context.Background())
	j.mu.Lock()
	j.phase = coretypes.JobRunning
	j.cancel = cancel
	j.mu.Unlock()

	go func() {
		defer cancel()
		defer q.totalSem.Release(1)
		if classSem != nil {
			defer classSem.Release(1)
		}

		err := j.work(ctx)

		q.mu.Lock()
		delete(q.inFlight, j.id)
		q.mu.Unlock()
		select {
		case q.notify <- struct{}{}:
		default:
		}

		j.mu.Lock()
		defer j.mu.Unlock()
		if j.phase == coretypes.JobCanceled {
			return
		}
		switch {
		case ctx.Err() != nil:
			j.phase = coretypes.JobCanceled
		case err != nil:
			j.phase = coretypes.JobFailed
			j.err = err
		default:
			j.phase = coretypes.JobCompleted
			j.progress = 100
		}
		close(j.done)
	}()
}

// promotionLoop scans the queue for jobs waiting longer than MaxWaitBoost
// and promotes them one tier, cumulatively up to high.
func (q *Queue) promotionLoop() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.cfg.MaxWaitBoost / 2)
	defer ticker.Stop()
	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
		}
		q.promoteStale()
	}
}

func (q *Queue) promoteStale() {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	changed := false
	for _, e := range q.heap {
		if e.priority >= coretypes.PriorityHigh {
			continue
		}
		if now.Sub(e.enqueued) >= q.cfg.MaxWaitBoost*time.Duration(e.promotions+1) {
			e.priority++
			e.promotions++
			changed = true
		}
	}
	if changed {
		heap.Init(&q.heap)
	}
}
