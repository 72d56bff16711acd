package jobqueue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/claimwright/internal/jobqueue"
	"github.com/MrWong99/claimwright/pkg/coretypes"
)

func TestSubmit_RunsAndCompletes(t *testing.T) {
	q := jobqueue.New(jobqueue.Config{})
	defer q.Close()

	var ran atomic.Bool
	h, err := q.Submit(jobqueue.SubmitInput{
		Class:    coretypes.ResourceCPU,
		Priority: coretypes.PriorityNormal,
		Work: func(ctx context.Context) error {
			ran.Store(true)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ran.Load() {
		t.Fatal("work was never invoked")
	}
	phase, progress, jerr := h.Status()
	if phase != coretypes.JobCompleted {
		t.Fatalf("phase = %s, want completed", phase)
	}
	if progress != 100 {
		t.Fatalf("progress = %d, want 100", progress)
	}
	if jerr != nil {
		t.Fatalf("unexpected job error: %v", jerr)
	}
}

func TestSubmit_FailureSurfacesOnHandle(t *testing.T) {
	q := jobqueue.New(jobqueue.Config{})
	defer q.Close()

	wantErr := errors.New("boom")
	h, err := q.Submit(jobqueue.SubmitInput{
		Class: coretypes.ResourceCPU,
		Work: func(ctx context.Context) error {
			return wantErr
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Wait(ctx); !errors.Is(err, wantErr) {
		t.Fatalf("Wait returned %v, want %v", err, wantErr)
	}
	phase, _, _ := h.Status()
	if phase != coretypes.JobFailed {
		t.Fatalf("phase = %s, want failed", phase)
	}
}

func TestSubmit_GPUSlotLimitsConcurrency(t *testing.T) {
	q := jobqueue.New(jobqueue.Config{GPUSlots: 1, TotalSlots: 4})
	defer q.Close()

	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		h, err := q.Submit(jobqueue.SubmitInput{
			Class:    coretypes.ResourceGPU,
			Priority: coretypes.PriorityNormal,
			Work: func(ctx context.Context) error {
				n := concurrent.Add(1)
				for {
					old := maxConcurrent.Load()
					if n <= old || maxConcurrent.CompareAndSwap(old, n) {
						break
					}
				}
				<-release
				concurrent.Add(-1)
				return nil
			},
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = h.Wait(ctx)
		}()
	}

	time.Sleep(200 * time.Millisecond)
	if got := maxConcurrent.Load(); got > 1 {
		t.Fatalf("observed %d concurrent gpu jobs, want at most 1", got)
	}
	close(release)
	wg.Wait()
}

func TestSubmit_QueueFullRejectsBeyondCapacity(t *testing.T) {
	q := jobqueue.New(jobqueue.Config{TotalSlots: 1, QueueCapacity: 1})
	defer q.Close()

	block := make(chan struct{})
	first, err := q.Submit(jobqueue.SubmitInput{
		Class: coretypes.ResourceCPU,
		Work: func(ctx context.Context) error {
			<-block
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	time.Sleep(50 * time.Millisecond) // let dispatch pick up the running job

	_, err = q.Submit(jobqueue.SubmitInput{Class: coretypes.ResourceCPU, Work: func(ctx context.Context) error { return nil }})
	if err == nil {
		t.Fatal("expected queue_full error, got nil")
	}

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = first.Wait(ctx)
}

func TestCancel_QueuedJobNeverRuns(t *testing.T) {
	q := jobqueue.New(jobqueue.Config{TotalSlots: 1})
	defer q.Close()

	block := make(chan struct{})
	busy, err := q.Submit(jobqueue.SubmitInput{
		Class: coretypes.ResourceCPU,
		Work: func(ctx context.Context) error {
			<-block
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit busy: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	var ran atomic.Bool
	queued, err := q.Submit(jobqueue.SubmitInput{
		Class: coretypes.ResourceCPU,
		Work: func(ctx context.Context) error {
			ran.Store(true)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit queued: %v", err)
	}
	queued.Cancel()

	phase, _, _ := queued.Status()
	if phase != coretypes.JobCanceled {
		t.Fatalf("phase = %s, want canceled", phase)
	}

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = busy.Wait(ctx)

	time.Sleep(100 * time.Millisecond)
	if ran.Load() {
		t.Fatal("canceled job ran despite being canceled while queued")
	}
}

func TestCancel_RunningJobObservesContext(t *testing.T) {
	q := jobqueue.New(jobqueue.Config{})
	defer q.Close()

	started := make(chan struct{})
	h, err := q.Submit(jobqueue.SubmitInput{
		Class: coretypes.ResourceCPU,
		Work: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started
	h.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = h.Wait(ctx)
	phase, _, _ := h.Status()
	if phase != coretypes.JobCanceled {
		t.Fatalf("phase = %s, want canceled", phase)
	}
}

func TestPriority_HighRunsBeforeLowWhenSlotContended(t *testing.T) {
	q := jobqueue.New(jobqueue.Config{TotalSlots: 1})
	defer q.Close()

	block := make(chan struct{})
	busy, err := q.Submit(jobqueue.SubmitInput{
		Class: coretypes.ResourceCPU,
		Work:  func(ctx context.Context) error { <-block; return nil },
	})
	if err != nil {
		t.Fatalf("Submit busy: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	var mu sync.Mutex
	var order []string

	lowHandle, err := q.Submit(jobqueue.SubmitInput{
		Class:    coretypes.ResourceCPU,
		Priority: coretypes.PriorityLow,
		Work: func(ctx context.Context) error {
			mu.Lock()
			order = append(order, "low")
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit low: %v", err)
	}
	highHandle, err := q.Submit(jobqueue.SubmitInput{
		Class:    coretypes.ResourceCPU,
		Priority: coretypes.PriorityHigh,
		Work: func(ctx context.Context) error {
			mu.Lock()
			order = append(order, "high")
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit high: %v", err)
	}

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = busy.Wait(ctx)
	_ = lowHandle.Wait(ctx)
	_ = highHandle.Wait(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Fatalf("execution order = %v, want [high low]", order)
	}
}
