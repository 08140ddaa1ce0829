package cellgraph

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAction_InvokeReturnsResultThroughFuture(t *testing.T) {
	rt := NewRuntime()
	a := NewActionOnRuntime(rt, "", func(ctx context.Context, in int, abort AbortToken) (int, error) {
		return in * 2, nil
	})

	f := a.Invoke(context.Background(), 21)
	got, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestAction_SerialQueueRunsNamedInvocationsOneAtATime(t *testing.T) {
	rt := NewRuntime()
	a, err := newNamedActionOnRuntime(rt, "serial", func(ctx context.Context, in int, abort AbortToken) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return in, nil
	})
	if err != nil {
		t.Fatalf("unexpected error constructing action: %v", err)
	}

	var mu sync.Mutex
	concurrent := 0
	maxConcurrent := 0
	var order []int
	wrapped := func(ctx context.Context, in int, abort AbortToken) (int, error) {
		mu.Lock()
		concurrent++
		if concurrent > maxConcurrent {
			maxConcurrent = concurrent
		}
		order = append(order, in)
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		concurrent--
		mu.Unlock()
		return in, nil
	}
	a.body = wrapped

	// Invoke is called from this single goroutine in strict order 0..4
	// before any of them are waited on, so a correct FIFO queue must
	// admit them to the body in that same order.
	futures := make([]*Future[int], 5)
	for i := 0; i < 5; i++ {
		futures[i] = a.Invoke(context.Background(), i)
	}
	for _, f := range futures {
		f.Wait(context.Background())
	}

	if maxConcurrent > 1 {
		t.Fatalf("expected SerialQueue to serialize invocations, observed %d concurrent", maxConcurrent)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected strict FIFO call order 0,1,2,3,4, got %v", order)
		}
	}
}

func TestAction_DropPreviousCancelsInFlightInvocation(t *testing.T) {
	rt := NewRuntime()
	started := make(chan struct{})
	a := NewActionOnRuntime(rt, "", func(ctx context.Context, in int, abort AbortToken) (int, error) {
		if in != 1 {
			return in, nil
		}
		close(started)
		<-abort.Done()
		return 0, abort.Err()
	}, WithConcurrencyPolicy[int, int](DropPrevious))

	first := a.Invoke(context.Background(), 1)
	<-started
	second := a.Invoke(context.Background(), 2)

	_, err := first.Wait(context.Background())
	if err == nil {
		t.Fatalf("expected the first invocation to resolve with an error after being dropped")
	}
	if _, ok := err.(*ConcurrentActionCancelled); !ok {
		t.Fatalf("expected *ConcurrentActionCancelled, got %T: %v", err, err)
	}

	got, err := second.Wait(context.Background())
	if err != nil {
		t.Fatalf("expected the second invocation to succeed, got %v", err)
	}
	_ = got
}

func TestFuture_WaitRespectsContextCancellation(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	if err == nil {
		t.Fatalf("expected a context deadline error, future never resolves")
	}
}

func TestRunParallel_CollectsAllResultsAndErrors(t *testing.T) {
	rt := NewRuntime()
	double := NewActionOnRuntime(rt, "", func(ctx context.Context, in int, abort AbortToken) (int, error) {
		return in * 2, nil
	})

	calls := make([]func() *Future[int], 3)
	for i := 0; i < 3; i++ {
		i := i
		calls[i] = func() *Future[int] { return double.Invoke(context.Background(), i) }
	}

	results, errs := RunParallel(context.Background(), calls, false)
	for i, r := range results {
		if errs[i] != nil {
			t.Fatalf("unexpected error at %d: %v", i, errs[i])
		}
		if r != i*2 {
			t.Fatalf("expected %d, got %d", i*2, r)
		}
	}
}
