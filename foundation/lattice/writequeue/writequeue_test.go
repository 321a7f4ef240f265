package writequeue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// waitFor polls until the queue has n waiters.
func waitFor(t *testing.T, q *writequeue.Queue, n int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for q.Waiting() != n {
		if time.Now().After(deadline) {
			t.Fatalf("\t%s\tShould see %d waiters, got %d.", failed, n, q.Waiting())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestExclusive(t *testing.T) {
	t.Log("Given the need to allow a single writer at a time.")
	{
		q := writequeue.New(writequeue.Config{})

		g := q.Wait(writequeue.BlockProcessor)
		if !q.Contains(writequeue.BlockProcessor) {
			t.Fatalf("\t%s\tShould report the owner as contained.", failed)
		}
		t.Logf("\t%s\tShould report the owner as contained.", success)

		if _, ok := q.TryAcquire(writequeue.Pruning); ok {
			t.Fatalf("\t%s\tShould not hand out a second guard.", failed)
		}
		t.Logf("\t%s\tShould not hand out a second guard.", success)

		g.Release()
		g.Release()

		if q.Contains(writequeue.BlockProcessor) || g.IsOwned() {
			t.Fatalf("\t%s\tShould release the guard.", failed)
		}
		t.Logf("\t%s\tShould release the guard, even when released twice.", success)

		g2, ok := q.TryAcquire(writequeue.Pruning)
		if !ok {
			t.Fatalf("\t%s\tShould hand out the guard once free.", failed)
		}
		defer g2.Release()
		t.Logf("\t%s\tShould hand out the guard once free.", success)
	}
}

func TestPriority(t *testing.T) {
	t.Log("Given the need to serve higher priority writers first.")
	{
		q := writequeue.New(writequeue.Config{MaxSkips: 100})
		g := q.Wait(writequeue.Testing)

		var mu sync.Mutex
		var order []writequeue.Writer
		var wg sync.WaitGroup

		for i, w := range []writequeue.Writer{writequeue.Pruning, writequeue.Bootstrap, writequeue.BlockProcessor} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				guard := q.Wait(w)
				mu.Lock()
				order = append(order, guard.Writer())
				mu.Unlock()
				guard.Release()
			}()
			waitFor(t, q, i+1)
		}

		g.Release()
		wg.Wait()

		exp := []writequeue.Writer{writequeue.BlockProcessor, writequeue.Bootstrap, writequeue.Pruning}
		for i := range exp {
			if order[i] != exp[i] {
				t.Fatalf("\t%s\tShould serve by priority: got %v", failed, order)
			}
		}
		t.Logf("\t%s\tShould serve by priority.", success)
	}
}

func TestStarvation(t *testing.T) {
	t.Log("Given the need to bound how long a low priority writer waits.")
	{
		const maxSkips = 2
		q := writequeue.New(writequeue.Config{MaxSkips: maxSkips})
		g := q.Wait(writequeue.BlockProcessor)

		pruned := make(chan struct{})
		go func() {
			guard := q.Wait(writequeue.Pruning)
			close(pruned)
			guard.Release()
		}()
		waitFor(t, q, 1)

		// Keep a high priority writer waiting on every hand over.
		for served := 0; served < 10; served++ {
			next := make(chan *writequeue.Guard)
			go func() { next <- q.Wait(writequeue.BlockProcessor) }()
			waitFor(t, q, 2)

			g.Release()

			// When the starved writer is served the new waiter only gets
			// the guard after it, so pruned is closed by then.
			got := <-next
			select {
			case <-pruned:
				got.Release()
				if served != maxSkips {
					t.Fatalf("\t%s\tShould serve it after exactly %d skips, got %d.", failed, maxSkips, served)
				}
				t.Logf("\t%s\tShould serve the starved writer after %d skips.", success, served)
				return
			default:
			}
			g = got
		}

		t.Fatalf("\t%s\tShould eventually serve the starved writer.", failed)
	}
}

func TestWaitContext(t *testing.T) {
	t.Log("Given the need to give up waiting for the guard.")
	{
		q := writequeue.New(writequeue.Config{})
		g := q.Wait(writequeue.BlockProcessor)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if _, err := q.WaitContext(ctx, writequeue.Pruning); err == nil {
			t.Fatalf("\t%s\tShould return an error when the context expires.", failed)
		}
		t.Logf("\t%s\tShould return an error when the context expires.", success)

		if q.Contains(writequeue.Pruning) {
			t.Fatalf("\t%s\tShould remove the abandoned waiter.", failed)
		}
		t.Logf("\t%s\tShould remove the abandoned waiter.", success)

		g.Release()

		if _, ok := q.TryAcquire(writequeue.Voting); !ok {
			t.Fatalf("\t%s\tShould leave the guard free.", failed)
		}
		t.Logf("\t%s\tShould leave the guard free.", success)
	}
}
