package node

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
)

// defaultPruneBatch bounds the blocks pruned per account in one pass.
const defaultPruneBatch = 1024

type workerConfig struct {
	samplePeriod  time.Duration
	pruneInterval time.Duration
	pruneBatch    uint64
}

// worker manages the goroutines that sample the online weight and prune
// cemented blocks on a timer.
type worker struct {
	node *Node
	cfg  workerConfig
	wg   sync.WaitGroup
	shut chan struct{}
}

// runWorker creates a worker and starts up all the background processes.
func runWorker(n *Node, cfg workerConfig) *worker {
	if cfg.pruneBatch == 0 {
		cfg.pruneBatch = defaultPruneBatch
	}

	w := worker{
		node: n,
		cfg:  cfg,
		shut: make(chan struct{}),
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.sampleOperations,
	}
	if cfg.pruneInterval > 0 {
		operations = append(operations, w.pruneOperations)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	return &w
}

// shutdown terminates the goroutines performing work.
func (w *worker) shutdown() {
	w.node.evHandler("worker: shutdown: started")
	defer w.node.evHandler("worker: shutdown: completed")

	w.node.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// =============================================================================

// sampleOperations persists an online weight sample every weight period.
func (w *worker) sampleOperations() {
	w.node.evHandler("worker: sampleOperations: G started")
	defer w.node.evHandler("worker: sampleOperations: G completed")

	ticker := time.NewTicker(w.cfg.samplePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runSampleOperation()
			}
		case <-w.shut:
			w.node.evHandler("worker: sampleOperations: received shut signal")
			return
		}
	}
}

// runSampleOperation writes one online weight sample.
func (w *worker) runSampleOperation() {
	guard := w.node.queue.Wait(writequeue.Voting)
	defer guard.Release()

	var online types.Amount
	err := w.node.store.Update(func(txn store.WriteTxn) error {
		var err error
		online, err = w.node.online.Sample(txn)
		return err
	})
	if err != nil {
		w.node.evHandler("worker: runSampleOperation: ERROR: %s", err)
		return
	}

	w.node.evHandler("worker: runSampleOperation: online[%s] trended[%s]", online, w.node.online.TrendedWeight())
}

// =============================================================================

// pruneOperations prunes below every confirmed frontier on the interval.
func (w *worker) pruneOperations() {
	w.node.evHandler("worker: pruneOperations: G started")
	defer w.node.evHandler("worker: pruneOperations: G completed")

	ticker := time.NewTicker(w.cfg.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runPruneOperation()
			}
		case <-w.shut:
			w.node.evHandler("worker: pruneOperations: received shut signal")
			return
		}
	}
}

// runPruneOperation walks the confirmation heights and prunes each chain.
func (w *worker) runPruneOperation() {
	var frontiers []types.BlockHash
	err := w.node.store.View(func(txn store.ReadTxn) error {
		return w.node.store.ConfirmationHeight.ForEach(txn, func(_ types.Account, ch types.ConfirmationHeightInfo) error {
			if ch.Height > 1 {
				frontiers = append(frontiers, ch.Frontier)
			}
			return nil
		})
	})
	if err != nil {
		w.node.evHandler("worker: runPruneOperation: ERROR: %s", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	var total uint64
	for _, frontier := range frontiers {
		if w.isShutdown() {
			break
		}

		pruned, err := w.node.Prune(ctx, frontier, w.cfg.pruneBatch)
		if err != nil {
			w.node.evHandler("worker: runPruneOperation: frontier[%s]: ERROR: %s", frontier, err)
			continue
		}
		total += pruned
	}

	w.node.evHandler("worker: runPruneOperation: accounts[%d] pruned[%d]", len(frontiers), total)
}
