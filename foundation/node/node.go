// Package node ties the ledger core together for a running service: the
// store, the ledger, the write queue, the online weight tracker and the
// background workers that keep them current.
package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/genesis"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/metrics"
	"github.com/ardanlabs/lattice/foundation/lattice/repweights"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
)

// ErrShutdown is returned by writes requested after Shutdown.
var ErrShutdown = errors.New("node is shutting down")

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler = ledger.EventHandler

// Config represents the configuration required to start the node.
type Config struct {
	Store         *store.Store
	Genesis       genesis.Genesis
	WeightPeriod  time.Duration
	MaxSamples    int
	MaxSkips      int
	PruneInterval time.Duration
	PruneBatch    uint64
	EvHandler     EventHandler
	Now           func() time.Time
}

// Node manages the ledger for the service layer.
type Node struct {
	store     *store.Store
	ledger    *ledger.Ledger
	online    *repweights.Online
	queue     *writequeue.Queue
	evHandler EventHandler
	now       func() time.Time

	mu    deadlock.Mutex
	votes map[types.BlockHash]map[types.Account]struct{}

	worker *worker
}

// New constructs the node, opens the ledger over the store and starts the
// background workers.
func New(cfg Config) (*Node, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	queue := writequeue.New(writequeue.Config{
		MaxSkips: cfg.MaxSkips,
		Observer: metrics.NewWriteQueue(),
	})

	weights := repweights.NewCache()

	ldgr, err := ledger.New(ledger.Config{
		Store:     cfg.Store,
		Genesis:   cfg.Genesis,
		Weights:   weights,
		Queue:     queue,
		Metrics:   metrics.NewLedger(cfg.Genesis.Network),
		EvHandler: ev,
		Now:       cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	online := repweights.NewOnline(repweights.Config{
		QuorumPercent:       cfg.Genesis.Quorum.Percent,
		OnlineWeightMinimum: cfg.Genesis.Quorum.OnlineWeightMinimum,
		WeightPeriod:        cfg.WeightPeriod,
		MaxSamples:          cfg.MaxSamples,
		Now:                 cfg.Now,
		Observer:            metrics.NewQuorum(cfg.Genesis.Network),
	}, weights, cfg.Store)

	if err := cfg.Store.View(online.Load); err != nil {
		return nil, fmt.Errorf("load online weight samples: %w", err)
	}

	n := Node{
		store:     cfg.Store,
		ledger:    ldgr,
		online:    online,
		queue:     queue,
		evHandler: ev,
		now:       cfg.Now,
		votes:     make(map[types.BlockHash]map[types.Account]struct{}),
	}

	ldgr.AddObserver(&n)

	n.worker = runWorker(&n, workerConfig{
		samplePeriod:  online.Period(),
		pruneInterval: cfg.PruneInterval,
		pruneBatch:    cfg.PruneBatch,
	})

	ev("node: Started: genesis[%s] network[%s] reps[%d]", cfg.Genesis.Hash(), cfg.Genesis.Network, weights.Len())

	return &n, nil
}

// Shutdown stops the workers and closes the store.
func (n *Node) Shutdown() error {
	n.evHandler("node: Shutdown: started")
	defer n.evHandler("node: Shutdown: completed")

	n.worker.shutdown()

	// Wait for any outstanding writer to finish before closing.
	guard := n.queue.Wait(writequeue.BlockProcessor)
	defer guard.Release()

	return n.store.Close()
}

// Ledger returns the underlying ledger.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Genesis returns the genesis the ledger was opened with.
func (n *Node) Genesis() genesis.Genesis {
	return n.ledger.Genesis()
}

// =============================================================================
// These methods implement the ledger.Observer interface.

// BlockProcessed is called after a block is committed.
func (n *Node) BlockProcessed(sb block.SavedBlock) {
	n.evHandler("node: BlockProcessed: account[%s] hash[%s] height[%d]", sb.Account().Address(), sb.Hash(), sb.Height())
}

// BlocksRolledBack drops the votes collected for the removed blocks.
func (n *Node) BlocksRolledBack(hashes []types.BlockHash) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, hash := range hashes {
		delete(n.votes, hash)
	}
}
