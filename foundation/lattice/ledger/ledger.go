// Package ledger is the core API of the block lattice. It validates and
// applies blocks, rolls back account heads, cements and prunes confirmed
// blocks and answers queries through confirmed and unconfirmed views.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/epochs"
	"github.com/ardanlabs/lattice/foundation/lattice/genesis"
	"github.com/ardanlabs/lattice/foundation/lattice/metrics"
	"github.com/ardanlabs/lattice/foundation/lattice/repweights"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
)

// Set of error variables for ledger failures. These are fatal to the
// operation that returns them, unlike validator rejections.
var (
	ErrRollbackConfirmed = errors.New("block is confirmed and can't be rolled back")
	ErrBlockNotFound     = errors.New("block not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrCorrupt           = errors.New("ledger state is corrupt")
	ErrGenesisMismatch   = errors.New("store was initialized with another genesis")
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=ledger_test

// Observer is notified after a transaction that changed the set of blocks
// commits.
type Observer interface {
	BlockProcessed(sb block.SavedBlock)
	BlocksRolledBack(hashes []types.BlockHash)
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Store     *store.Store
	Genesis   genesis.Genesis
	Weights   *repweights.Cache
	Queue     *writequeue.Queue
	Metrics   *metrics.Ledger
	EvHandler EventHandler
	Now       func() time.Time
}

// Ledger manages the account chains held in the store.
type Ledger struct {
	store     *store.Store
	genesis   genesis.Genesis
	epochs    *epochs.Epochs
	weights   *repweights.Cache
	queue     *writequeue.Queue
	metrics   *metrics.Ledger
	evHandler EventHandler
	now       func() time.Time

	mu        deadlock.RWMutex
	observers []Observer
}

// New constructs the ledger. An empty store is seeded with the genesis block
// and the representative weights are loaded into the cache.
func New(cfg Config) (*Ledger, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}

	table, err := cfg.Genesis.EpochTable()
	if err != nil {
		return nil, fmt.Errorf("epochs: %w", err)
	}

	if cfg.Weights == nil {
		cfg.Weights = repweights.NewCache()
	}
	if cfg.Queue == nil {
		cfg.Queue = writequeue.New(writequeue.Config{})
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewLedger(cfg.Genesis.Network)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := Ledger{
		store:     cfg.Store,
		genesis:   cfg.Genesis,
		epochs:    table,
		weights:   cfg.Weights,
		queue:     cfg.Queue,
		metrics:   cfg.Metrics,
		evHandler: ev,
		now:       cfg.Now,
	}

	if err := l.initialize(); err != nil {
		return nil, err
	}

	if err := l.loadWeights(); err != nil {
		return nil, err
	}

	ev("ledger: New: network[%s] genesis[%s] reps[%d]", cfg.Genesis.Network, cfg.Genesis.Hash(), l.weights.Len())

	return &l, nil
}

// initialize writes the genesis state on an empty store and checks a used
// store belongs to the same genesis.
func (l *Ledger) initialize() error {
	guard := l.queue.Wait(writequeue.BlockProcessor)
	defer guard.Release()

	return l.store.Update(func(txn store.WriteTxn) error {
		version, err := l.store.Version(txn)
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}

		if version != 0 {
			if version != store.SchemaVersion {
				return fmt.Errorf("store schema version %d, want %d", version, store.SchemaVersion)
			}

			data, err := l.store.Meta.Get(txn, store.MetaGenesis)
			if err != nil {
				return fmt.Errorf("read genesis: %w", err)
			}
			hash, err := store.HashCodec{}.Decode(data)
			if err != nil {
				return fmt.Errorf("%w: genesis hash: %w", ErrCorrupt, err)
			}
			if hash != l.genesis.Hash() {
				return ErrGenesisMismatch
			}

			return nil
		}

		return l.writeGenesis(txn)
	})
}

func (l *Ledger) writeGenesis(txn store.WriteTxn) error {
	open := l.genesis.Open()
	if open == nil {
		return errors.New("genesis block must be an open block")
	}

	hash := open.Hash()
	account := l.genesis.Account()
	date := uint64(l.genesis.Date.Unix())

	sb := block.SavedBlock{
		Block: open,
		Sideband: block.Sideband{
			Height:         1,
			Timestamp:      date,
			Account:        account,
			Representative: open.Representative,
			Balance:        l.genesis.Supply,
		},
	}
	if err := l.store.Blocks.Put(txn, hash, sb); err != nil {
		return fmt.Errorf("put genesis block: %w", err)
	}

	info := types.AccountInfo{
		Head:           hash,
		Representative: open.Representative,
		OpenBlock:      hash,
		Balance:        l.genesis.Supply,
		Modified:       date,
		BlockCount:     1,
	}
	if err := l.store.Accounts.Put(txn, account, info); err != nil {
		return fmt.Errorf("put genesis account: %w", err)
	}

	ch := types.ConfirmationHeightInfo{Height: 1, Frontier: hash}
	if err := l.store.ConfirmationHeight.Put(txn, account, ch); err != nil {
		return fmt.Errorf("put genesis confirmation height: %w", err)
	}

	if err := l.store.RepWeights.Put(txn, open.Representative, l.genesis.Supply); err != nil {
		return fmt.Errorf("put genesis weight: %w", err)
	}

	if err := l.store.SetVersion(txn, store.SchemaVersion); err != nil {
		return fmt.Errorf("put version: %w", err)
	}

	if err := l.store.Meta.Put(txn, store.MetaGenesis, hash[:]); err != nil {
		return fmt.Errorf("put genesis hash: %w", err)
	}

	l.evHandler("ledger: writeGenesis: account[%s] hash[%s] supply[%s]", account.Address(), hash, l.genesis.Supply)

	return nil
}

// loadWeights fills the cache from the rep weights table.
func (l *Ledger) loadWeights() error {
	return l.store.View(func(txn store.ReadTxn) error {
		return l.store.RepWeights.ForEach(txn, func(rep types.Account, weight types.Amount) error {
			l.weights.Put(rep, weight)
			return nil
		})
	})
}

// =============================================================================

// AddObserver registers an observer for block changes.
func (l *Ledger) AddObserver(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observers = append(l.observers, o)
}

func (l *Ledger) notifyProcessed(sb block.SavedBlock) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, o := range l.observers {
		o.BlockProcessed(sb)
	}
}

func (l *Ledger) notifyRolledBack(hashes []types.BlockHash) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, o := range l.observers {
		o.BlocksRolledBack(hashes)
	}
}

// =============================================================================

// Store returns the underlying store.
func (l *Ledger) Store() *store.Store {
	return l.store
}

// Genesis returns the genesis the ledger was started with.
func (l *Ledger) Genesis() genesis.Genesis {
	return l.genesis
}

// Epochs returns the epoch table.
func (l *Ledger) Epochs() *epochs.Epochs {
	return l.epochs
}

// Queue returns the write queue guarding the store.
func (l *Ledger) Queue() *writequeue.Queue {
	return l.queue
}

// Weight returns the cached weight of the representative.
func (l *Ledger) Weight(rep types.Account) types.Amount {
	return l.weights.Weight(rep)
}

// Weights returns a copy of every representative weight.
func (l *Ledger) Weights() map[types.Account]types.Amount {
	return l.weights.Copy()
}

// WeightExact reads the representative weight from the transaction.
func (l *Ledger) WeightExact(txn store.ReadTxn, rep types.Account) (types.Amount, error) {
	weight, err := l.store.RepWeights.Get(txn, rep)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.ZeroAmount, nil
		}
		return types.Amount{}, err
	}
	return weight, nil
}

// =============================================================================

// applyWeights writes the deltas to the rep weights table and mirrors them
// into the cache once the transaction commits.
func (l *Ledger) applyWeights(txn store.WriteTxn, deltas []repweights.Delta) error {
	for _, d := range deltas {
		cur, err := l.WeightExact(txn, d.Rep)
		if err != nil {
			return fmt.Errorf("read weight: %w", err)
		}

		next, err := repweights.ApplyDelta(cur, d)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		if next.IsZero() {
			err = l.store.RepWeights.Del(txn, d.Rep)
		} else {
			err = l.store.RepWeights.Put(txn, d.Rep, next)
		}
		if err != nil {
			return fmt.Errorf("write weight: %w", err)
		}
	}

	if len(deltas) == 0 {
		return nil
	}

	txn.OnCommit(func() {
		if err := l.weights.Apply(deltas...); err != nil {
			l.evHandler("ledger: applyWeights: ERROR: %s", err)
		}
	})

	return nil
}

// confirmationHeight returns the cemented height of the account, zero when
// nothing is cemented.
func (l *Ledger) confirmationHeight(txn store.ReadTxn, account types.Account) (types.ConfirmationHeightInfo, error) {
	ch, err := l.store.ConfirmationHeight.Get(txn, account)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.ConfirmationHeightInfo{}, nil
		}
		return types.ConfirmationHeightInfo{}, err
	}
	return ch, nil
}

// representativeAt returns the representative of the account as of the
// block. It reads the sideband so history below the block may be pruned.
func (l *Ledger) representativeAt(sb block.SavedBlock) (types.Account, error) {
	rep := sb.Sideband.Representative
	if rep.IsZero() {
		return types.Account{}, fmt.Errorf("%w: block %s has no representative", ErrCorrupt, sb.Hash())
	}
	return rep, nil
}
