package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/validator"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
)

// Result is the outcome of processing one block in a batch.
type Result struct {
	Hash  types.BlockHash
	Saved block.SavedBlock
	Err   error
}

// Process validates the block against the transaction and applies it. A
// rejection is returned as a validator.Status with nothing written. Any other
// error is fatal and the transaction must be discarded.
func (l *Ledger) Process(txn store.WriteTxn, blk block.Block) (block.SavedBlock, error) {
	started := time.Now()

	c, err := l.prefetch(txn, blk)
	if err != nil {
		l.metrics.ObserveProcess(blk.Type().String(), "error", started)
		return block.SavedBlock{}, fmt.Errorf("prefetch: %w", err)
	}

	inst, err := validator.Validate(c)
	if err != nil {
		l.metrics.ObserveProcess(blk.Type().String(), statusLabel(err), started)
		return block.SavedBlock{}, err
	}

	sb, err := l.apply(txn, blk, c.Previous, inst)
	if err != nil {
		l.metrics.ObserveProcess(blk.Type().String(), "error", started)
		return block.SavedBlock{}, fmt.Errorf("apply: %w", err)
	}

	l.metrics.ObserveProcess(blk.Type().String(), "progress", started)

	return sb, nil
}

// ProcessBlocks takes the write guard for the writer, processes the blocks
// in order inside one transaction and commits. Rejections are reported per
// block; a fatal error discards the whole batch.
func (l *Ledger) ProcessBlocks(writer writequeue.Writer, blocks ...block.Block) ([]Result, error) {
	return l.ProcessBlocksContext(context.Background(), writer, blocks...)
}

// ProcessBlocksContext is ProcessBlocks giving up when the context is done
// before the write guard is acquired.
func (l *Ledger) ProcessBlocksContext(ctx context.Context, writer writequeue.Writer, blocks ...block.Block) ([]Result, error) {
	guard, err := l.queue.WaitContext(ctx, writer)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	results := make([]Result, len(blocks))

	err = l.store.Update(func(txn store.WriteTxn) error {
		for i, blk := range blocks {
			sb, err := l.Process(txn, blk)
			if _, rejected := validator.AsStatus(err); err != nil && !rejected {
				return err
			}
			results[i] = Result{Hash: blk.Hash(), Saved: sb, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// =============================================================================

// prefetch fetches every fact the validator needs from the transaction.
func (l *Ledger) prefetch(txn store.ReadTxn, blk block.Block) (validator.Context, error) {
	c := validator.Context{
		Block:  blk,
		Epochs: l.epochs,
		Work:   l.genesis.Work,
		Now:    l.now(),
	}

	var err error
	if c.Exists, err = l.blockExistsOrPruned(txn, blk.Hash()); err != nil {
		return validator.Context{}, err
	}
	if c.Exists {
		return c, nil
	}

	if !block.IsOpen(blk) {
		prev, err := l.store.Blocks.Get(txn, blk.PreviousHash())
		switch {
		case err == nil:
			c.Previous = &prev
		case !errors.Is(err, store.ErrNotFound):
			return validator.Context{}, err
		}
	}

	account, ok := validator.Account(blk, c.Previous)
	if !ok || account.IsZero() {
		return c, nil
	}

	info, err := l.store.Accounts.Get(txn, account)
	switch {
	case err == nil:
		c.AccountInfo = &info
	case !errors.Is(err, store.ErrNotFound):
		return validator.Context{}, err
	}

	if source, ok := validator.ReceiveSource(blk, l.epochs); ok {
		if c.SourceExists, err = l.blockExistsOrPruned(txn, source); err != nil {
			return validator.Context{}, err
		}

		pending, err := l.store.Pending.Get(txn, types.PendingKey{Account: account, Hash: source})
		switch {
		case err == nil:
			c.Pending = &pending
		case !errors.Is(err, store.ErrNotFound):
			return validator.Context{}, err
		}
	}

	if link, ok := block.Link(blk); ok && block.IsOpen(blk) && l.epochs.IsEpochLink(link) {
		if c.AnyReceivable, err = l.anyReceivable(txn, account); err != nil {
			return validator.Context{}, err
		}
	}

	return c, nil
}

// apply performs the writes the instructions describe.
func (l *Ledger) apply(txn store.WriteTxn, blk block.Block, previous *block.SavedBlock, inst validator.Instructions) (block.SavedBlock, error) {
	hash := blk.Hash()
	sb := block.SavedBlock{Block: blk, Sideband: inst.Sideband}

	if err := l.store.Blocks.Put(txn, hash, sb); err != nil {
		return block.SavedBlock{}, fmt.Errorf("put block: %w", err)
	}

	if previous != nil {
		prev := *previous
		prev.Sideband.Successor = hash
		if err := l.store.Blocks.Put(txn, prev.Hash(), prev); err != nil {
			return block.SavedBlock{}, fmt.Errorf("link successor: %w", err)
		}
	}

	if err := l.store.Accounts.Put(txn, inst.Account, inst.NewAccountInfo); err != nil {
		return block.SavedBlock{}, fmt.Errorf("put account: %w", err)
	}

	if p := inst.InsertPending; p != nil {
		if err := l.store.Pending.Put(txn, p.Key, p.Info); err != nil {
			return block.SavedBlock{}, fmt.Errorf("put pending: %w", err)
		}
	}

	if key := inst.DeletePending; key != nil {
		if err := l.store.Pending.Del(txn, *key); err != nil {
			return block.SavedBlock{}, fmt.Errorf("delete pending: %w", err)
		}
	}

	if err := l.applyWeights(txn, inst.WeightDeltas); err != nil {
		return block.SavedBlock{}, err
	}

	txn.OnCommit(func() {
		l.evHandler("ledger: Process: account[%s] hash[%s] height[%d] type[%s]", inst.Account.Address(), hash, sb.Height(), blk.Type())
		l.notifyProcessed(sb)
	})

	return sb, nil
}

// =============================================================================

func (l *Ledger) blockExistsOrPruned(txn store.ReadTxn, hash types.BlockHash) (bool, error) {
	exists, err := l.store.Blocks.Exists(txn, hash)
	if err != nil || exists {
		return exists, err
	}
	return l.store.Pruned.Exists(txn, hash)
}

func (l *Ledger) anyReceivable(txn store.ReadTxn, account types.Account) (bool, error) {
	c, err := l.store.Pending.IteratePrefix(txn, account[:])
	if err != nil {
		return false, err
	}
	defer c.Close()

	if c.Next() {
		return true, nil
	}
	return false, c.Err()
}

func statusLabel(err error) string {
	if s, ok := validator.AsStatus(err); ok {
		return s.String()
	}
	return "error"
}
