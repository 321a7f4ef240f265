package ledger

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// BlockConfirmed reports whether the block is cemented. Pruned blocks are
// always cemented.
func (l *Ledger) BlockConfirmed(txn store.ReadTxn, hash types.BlockHash) (bool, error) {
	sb, err := l.store.Blocks.Get(txn, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return l.store.Pruned.Exists(txn, hash)
		}
		return false, err
	}

	ch, err := l.confirmationHeight(txn, sb.Account())
	if err != nil {
		return false, err
	}

	return sb.Height() <= ch.Height, nil
}

// Confirm cements the block together with everything it depends on: the
// blocks below it in its chain and the sends its receives pocketed. The
// newly cemented blocks are returned in the order they were cemented.
func (l *Ledger) Confirm(txn store.WriteTxn, hash types.BlockHash) ([]block.SavedBlock, error) {
	var cemented []block.SavedBlock
	work := []types.BlockHash{hash}

	for len(work) > 0 {
		target := work[len(work)-1]

		sb, err := l.store.Blocks.Get(txn, target)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}

			pruned, err := l.store.Pruned.Exists(txn, target)
			if err != nil {
				return nil, err
			}
			if !pruned {
				return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, target)
			}

			work = work[:len(work)-1]
			continue
		}

		account := sb.Account()
		ch, err := l.confirmationHeight(txn, account)
		if err != nil {
			return nil, err
		}
		if sb.Height() <= ch.Height {
			work = work[:len(work)-1]
			continue
		}

		chain, err := l.uncemented(txn, sb, ch.Height)
		if err != nil {
			return nil, err
		}

		// Sources must be cemented before the receives that pocket them.
		var pushed bool
		for _, b := range chain {
			source, ok := b.ReceiveSource()
			if !ok || !b.IsReceive() {
				continue
			}

			confirmed, err := l.BlockConfirmed(txn, source)
			if err != nil {
				return nil, err
			}
			if !confirmed {
				work = append(work, source)
				pushed = true
			}
		}
		if pushed {
			continue
		}

		next := types.ConfirmationHeightInfo{Height: sb.Height(), Frontier: sb.Hash()}
		if err := l.store.ConfirmationHeight.Put(txn, account, next); err != nil {
			return nil, fmt.Errorf("put confirmation height: %w", err)
		}

		cemented = append(cemented, chain...)
		work = work[:len(work)-1]
	}

	if len(cemented) > 0 {
		txn.OnCommit(func() {
			l.evHandler("ledger: Confirm: target[%s] cemented[%d]", hash, len(cemented))
			l.metrics.ObserveCemented(len(cemented))
		})
	}

	return cemented, nil
}

// uncemented returns the blocks of the chain above the cemented height up to
// and including the block, lowest first.
func (l *Ledger) uncemented(txn store.ReadTxn, top block.SavedBlock, cemented uint64) ([]block.SavedBlock, error) {
	chain := make([]block.SavedBlock, top.Height()-cemented)

	sb := top
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i] = sb
		if i == 0 {
			break
		}

		prev := sb.Block.PreviousHash()
		next, err := l.store.Blocks.Get(txn, prev)
		if err != nil {
			return nil, fmt.Errorf("%w: previous %s of %s: %w", ErrCorrupt, prev, sb.Hash(), err)
		}
		sb = next
	}

	return chain, nil
}
