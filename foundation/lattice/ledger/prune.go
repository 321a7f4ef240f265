package ledger

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Prune walks back from the block and moves at most limit cemented blocks
// that sit strictly below their account's confirmed frontier into the pruned
// table. The frontier itself and unconfirmed blocks are kept. The walk stops
// at the open block or at the first block already pruned.
func (l *Ledger) Prune(txn store.WriteTxn, hash types.BlockHash, limit uint64) (uint64, error) {
	sb, err := l.store.Blocks.Get(txn, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrBlockNotFound
		}
		return 0, err
	}

	ch, err := l.confirmationHeight(txn, sb.Account())
	if err != nil {
		return 0, err
	}

	var pruned uint64
	for pruned < limit {
		if sb.Height() < ch.Height {
			if err := l.store.Blocks.Del(txn, sb.Hash()); err != nil {
				return 0, fmt.Errorf("delete block: %w", err)
			}
			if err := l.store.Pruned.Put(txn, sb.Hash(), struct{}{}); err != nil {
				return 0, fmt.Errorf("put pruned: %w", err)
			}
			pruned++
		}

		prev := sb.Block.PreviousHash()
		if prev.IsZero() {
			break
		}

		next, err := l.store.Blocks.Get(txn, prev)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				break
			}
			return 0, err
		}
		sb = next
	}

	if pruned > 0 {
		txn.OnCommit(func() {
			l.evHandler("ledger: Prune: start[%s] pruned[%d]", hash, pruned)
			l.metrics.ObservePruned(pruned)
		})
	}

	return pruned, nil
}
