package ledger

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/repweights"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Rollback removes the block and every block depending on it: the blocks
// above it in its own chain and the receives of any send among them, across
// accounts. Blocks are undone head first and the hashes are returned in
// undo order. Reaching a cemented block fails with ErrRollbackConfirmed and
// the transaction must be discarded.
func (l *Ledger) Rollback(txn store.WriteTxn, hash types.BlockHash) ([]types.BlockHash, error) {
	rolled, err := l.rollback(txn, hash)
	l.metrics.ObserveRollback(err, len(rolled))
	if err != nil {
		return nil, err
	}

	txn.OnCommit(func() {
		l.evHandler("ledger: Rollback: target[%s] blocks[%d]", hash, len(rolled))
		l.notifyRolledBack(rolled)
	})

	return rolled, nil
}

func (l *Ledger) rollback(txn store.WriteTxn, hash types.BlockHash) ([]types.BlockHash, error) {
	sb, err := l.store.Blocks.Get(txn, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}

	// A cemented target fails before anything is written.
	ch, err := l.confirmationHeight(txn, sb.Account())
	if err != nil {
		return nil, err
	}
	if sb.Height() <= ch.Height {
		return nil, fmt.Errorf("%w: block %s height %d", ErrRollbackConfirmed, hash, sb.Height())
	}

	var rolled []types.BlockHash
	work := []types.BlockHash{hash}

	for len(work) > 0 {
		target := work[len(work)-1]

		sb, err := l.store.Blocks.Get(txn, target)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				work = work[:len(work)-1]
				continue
			}
			return nil, err
		}

		account := sb.Account()
		info, err := l.store.Accounts.Get(txn, account)
		if err != nil {
			return nil, fmt.Errorf("%w: account %s of block %s: %w", ErrCorrupt, account.Address(), target, err)
		}

		head, err := l.store.Blocks.Get(txn, info.Head)
		if err != nil {
			return nil, fmt.Errorf("%w: head %s: %w", ErrCorrupt, info.Head, err)
		}

		ch, err := l.confirmationHeight(txn, account)
		if err != nil {
			return nil, err
		}
		if head.Height() <= ch.Height {
			return nil, fmt.Errorf("%w: account %s height %d", ErrRollbackConfirmed, account.Address(), head.Height())
		}

		// A send whose entry is gone was received; that receive goes first.
		if dest, ok := head.SendDestination(); ok && head.IsSend() {
			key := types.PendingKey{Account: dest, Hash: head.Hash()}
			pending, err := l.store.Pending.Exists(txn, key)
			if err != nil {
				return nil, err
			}

			if !pending {
				destInfo, err := l.store.Accounts.Get(txn, dest)
				if err != nil {
					return nil, fmt.Errorf("%w: receiver %s of send %s: %w", ErrCorrupt, dest.Address(), head.Hash(), err)
				}
				work = append(work, destInfo.Head)
				continue
			}
		}

		if err := l.undo(txn, head, info); err != nil {
			return nil, err
		}
		rolled = append(rolled, head.Hash())
	}

	return rolled, nil
}

// undo removes the account head and restores the account to its
// predecessor.
func (l *Ledger) undo(txn store.WriteTxn, head block.SavedBlock, info types.AccountInfo) error {
	hash := head.Hash()
	account := head.Account()

	var restored types.AccountInfo
	prevHash := head.Block.PreviousHash()

	if prevHash.IsZero() {
		if err := l.store.Accounts.Del(txn, account); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
	} else {
		prev, err := l.store.Blocks.Get(txn, prevHash)
		if err != nil {
			return fmt.Errorf("%w: previous %s: %w", ErrCorrupt, prevHash, err)
		}

		rep, err := l.representativeAt(prev)
		if err != nil {
			return err
		}

		restored = types.AccountInfo{
			Head:           prevHash,
			Representative: rep,
			OpenBlock:      info.OpenBlock,
			Balance:        prev.Balance(),
			Modified:       prev.Sideband.Timestamp,
			BlockCount:     prev.Height(),
			Epoch:          prev.Sideband.Details.Epoch,
		}
		if err := l.store.Accounts.Put(txn, account, restored); err != nil {
			return fmt.Errorf("restore account: %w", err)
		}

		prev.Sideband.Successor = types.ZeroHash
		if err := l.store.Blocks.Put(txn, prevHash, prev); err != nil {
			return fmt.Errorf("clear successor: %w", err)
		}
	}

	if dest, ok := head.SendDestination(); ok && head.IsSend() {
		if err := l.store.Pending.Del(txn, types.PendingKey{Account: dest, Hash: hash}); err != nil {
			return fmt.Errorf("delete pending: %w", err)
		}
	}

	if source, ok := head.ReceiveSource(); ok && head.IsReceive() {
		sender, err := l.sender(txn, source)
		if err != nil {
			return fmt.Errorf("source %s of receive %s: %w", source, hash, err)
		}

		amount, ok := head.Balance().Sub(restored.Balance)
		if !ok {
			return fmt.Errorf("%w: receive %s lowers the balance", ErrCorrupt, hash)
		}

		key := types.PendingKey{Account: account, Hash: source}
		pending := types.PendingInfo{
			Source: sender,
			Amount: amount,
			Epoch:  head.Sideband.SourceEpoch,
		}
		if err := l.store.Pending.Put(txn, key, pending); err != nil {
			return fmt.Errorf("restore pending: %w", err)
		}
	}

	deltas := repweights.Move(info.Representative, info.Balance, restored.Representative, restored.Balance)
	if err := l.applyWeights(txn, deltas); err != nil {
		return err
	}

	if err := l.store.Blocks.Del(txn, hash); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}

	return nil
}

// sender returns the account of the send. A pruned send no longer records
// its account and yields the burn account.
func (l *Ledger) sender(txn store.ReadTxn, source types.BlockHash) (types.Account, error) {
	src, err := l.store.Blocks.Get(txn, source)
	if err == nil {
		return src.Account(), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Account{}, err
	}

	pruned, err := l.store.Pruned.Exists(txn, source)
	if err != nil {
		return types.Account{}, err
	}
	if !pruned {
		return types.Account{}, ErrCorrupt
	}

	return types.BurnAccount, nil
}
