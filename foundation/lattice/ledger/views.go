package ledger

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Receivable is a pending entry waiting to be received.
type Receivable struct {
	Key  types.PendingKey  `json:"key"`
	Info types.PendingInfo `json:"info"`
}

// View answers queries over the ledger. The unconfirmed view sees every
// stored block; the confirmed view treats blocks above the cemented height as
// absent.
type View struct {
	l         *Ledger
	confirmed bool
}

// Any returns the view over every stored block.
func (l *Ledger) Any() View {
	return View{l: l}
}

// Confirmed returns the view over cemented blocks only.
func (l *Ledger) Confirmed() View {
	return View{l: l, confirmed: true}
}

// IsConfirmed reports whether this is the confirmed view.
func (v View) IsConfirmed() bool {
	return v.confirmed
}

// =============================================================================

// Block returns the stored block.
func (v View) Block(txn store.ReadTxn, hash types.BlockHash) (block.SavedBlock, error) {
	sb, err := v.l.store.Blocks.Get(txn, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return block.SavedBlock{}, ErrBlockNotFound
		}
		return block.SavedBlock{}, err
	}

	if v.confirmed {
		ch, err := v.l.confirmationHeight(txn, sb.Account())
		if err != nil {
			return block.SavedBlock{}, err
		}
		if sb.Height() > ch.Height {
			return block.SavedBlock{}, ErrBlockNotFound
		}
	}

	return sb, nil
}

// BlockExists reports whether the block is stored and visible.
func (v View) BlockExists(txn store.ReadTxn, hash types.BlockHash) (bool, error) {
	_, err := v.Block(txn, hash)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrBlockNotFound):
		return false, nil
	}
	return false, err
}

// BlockExistsOrPruned reports whether the block is visible or was pruned.
// Pruned blocks are always cemented.
func (v View) BlockExistsOrPruned(txn store.ReadTxn, hash types.BlockHash) (bool, error) {
	exists, err := v.BlockExists(txn, hash)
	if err != nil || exists {
		return exists, err
	}
	return v.l.store.Pruned.Exists(txn, hash)
}

// BlockAccount returns the account owning the block.
func (v View) BlockAccount(txn store.ReadTxn, hash types.BlockHash) (types.Account, error) {
	sb, err := v.Block(txn, hash)
	if err != nil {
		return types.Account{}, err
	}
	return sb.Account(), nil
}

// BlockBalance returns the account balance after the block.
func (v View) BlockBalance(txn store.ReadTxn, hash types.BlockHash) (types.Amount, error) {
	sb, err := v.Block(txn, hash)
	if err != nil {
		return types.Amount{}, err
	}
	return sb.Balance(), nil
}

// BlockAmount returns how much the block moved: the difference between its
// balance and the balance before it.
func (v View) BlockAmount(txn store.ReadTxn, hash types.BlockHash) (types.Amount, error) {
	sb, err := v.Block(txn, hash)
	if err != nil {
		return types.Amount{}, err
	}

	prevHash := sb.Block.PreviousHash()
	if prevHash.IsZero() {
		return sb.Balance(), nil
	}

	prev, err := v.l.store.Blocks.Get(txn, prevHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Amount{}, fmt.Errorf("previous %s: %w", prevHash, ErrBlockNotFound)
		}
		return types.Amount{}, err
	}

	amount, _ := sb.Balance().Diff(prev.Balance())
	return amount, nil
}

// Successor returns the block following this one in its chain.
func (v View) Successor(txn store.ReadTxn, hash types.BlockHash) (types.BlockHash, bool, error) {
	sb, err := v.Block(txn, hash)
	if err != nil {
		return types.BlockHash{}, false, err
	}

	next := sb.Sideband.Successor
	if next.IsZero() {
		return types.BlockHash{}, false, nil
	}

	exists, err := v.BlockExists(txn, next)
	if err != nil || !exists {
		return types.BlockHash{}, false, err
	}

	return next, true, nil
}

// =============================================================================

// AccountInfo returns the account record. The confirmed view describes the
// account at its confirmed frontier.
func (v View) AccountInfo(txn store.ReadTxn, account types.Account) (types.AccountInfo, error) {
	info, err := v.l.store.Accounts.Get(txn, account)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.AccountInfo{}, ErrAccountNotFound
		}
		return types.AccountInfo{}, err
	}

	if !v.confirmed {
		return info, nil
	}

	ch, err := v.l.confirmationHeight(txn, account)
	if err != nil {
		return types.AccountInfo{}, err
	}
	if ch.Height == 0 {
		return types.AccountInfo{}, ErrAccountNotFound
	}
	if ch.Frontier == info.Head {
		return info, nil
	}

	frontier, err := v.l.store.Blocks.Get(txn, ch.Frontier)
	if err != nil {
		return types.AccountInfo{}, fmt.Errorf("%w: frontier %s: %w", ErrCorrupt, ch.Frontier, err)
	}

	rep, err := v.l.representativeAt(frontier)
	if err != nil {
		return types.AccountInfo{}, err
	}

	return types.AccountInfo{
		Head:           ch.Frontier,
		Representative: rep,
		OpenBlock:      info.OpenBlock,
		Balance:        frontier.Balance(),
		Modified:       frontier.Sideband.Timestamp,
		BlockCount:     ch.Height,
		Epoch:          frontier.Sideband.Details.Epoch,
	}, nil
}

// AccountBalance returns the balance of the account, zero when unopened.
func (v View) AccountBalance(txn store.ReadTxn, account types.Account) (types.Amount, error) {
	info, err := v.AccountInfo(txn, account)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return types.ZeroAmount, nil
		}
		return types.Amount{}, err
	}
	return info.Balance, nil
}

// AccountHead returns the head of the account chain.
func (v View) AccountHead(txn store.ReadTxn, account types.Account) (types.BlockHash, error) {
	info, err := v.AccountInfo(txn, account)
	if err != nil {
		return types.BlockHash{}, err
	}
	return info.Head, nil
}

// AccountHeight returns the number of blocks in the account chain, zero when
// unopened.
func (v View) AccountHeight(txn store.ReadTxn, account types.Account) (uint64, error) {
	info, err := v.AccountInfo(txn, account)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return info.BlockCount, nil
}

// Receivable returns the pending entries of the account ordered by send
// hash. The confirmed view only returns entries whose send is cemented.
func (v View) Receivable(txn store.ReadTxn, account types.Account) ([]Receivable, error) {
	c, err := v.l.store.Pending.IteratePrefix(txn, account[:])
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var entries []Receivable
	for c.Next() {
		key := c.Key()

		if v.confirmed {
			confirmed, err := v.l.BlockConfirmed(txn, key.Hash)
			if err != nil {
				return nil, err
			}
			if !confirmed {
				continue
			}
		}

		entries = append(entries, Receivable{Key: key, Info: c.Value()})
	}

	if err := c.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// =============================================================================

// AccountReceivable sums the pending entries of the account, optionally
// only those whose send is cemented.
func (l *Ledger) AccountReceivable(txn store.ReadTxn, account types.Account, onlyConfirmed bool) (types.Amount, error) {
	view := l.Any()
	if onlyConfirmed {
		view = l.Confirmed()
	}

	entries, err := view.Receivable(txn, account)
	if err != nil {
		return types.Amount{}, err
	}

	var total types.Amount
	for _, e := range entries {
		var ok bool
		if total, ok = total.Add(e.Info.Amount); !ok {
			return types.Amount{}, fmt.Errorf("%w: receivable of %s overflows", ErrCorrupt, account.Address())
		}
	}

	return total, nil
}
