// Package validator decides whether a block may extend the ledger. It is a
// pure function over facts fetched by the caller inside its transaction; on
// success it returns the set of writes that inserting the block requires.
package validator

import (
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/epochs"
	"github.com/ardanlabs/lattice/foundation/lattice/repweights"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/work"
)

// Context holds everything the rules need to know about the ledger.
type Context struct {
	Block block.Block

	// Exists is true when the block is stored or pruned.
	Exists bool

	// Previous is the stored previous block, nil when missing or when the
	// block is an open.
	Previous *block.SavedBlock

	// AccountInfo is the account's current record, nil when unopened.
	AccountInfo *types.AccountInfo

	// SourceExists is true when the received source block is stored or
	// pruned.
	SourceExists bool

	// Pending is the receivable entry the block would pocket, nil when
	// missing.
	Pending *types.PendingInfo

	// AnyReceivable is true when the account has at least one receivable
	// entry. Only consulted for epoch opens.
	AnyReceivable bool

	Epochs *epochs.Epochs
	Work   work.Thresholds
	Now    time.Time
}

// PendingEntry is a receivable entry to insert.
type PendingEntry struct {
	Key  types.PendingKey
	Info types.PendingInfo
}

// Instructions is the plan for inserting a valid block.
type Instructions struct {
	Account        types.Account
	OldAccountInfo *types.AccountInfo
	NewAccountInfo types.AccountInfo
	Sideband       block.Sideband
	InsertPending  *PendingEntry
	DeletePending  *types.PendingKey
	WeightDeltas   []repweights.Delta
	IsEpochBlock   bool
}

// =============================================================================

// Account returns the account the block belongs to: the block's own field
// for opens and state blocks, otherwise the owner of the previous block.
func Account(b block.Block, previous *block.SavedBlock) (types.Account, bool) {
	if a, ok := block.Account(b); ok {
		return a, true
	}
	if previous != nil {
		return previous.Sideband.Account, true
	}
	return types.Account{}, false
}

// ReceiveSource returns the send a block would pocket when it is receive
// shaped. For state blocks this is a candidate only; whether it receives
// depends on the balance transition.
func ReceiveSource(b block.Block, epochs *epochs.Epochs) (types.BlockHash, bool) {
	switch b := b.(type) {
	case *block.Receive:
		return b.Source, true
	case *block.Open:
		return b.Source, true
	case *block.State:
		if b.Link.IsZero() || epochs.IsEpochLink(b.Link) {
			return types.BlockHash{}, false
		}
		return b.Link.AsHash(), true
	}
	return types.BlockHash{}, false
}

// transition is the derived meaning of a block.
type transition struct {
	account    types.Account
	prev       types.AccountInfo
	rep        types.Account
	balance    types.Amount
	epoch      types.Epoch
	isOpen     bool
	isSend     bool
	isReceive  bool
	isEpoch    bool
	epochLink  bool
	source     types.BlockHash
	sendTo     types.Account
	sendAmount types.Amount
}

// Validate applies the rules in order and returns the first rejection.
func Validate(c Context) (Instructions, error) {
	b := c.Block

	if c.Exists {
		return Instructions{}, Old
	}

	var t transition
	t.isOpen = block.IsOpen(b)

	if err := checkPosition(c, &t); err != nil {
		return Instructions{}, err
	}

	classify(c, &t)

	signer := t.account
	if t.isEpoch {
		signer, _ = c.Epochs.Signer(t.epoch)
	}
	if !block.VerifySignature(b, signer) {
		return Instructions{}, BadSignature
	}

	threshold := c.Work.For(t.epoch, t.isReceive || t.isEpoch)
	if block.IsLegacy(b) {
		threshold = c.Work.For(types.Epoch0, false)
	}
	if block.WorkValue(b) < threshold {
		return Instructions{}, InsufficientWork
	}

	if err := checkBalance(c, &t); err != nil {
		return Instructions{}, err
	}

	if t.isReceive {
		if err := checkReceive(c, &t); err != nil {
			return Instructions{}, err
		}
	}

	if t.isEpoch {
		if err := checkEpoch(c, &t); err != nil {
			return Instructions{}, err
		}
	}

	return instructions(c, &t), nil
}

// checkPosition covers the previous block and open block rules.
func checkPosition(c Context, t *transition) error {
	b := c.Block

	if !t.isOpen {
		if c.Previous == nil || c.AccountInfo == nil {
			return GapPrevious
		}

		account, _ := Account(b, c.Previous)
		t.account = account
		t.prev = *c.AccountInfo

		if c.AccountInfo.Head != b.PreviousHash() {
			return Fork
		}

		if block.IsLegacy(b) {
			if c.Previous.Block.Type() == block.TypeState || c.AccountInfo.Epoch > types.Epoch0 {
				return BlockPosition
			}
		}

		return nil
	}

	t.account, _ = block.Account(b)
	if t.account.IsZero() {
		return OpenedBurnAccount
	}
	if c.AccountInfo != nil {
		return Fork
	}

	if s, ok := b.(*block.State); ok {
		if s.Link.IsZero() {
			return GapSource
		}
		if c.Epochs.IsEpochLink(s.Link) && !c.AnyReceivable {
			return GapEpochOpenPending
		}
	}

	return nil
}

// classify derives what the block does to the account.
func classify(c Context, t *transition) {
	t.rep = t.prev.Representative
	t.balance = t.prev.Balance
	t.epoch = t.prev.Epoch

	switch b := c.Block.(type) {
	case *block.Send:
		t.isSend = true
		t.balance = b.Balance
		t.sendTo = b.Destination

	case *block.Receive:
		t.isReceive = true
		t.source = b.Source

	case *block.Open:
		t.isReceive = true
		t.source = b.Source
		t.rep = b.Representative

	case *block.Change:
		t.rep = b.Representative

	case *block.State:
		t.rep = b.Representative
		t.balance = b.Balance

		// An epoch link only marks an epoch block when the balance holds.
		// Otherwise the block is the account's own and is rejected later.
		if epoch, ok := c.Epochs.Epoch(b.Link); ok {
			if !b.Balance.Equal(t.prev.Balance) {
				t.epochLink = true
				return
			}
			t.isEpoch = true
			t.epoch = epoch
			return
		}

		switch {
		case b.Balance.Cmp(t.prev.Balance) < 0:
			t.isSend = !b.Link.IsZero()
			t.sendTo = b.Link.AsAccount()
		case !b.Link.IsZero():
			t.isReceive = true
			t.source = b.Link.AsHash()
		}

		if t.isReceive && c.Pending != nil {
			t.epoch = types.MaxEpochOf(t.prev.Epoch, c.Pending.Epoch)
		}
	}
}

// checkBalance covers the spend and no-link balance rules.
func checkBalance(c Context, t *transition) error {
	switch b := c.Block.(type) {
	case *block.Send:
		if b.Balance.Cmp(t.prev.Balance) > 0 {
			return NegativeSpend
		}
	case *block.State:
		if t.epochLink {
			return BalanceMismatch
		}
		if !t.isEpoch && b.Link.IsZero() && !b.Balance.Equal(t.prev.Balance) {
			return BalanceMismatch
		}
	}

	if t.isSend {
		t.sendAmount, _ = t.prev.Balance.Sub(t.balance)
	}

	return nil
}

// checkReceive covers the receive rules.
func checkReceive(c Context, t *transition) error {
	if !c.SourceExists {
		return GapSource
	}
	if c.Pending == nil {
		return Unreceivable
	}

	if block.IsLegacy(c.Block) {
		balance, ok := t.prev.Balance.Add(c.Pending.Amount)
		if !ok {
			return BalanceMismatch
		}
		t.balance = balance
	} else {
		amount, negative := t.balance.Diff(t.prev.Balance)
		if negative || !amount.Equal(c.Pending.Amount) {
			return BalanceMismatch
		}
	}

	if block.IsLegacy(c.Block) && c.Pending.Epoch != types.Epoch0 {
		return Unreceivable
	}

	return nil
}

// checkEpoch covers the epoch upgrade rules.
func checkEpoch(c Context, t *transition) error {
	if t.isOpen {
		if !t.rep.IsZero() {
			return RepresentativeMismatch
		}
		return nil
	}

	if t.rep != t.prev.Representative {
		return RepresentativeMismatch
	}
	if !t.prev.Epoch.IsSequential(t.epoch) {
		return BlockPosition
	}

	return nil
}

// instructions builds the insertion plan.
func instructions(c Context, t *transition) Instructions {
	hash := c.Block.Hash()
	now := uint64(c.Now.Unix())

	info := types.AccountInfo{
		Head:           hash,
		Representative: t.rep,
		OpenBlock:      t.prev.OpenBlock,
		Balance:        t.balance,
		Modified:       now,
		BlockCount:     t.prev.BlockCount + 1,
		Epoch:          t.epoch,
	}
	if t.isOpen {
		info.OpenBlock = hash
	}

	side := block.Sideband{
		Height:         info.BlockCount,
		Timestamp:      now,
		Account:        t.account,
		Representative: t.rep,
		Balance:        t.balance,
		Details: block.Details{
			Epoch:     t.epoch,
			IsSend:    t.isSend,
			IsReceive: t.isReceive,
			IsEpoch:   t.isEpoch,
		},
	}

	inst := Instructions{
		Account:        t.account,
		NewAccountInfo: info,
		Sideband:       side,
		IsEpochBlock:   t.isEpoch,
	}

	if !t.isOpen {
		old := t.prev
		inst.OldAccountInfo = &old
		inst.WeightDeltas = repweights.Move(old.Representative, old.Balance, info.Representative, info.Balance)
	} else {
		inst.WeightDeltas = repweights.Move(types.Account{}, types.ZeroAmount, info.Representative, info.Balance)
	}

	if t.isSend {
		inst.InsertPending = &PendingEntry{
			Key: types.PendingKey{Account: t.sendTo, Hash: hash},
			Info: types.PendingInfo{
				Source: t.account,
				Amount: t.sendAmount,
				Epoch:  t.epoch,
			},
		}
	}

	if t.isReceive {
		inst.Sideband.SourceEpoch = c.Pending.Epoch
		inst.DeletePending = &types.PendingKey{Account: t.account, Hash: t.source}
	}

	return inst
}
