package node

import (
	"slices"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Account is the view of an account returned to callers.
type Account struct {
	Account    types.Account     `json:"account"`
	Info       types.AccountInfo `json:"info"`
	Weight     types.Amount      `json:"weight"`
	Receivable types.Amount      `json:"receivable"`
	Confirmed  uint64            `json:"confirmed_height"`
}

// QueryAccount returns the account as the unconfirmed or confirmed view
// sees it.
func (n *Node) QueryAccount(account types.Account, confirmed bool) (Account, error) {
	view := n.view(confirmed)

	var acct Account
	err := n.store.View(func(txn store.ReadTxn) error {
		info, err := view.AccountInfo(txn, account)
		if err != nil {
			return err
		}

		receivable, err := n.ledger.AccountReceivable(txn, account, confirmed)
		if err != nil {
			return err
		}

		height, err := n.ledger.Confirmed().AccountHeight(txn, account)
		if err != nil {
			return err
		}

		acct = Account{
			Account:    account,
			Info:       info,
			Weight:     n.ledger.Weight(account),
			Receivable: receivable,
			Confirmed:  height,
		}
		return nil
	})

	return acct, err
}

// QueryReceivable returns the pending entries of the account.
func (n *Node) QueryReceivable(account types.Account, confirmed bool) ([]ledger.Receivable, error) {
	var entries []ledger.Receivable
	err := n.store.View(func(txn store.ReadTxn) error {
		var err error
		entries, err = n.view(confirmed).Receivable(txn, account)
		return err
	})

	return entries, err
}

// QueryBlock returns the stored block with its sideband.
func (n *Node) QueryBlock(hash types.BlockHash) (block.SavedBlock, bool, error) {
	var sb block.SavedBlock
	var confirmed bool
	err := n.store.View(func(txn store.ReadTxn) error {
		var err error
		if sb, err = n.ledger.Any().Block(txn, hash); err != nil {
			return err
		}
		confirmed, err = n.ledger.BlockConfirmed(txn, hash)
		return err
	})

	return sb, confirmed, err
}

// =============================================================================

// Representative is a representative and the weight delegated to it.
type Representative struct {
	Account types.Account `json:"account"`
	Weight  types.Amount  `json:"weight"`
	Online  bool          `json:"online"`
}

// QueryRepresentatives returns the representatives ordered by weight,
// heaviest first.
func (n *Node) QueryRepresentatives() []Representative {
	online := make(map[types.Account]struct{})
	for _, rep := range n.online.OnlineReps() {
		online[rep] = struct{}{}
	}

	weights := n.ledger.Weights()
	reps := make([]Representative, 0, len(weights))
	for rep, weight := range weights {
		_, on := online[rep]
		reps = append(reps, Representative{Account: rep, Weight: weight, Online: on})
	}

	slices.SortFunc(reps, func(a, b Representative) int {
		if c := b.Weight.Cmp(a.Weight); c != 0 {
			return c
		}
		return slices.Compare(a.Account[:], b.Account[:])
	})

	return reps
}

// Quorum describes the current quorum inputs.
type Quorum struct {
	Online      types.Amount `json:"online"`
	Trended     types.Amount `json:"trended"`
	Delta       types.Amount `json:"delta"`
	Percent     uint64       `json:"percent"`
	Minimum     types.Amount `json:"online_weight_minimum"`
	OnlineReps  int          `json:"online_reps"`
	TotalWeight types.Amount `json:"total_weight"`
}

// QueryQuorum returns the current quorum inputs.
func (n *Node) QueryQuorum() Quorum {
	gen := n.ledger.Genesis()

	return Quorum{
		Online:      n.online.OnlineWeight(),
		Trended:     n.online.TrendedWeight(),
		Delta:       n.online.QuorumDelta(),
		Percent:     gen.Quorum.Percent,
		Minimum:     gen.Quorum.OnlineWeightMinimum,
		OnlineReps:  len(n.online.OnlineReps()),
		TotalWeight: n.weightTotal(),
	}
}

func (n *Node) weightTotal() types.Amount {
	var total types.Amount
	for _, w := range n.ledger.Weights() {
		total, _ = total.Add(w)
	}
	return total
}

func (n *Node) view(confirmed bool) ledger.View {
	if confirmed {
		return n.ledger.Confirmed()
	}
	return n.ledger.Any()
}
