package node

import (
	"context"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
)

// ProcessBlocks validates and inserts the blocks in one transaction.
// Rejections are reported per block in the results.
func (n *Node) ProcessBlocks(ctx context.Context, blocks ...block.Block) ([]ledger.Result, error) {
	if n.worker.isShutdown() {
		return nil, ErrShutdown
	}

	return n.ledger.ProcessBlocksContext(ctx, writequeue.BlockProcessor, blocks...)
}

// Rollback removes the block and everything depending on it.
func (n *Node) Rollback(ctx context.Context, hash types.BlockHash) ([]types.BlockHash, error) {
	if n.worker.isShutdown() {
		return nil, ErrShutdown
	}

	guard, err := n.queue.WaitContext(ctx, writequeue.BlockProcessor)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	var rolled []types.BlockHash
	err = n.store.Update(func(txn store.WriteTxn) error {
		var err error
		rolled, err = n.ledger.Rollback(txn, hash)
		return err
	})
	if err != nil {
		return nil, err
	}

	return rolled, nil
}

// Confirm cements the block and its dependencies.
func (n *Node) Confirm(ctx context.Context, hash types.BlockHash) ([]block.SavedBlock, error) {
	if n.worker.isShutdown() {
		return nil, ErrShutdown
	}

	guard, err := n.queue.WaitContext(ctx, writequeue.ConfirmationHeight)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	var cemented []block.SavedBlock
	err = n.store.Update(func(txn store.WriteTxn) error {
		var err error
		cemented, err = n.ledger.Confirm(txn, hash)
		return err
	})
	if err != nil {
		return nil, err
	}

	return cemented, nil
}

// Prune moves cemented blocks below the frontier of the block's account into
// the pruned table.
func (n *Node) Prune(ctx context.Context, hash types.BlockHash, limit uint64) (uint64, error) {
	if n.worker.isShutdown() {
		return 0, ErrShutdown
	}

	guard, err := n.queue.WaitContext(ctx, writequeue.Pruning)
	if err != nil {
		return 0, err
	}
	defer guard.Release()

	var pruned uint64
	err = n.store.Update(func(txn store.WriteTxn) error {
		var err error
		pruned, err = n.ledger.Prune(txn, hash, limit)
		return err
	})
	if err != nil {
		return 0, err
	}

	return pruned, nil
}

// =============================================================================

// VoteResult describes the tally of a block after a vote.
type VoteResult struct {
	Hash      types.BlockHash `json:"hash"`
	Voters    int             `json:"voters"`
	Tally     types.Amount    `json:"tally"`
	Delta     types.Amount    `json:"delta"`
	Confirmed bool            `json:"confirmed"`
	Cemented  int             `json:"cemented"`
}

// Vote records that the representative voted for the block. The
// representative counts as online for the weight period. When the voters
// reach the quorum delta the block is cemented.
func (n *Node) Vote(ctx context.Context, rep types.Account, hash types.BlockHash) (VoteResult, error) {
	// The lookup and the insert share n.mu with BlocksRolledBack so a vote
	// can't land on a block removed in between.
	n.mu.Lock()
	var exists bool
	err := n.store.View(func(txn store.ReadTxn) error {
		var err error
		exists, err = n.ledger.Any().BlockExists(txn, hash)
		return err
	})
	if err != nil {
		n.mu.Unlock()
		return VoteResult{}, err
	}
	if !exists {
		n.mu.Unlock()
		return VoteResult{}, fmt.Errorf("vote for %s: %w", hash, ledger.ErrBlockNotFound)
	}

	voters, ok := n.votes[hash]
	if !ok {
		voters = make(map[types.Account]struct{})
		n.votes[hash] = voters
	}
	voters[rep] = struct{}{}

	reps := make([]types.Account, 0, len(voters))
	for v := range voters {
		reps = append(reps, v)
	}
	n.mu.Unlock()

	n.online.Observe(rep)

	res := VoteResult{
		Hash:   hash,
		Voters: len(reps),
		Tally:  n.online.Tally(reps),
		Delta:  n.online.QuorumDelta(),
	}
	n.evHandler("node: Vote: rep[%s] hash[%s] tally[%s] delta[%s]", rep.Address(), hash, res.Tally, res.Delta)

	if res.Tally.Cmp(res.Delta) < 0 {
		return res, nil
	}

	cemented, err := n.Confirm(ctx, hash)
	if err != nil {
		return VoteResult{}, err
	}

	n.mu.Lock()
	delete(n.votes, hash)
	n.mu.Unlock()

	res.Confirmed = true
	res.Cemented = len(cemented)

	return res, nil
}
