package node_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/genesis"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/store/memory"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	success = "✓"
	failed  = "✗"
)

func newNode(t *testing.T) (*node.Node, genesis.Genesis) {
	t.Helper()

	gen := genesis.Dev()
	n, err := node.New(node.Config{
		Store:   store.New(memory.New()),
		Genesis: gen,
		EvHandler: func(v string, args ...any) {
			t.Logf(v, args...)
		},
	})
	require.NoError(t, err)

	return n, gen
}

func sendFromGenesis(t *testing.T, n *node.Node, gen genesis.Genesis, dest types.Account, amount types.Amount) block.Block {
	t.Helper()

	acct, err := n.QueryAccount(gen.Account(), false)
	require.NoError(t, err)

	balance, ok := acct.Info.Balance.Sub(amount)
	require.True(t, ok)

	blk := block.NewState(genesis.DevKey()).
		Previous(acct.Info.Head).
		Representative(acct.Info.Representative).
		Balance(balance).
		SendTo(dest).
		Build()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, block.GenerateWork(ctx, blk, gen.Work.For(acct.Info.Epoch, false), nil))

	return blk
}

func TestVoteConfirms(t *testing.T) {
	t.Log("Given the need to cement a block once its voters reach quorum.")
	{
		n, gen := newNode(t)
		defer n.Shutdown()

		ctx := context.Background()
		dest := signature.PublicKeyToAccount(signature.GenerateKey())
		send := sendFromGenesis(t, n, gen, dest, types.NewAmount(50))

		results, err := n.ProcessBlocks(ctx, send)
		require.NoError(t, err)
		require.NoError(t, results[0].Err)
		t.Logf("\t%s\tShould be able to process the send.", success)

		// An unknown representative carries no weight.
		res, err := n.Vote(ctx, dest, send.Hash())
		require.NoError(t, err)
		if res.Confirmed {
			t.Fatalf("\t%s\tShould not confirm on a weightless vote.", failed)
		}
		t.Logf("\t%s\tShould not confirm on a weightless vote.", success)

		res, err = n.Vote(ctx, gen.Account(), send.Hash())
		require.NoError(t, err)
		require.True(t, res.Confirmed)
		require.Equal(t, 2, res.Voters)
		require.Equal(t, 1, res.Cemented)
		t.Logf("\t%s\tShould confirm once the genesis representative votes.", success)

		_, confirmed, err := n.QueryBlock(send.Hash())
		require.NoError(t, err)
		require.True(t, confirmed)

		acct, err := n.QueryAccount(gen.Account(), true)
		require.NoError(t, err)
		require.Equal(t, send.Hash(), acct.Info.Head)
		require.Equal(t, uint64(2), acct.Confirmed)

		receivable, err := n.QueryReceivable(dest, true)
		require.NoError(t, err)
		require.Len(t, receivable, 1)

		reps := n.QueryRepresentatives()
		require.Len(t, reps, 1)
		require.Equal(t, gen.Account(), reps[0].Account)
		require.True(t, reps[0].Online)

		q := n.QueryQuorum()
		require.True(t, q.Online.Equal(reps[0].Weight))
		require.Equal(t, 2, q.OnlineReps)
		t.Logf("\t%s\tShould report the genesis representative online.", success)

		_, err = n.Vote(ctx, gen.Account(), types.BlockHash{7})
		require.ErrorIs(t, err, ledger.ErrBlockNotFound)
	}
}

func TestRollbackDropsVotes(t *testing.T) {
	t.Log("Given a block with votes that gets rolled back.")
	{
		n, gen := newNode(t)
		defer n.Shutdown()

		ctx := context.Background()
		dest := signature.PublicKeyToAccount(signature.GenerateKey())
		send := sendFromGenesis(t, n, gen, dest, types.NewAmount(1))

		_, err := n.ProcessBlocks(ctx, send)
		require.NoError(t, err)

		_, err = n.Vote(ctx, dest, send.Hash())
		require.NoError(t, err)

		rolled, err := n.Rollback(ctx, send.Hash())
		require.NoError(t, err)
		require.Equal(t, []types.BlockHash{send.Hash()}, rolled)

		_, _, err = n.QueryBlock(send.Hash())
		require.ErrorIs(t, err, ledger.ErrBlockNotFound)
		t.Logf("\t%s\tShould remove the block.", success)

		// The same block can come back and starts with no voters.
		_, err = n.ProcessBlocks(ctx, send)
		require.NoError(t, err)

		res, err := n.Vote(ctx, dest, send.Hash())
		require.NoError(t, err)
		require.Equal(t, 1, res.Voters)
		t.Logf("\t%s\tShould forget the votes of rolled back blocks.", success)
	}
}

func TestRollbackDuringVoting(t *testing.T) {
	t.Log("Given votes racing a rollback of their block.")
	{
		n, gen := newNode(t)
		defer n.Shutdown()

		ctx := context.Background()
		dest := signature.PublicKeyToAccount(signature.GenerateKey())
		send := sendFromGenesis(t, n, gen, dest, types.NewAmount(1))

		_, err := n.ProcessBlocks(ctx, send)
		require.NoError(t, err)

		const voters = 20
		var wg sync.WaitGroup
		wg.Add(voters)
		for range voters {
			go func() {
				defer wg.Done()
				rep := signature.PublicKeyToAccount(signature.GenerateKey())
				if _, err := n.Vote(ctx, rep, send.Hash()); err != nil {
					assert.ErrorIs(t, err, ledger.ErrBlockNotFound)
				}
			}()
		}

		_, err = n.Rollback(ctx, send.Hash())
		require.NoError(t, err)
		wg.Wait()

		_, err = n.ProcessBlocks(ctx, send)
		require.NoError(t, err)

		res, err := n.Vote(ctx, dest, send.Hash())
		require.NoError(t, err)
		require.Equal(t, 1, res.Voters)
		t.Logf("\t%s\tShould not keep votes cast while the block was rolled back.", success)
	}
}

func TestShutdown(t *testing.T) {
	t.Log("Given a node that was shut down.")
	{
		n, _ := newNode(t)
		require.NoError(t, n.Shutdown())

		_, err := n.ProcessBlocks(context.Background())
		require.ErrorIs(t, err, node.ErrShutdown)

		_, err = n.Rollback(context.Background(), types.BlockHash{1})
		require.ErrorIs(t, err, node.ErrShutdown)
		t.Logf("\t%s\tShould refuse writes.", success)
	}
}
