package ledger_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/store/memory"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
	"github.com/stretchr/testify/require"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestConfirm(t *testing.T) {
	t.Log("Given the need to cement a receive and everything it depends on.")
	{
		h := newHarness(t, memory.New())
		key := signature.GenerateKey()
		dest := signature.PublicKeyToAccount(key)

		send := h.send(t, h.key, dest, types.NewAmount(42))
		h.mustProcess(t, send)
		open := h.receive(t, key, send.Hash())
		h.mustProcess(t, open)

		err := h.store.View(func(txn store.ReadTxn) error {
			if _, err := h.ledger.Confirmed().AccountInfo(txn, dest); !errors.Is(err, ledger.ErrAccountNotFound) {
				t.Fatalf("\t%s\tShould hide the uncemented account: %v", failed, err)
			}
			t.Logf("\t%s\tShould hide the uncemented account.", success)

			confirmed, err := h.ledger.AccountReceivable(txn, dest, true)
			require.NoError(t, err)
			require.True(t, confirmed.IsZero())
			return nil
		})
		require.NoError(t, err)

		cemented := h.confirm(t, open.Hash())

		got := make([]types.BlockHash, len(cemented))
		for i, sb := range cemented {
			got[i] = sb.Hash()
		}
		require.Equal(t, []types.BlockHash{send.Hash(), open.Hash()}, got)
		t.Logf("\t%s\tShould cement the send before the open.", success)

		err = h.store.View(func(txn store.ReadTxn) error {
			for _, hash := range []types.BlockHash{h.gen.Hash(), send.Hash(), open.Hash()} {
				ok, err := h.ledger.BlockConfirmed(txn, hash)
				require.NoError(t, err)
				require.True(t, ok, "block %s", hash)
			}

			info, err := h.ledger.Confirmed().AccountInfo(txn, dest)
			require.NoError(t, err)
			require.Equal(t, open.Hash(), info.Head)
			require.True(t, info.Balance.Equal(types.NewAmount(42)))
			return nil
		})
		require.NoError(t, err)
		t.Logf("\t%s\tShould report the cemented blocks as confirmed.", success)

		// Confirming again cements nothing.
		require.Empty(t, h.confirm(t, open.Hash()))
	}
}

func TestConfirmedView(t *testing.T) {
	t.Log("Given an account with blocks above its confirmed frontier.")
	{
		h := newHarness(t, memory.New())
		key := signature.GenerateKey()
		dest := signature.PublicKeyToAccount(key)

		s1 := h.send(t, h.key, dest, types.NewAmount(10))
		h.mustProcess(t, s1)
		h.confirm(t, s1.Hash())

		s2 := h.send(t, h.key, dest, types.NewAmount(5))
		h.mustProcess(t, s2)

		err := h.store.View(func(txn store.ReadTxn) error {
			info, err := h.ledger.Confirmed().AccountInfo(txn, h.account)
			require.NoError(t, err)
			require.Equal(t, s1.Hash(), info.Head)
			require.Equal(t, uint64(2), info.BlockCount)
			exp, _ := h.gen.Supply.Sub(types.NewAmount(10))
			require.True(t, info.Balance.Equal(exp))
			t.Logf("\t%s\tShould describe the account at its frontier.", success)

			height, err := h.ledger.Any().AccountHeight(txn, h.account)
			require.NoError(t, err)
			require.Equal(t, uint64(3), height)

			exists, err := h.ledger.Confirmed().BlockExists(txn, s2.Hash())
			require.NoError(t, err)
			require.False(t, exists)

			_, ok, err := h.ledger.Confirmed().Successor(txn, s1.Hash())
			require.NoError(t, err)
			require.False(t, ok)
			t.Logf("\t%s\tShould hide blocks above the frontier.", success)

			pending, err := h.ledger.Confirmed().Receivable(txn, dest)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			require.Equal(t, s1.Hash(), pending[0].Key.Hash)

			total, err := h.ledger.AccountReceivable(txn, dest, false)
			require.NoError(t, err)
			require.True(t, total.Equal(types.NewAmount(15)))

			confirmed, err := h.ledger.AccountReceivable(txn, dest, true)
			require.NoError(t, err)
			require.True(t, confirmed.Equal(types.NewAmount(10)))
			t.Logf("\t%s\tShould only count receivables of cemented sends.", success)

			balance, err := h.ledger.Any().AccountBalance(txn, dest)
			require.NoError(t, err)
			require.True(t, balance.IsZero())
			return nil
		})
		require.NoError(t, err)
	}
}

func TestPrune(t *testing.T) {
	t.Log("Given a cemented chain of sends.")
	{
		h := newHarness(t, memory.New())
		key := signature.GenerateKey()
		dest := signature.PublicKeyToAccount(key)

		var sends []*block.State
		for range 3 {
			s := h.send(t, h.key, dest, types.NewAmount(1))
			h.mustProcess(t, s)
			sends = append(sends, s)
		}
		top := sends[len(sends)-1]
		h.confirm(t, top.Hash())

		guard := h.ledger.Queue().Wait(writequeue.Pruning)
		var pruned uint64
		err := h.store.Update(func(txn store.WriteTxn) error {
			var err error
			pruned, err = h.ledger.Prune(txn, top.Hash(), 100)
			return err
		})
		guard.Release()
		require.NoError(t, err)

		// Genesis and the first two sends sit below the frontier.
		require.Equal(t, uint64(3), pruned)
		t.Logf("\t%s\tShould prune everything below the frontier.", success)

		err = h.store.View(func(txn store.ReadTxn) error {
			exists, err := h.ledger.Any().BlockExists(txn, sends[0].Hash())
			require.NoError(t, err)
			require.False(t, exists)

			exists, err = h.ledger.Any().BlockExistsOrPruned(txn, sends[0].Hash())
			require.NoError(t, err)
			require.True(t, exists)

			ok, err := h.ledger.BlockConfirmed(txn, sends[0].Hash())
			require.NoError(t, err)
			require.True(t, ok)

			exists, err = h.ledger.Any().BlockExists(txn, top.Hash())
			require.NoError(t, err)
			require.True(t, exists)
			return nil
		})
		require.NoError(t, err)
		t.Logf("\t%s\tShould keep pruned blocks known and confirmed.", success)

		// A pruned send can still be received.
		open := h.receive(t, key, sends[0].Hash())
		h.mustProcess(t, open)

		info, opened := h.info(t, dest)
		require.True(t, opened)
		require.True(t, info.Balance.Equal(types.NewAmount(1)))
		h.checkInvariants(t)
		t.Logf("\t%s\tShould receive from a pruned send.", success)
	}
}

func TestPruneLegacyFrontier(t *testing.T) {
	t.Log("Given a pruned chain whose confirmed frontier is a legacy send.")
	{
		h := newHarness(t, memory.New())
		dest := signature.PublicKeyToAccount(signature.GenerateKey())
		threshold := h.gen.Work.For(types.Epoch0, false)

		genInfo, _ := h.info(t, h.account)
		rep := genInfo.Representative

		previous := h.gen.Hash()
		balance := h.gen.Supply
		var top block.Send
		for range 2 {
			balance, _ = balance.Sub(types.NewAmount(10))
			top = block.Send{Previous: previous, Destination: dest, Balance: balance}
			block.Sign(&top, h.key)
			solve(t, &top, threshold)
			h.mustProcess(t, &top)
			previous = top.Hash()
		}
		h.confirm(t, top.Hash())

		guard := h.ledger.Queue().Wait(writequeue.Pruning)
		var pruned uint64
		err := h.store.Update(func(txn store.WriteTxn) error {
			var err error
			pruned, err = h.ledger.Prune(txn, top.Hash(), 100)
			return err
		})
		guard.Release()
		require.NoError(t, err)
		require.Equal(t, uint64(2), pruned)
		t.Logf("\t%s\tShould prune genesis and the first send.", success)

		send := h.send(t, h.key, dest, types.NewAmount(1))
		h.mustProcess(t, send)

		err = h.store.View(func(txn store.ReadTxn) error {
			info, err := h.ledger.Confirmed().AccountInfo(txn, h.account)
			require.NoError(t, err)
			require.Equal(t, top.Hash(), info.Head)
			require.Equal(t, rep, info.Representative)
			require.True(t, info.Balance.Equal(balance))
			return nil
		})
		require.NoError(t, err)
		t.Logf("\t%s\tShould describe the confirmed frontier without pruned history.", success)

		rolled, err := h.rollback(t, send.Hash())
		require.NoError(t, err)
		require.Equal(t, []types.BlockHash{send.Hash()}, rolled)

		info, opened := h.info(t, h.account)
		require.True(t, opened)
		require.Equal(t, top.Hash(), info.Head)
		require.Equal(t, rep, info.Representative)
		require.True(t, h.ledger.Weight(rep).Equal(balance))
		t.Logf("\t%s\tShould roll back a block above the pruned frontier.", success)
	}
}
