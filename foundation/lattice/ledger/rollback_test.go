package ledger_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/store/memory"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRollbackRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, h *harness) {
		key := signature.GenerateKey()
		dest := signature.PublicKeyToAccount(key)

		initial := h.snapshot(t)

		send := h.send(t, h.key, dest, types.NewAmount(500))
		h.mustProcess(t, send)
		afterSend := h.snapshot(t)

		open := h.receive(t, key, send.Hash())
		h.mustProcess(t, open)

		rolled, err := h.rollback(t, open.Hash())
		require.NoError(t, err)
		require.Equal(t, []types.BlockHash{open.Hash()}, rolled)
		if diff := cmp.Diff(afterSend, h.snapshot(t)); diff != "" {
			t.Fatalf("rollback of the open left changes (-want +got):\n%s", diff)
		}

		rolled, err = h.rollback(t, send.Hash())
		require.NoError(t, err)
		require.Equal(t, []types.BlockHash{send.Hash()}, rolled)
		if diff := cmp.Diff(initial, h.snapshot(t)); diff != "" {
			t.Fatalf("rollback of the send left changes (-want +got):\n%s", diff)
		}
	})
}

func TestRollbackCascade(t *testing.T) {
	h := newHarness(t, memory.New())
	initial := h.snapshot(t)

	k1, k2 := signature.GenerateKey(), signature.GenerateKey()
	a1, a2 := signature.PublicKeyToAccount(k1), signature.PublicKeyToAccount(k2)

	// genesis -> a1, a1 opens, a1 -> a2, a2 opens, genesis sends again.
	s1 := h.send(t, h.key, a1, types.NewAmount(100))
	h.mustProcess(t, s1)
	o1 := h.receive(t, k1, s1.Hash())
	h.mustProcess(t, o1)
	s2 := h.send(t, k1, a2, types.NewAmount(40))
	h.mustProcess(t, s2)
	o2 := h.receive(t, k2, s2.Hash())
	h.mustProcess(t, o2)
	s3 := h.send(t, h.key, a2, types.NewAmount(7))
	h.mustProcess(t, s3)

	rolled, err := h.rollback(t, s1.Hash())
	require.NoError(t, err)

	exp := []types.BlockHash{s3.Hash(), o2.Hash(), s2.Hash(), o1.Hash(), s1.Hash()}
	require.Equal(t, exp, rolled)

	if diff := cmp.Diff(initial, h.snapshot(t)); diff != "" {
		t.Fatalf("cascading rollback left changes (-want +got):\n%s", diff)
	}

	_, opened := h.info(t, a2)
	require.False(t, opened)
}

func TestRollbackConfirmed(t *testing.T) {
	h := newHarness(t, memory.New())
	key := signature.GenerateKey()
	dest := signature.PublicKeyToAccount(key)

	send := h.send(t, h.key, dest, types.NewAmount(5))
	h.mustProcess(t, send)
	h.confirm(t, send.Hash())

	open := h.receive(t, key, send.Hash())
	h.mustProcess(t, open)

	before := h.snapshot(t)

	_, err := h.rollback(t, send.Hash())
	require.ErrorIs(t, err, ledger.ErrRollbackConfirmed)

	_, err = h.rollback(t, h.gen.Hash())
	require.ErrorIs(t, err, ledger.ErrRollbackConfirmed)

	_, err = h.rollback(t, types.BlockHash{9})
	require.ErrorIs(t, err, ledger.ErrBlockNotFound)

	if diff := cmp.Diff(before, h.snapshot(t)); diff != "" {
		t.Fatalf("refused rollback left changes (-want +got):\n%s", diff)
	}

	// The unconfirmed open can still go.
	rolled, err := h.rollback(t, open.Hash())
	require.NoError(t, err)
	require.Equal(t, []types.BlockHash{open.Hash()}, rolled)
}

func TestRollbackConfirmedTargetWritesNothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, h *harness) {
		dest := signature.PublicKeyToAccount(signature.GenerateKey())

		cemented := h.send(t, h.key, dest, types.NewAmount(5))
		h.mustProcess(t, cemented)
		h.confirm(t, cemented.Hash())

		above := h.send(t, h.key, dest, types.NewAmount(5))
		h.mustProcess(t, above)

		guard := h.ledger.Queue().Wait(writequeue.Testing)
		defer guard.Release()

		// The refusal is committed to show the transaction was left untouched.
		err := h.store.Update(func(txn store.WriteTxn) error {
			_, err := h.ledger.Rollback(txn, cemented.Hash())
			require.ErrorIs(t, err, ledger.ErrRollbackConfirmed)

			exists, err := h.ledger.Any().BlockExists(txn, above.Hash())
			require.NoError(t, err)
			require.True(t, exists)

			info, err := h.ledger.Any().AccountInfo(txn, h.account)
			require.NoError(t, err)
			require.Equal(t, above.Hash(), info.Head)
			return nil
		})
		require.NoError(t, err)
		h.checkInvariants(t)
	})
}

func TestRollbackSelfSend(t *testing.T) {
	h := newHarness(t, memory.New())
	initial := h.snapshot(t)

	send := h.send(t, h.key, h.account, types.NewAmount(3))
	h.mustProcess(t, send)
	recv := h.receive(t, h.key, send.Hash())
	h.mustProcess(t, recv)
	h.checkInvariants(t)

	rolled, err := h.rollback(t, send.Hash())
	require.NoError(t, err)
	require.Equal(t, []types.BlockHash{recv.Hash(), send.Hash()}, rolled)

	if diff := cmp.Diff(initial, h.snapshot(t)); diff != "" {
		t.Fatalf("self send rollback left changes (-want +got):\n%s", diff)
	}
}

// =============================================================================

func TestConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness(t, memory.New())
		initial := h.snapshot(t)

		keys := []ed25519.PrivateKey{h.key}
		for range 3 {
			keys = append(keys, signature.GenerateKey())
		}

		var first block.Block
		steps := rapid.IntRange(1, 10).Draw(t, "steps")

		for range steps {
			from := keys[rapid.IntRange(0, len(keys)-1).Draw(t, "from")]
			account := signature.PublicKeyToAccount(from)

			pending, err := receivables(h, account)
			require.NoError(t, err)

			if len(pending) > 0 && rapid.Bool().Draw(t, "receive") {
				h.mustProcess(t, h.receive(t, from, pending[0].Key.Hash))
				h.checkInvariants(t)
				continue
			}

			info, opened := h.info(t, account)
			if !opened || info.Balance.IsZero() {
				continue
			}

			limit := uint64(1_000_000)
			if info.Balance.Cmp(types.NewAmount(limit)) < 0 {
				limit, _ = info.Balance.Uint64()
			}
			amount := types.NewAmount(rapid.Uint64Range(1, limit).Draw(t, "amount"))
			to := signature.PublicKeyToAccount(keys[rapid.IntRange(0, len(keys)-1).Draw(t, "to")])

			blk := h.send(t, from, to, amount)
			h.mustProcess(t, blk)
			h.checkInvariants(t)

			if first == nil {
				first = blk
			}
		}

		if first == nil {
			return
		}

		// Every other block depends on the first genesis send.
		_, err := h.rollback(t, first.Hash())
		require.NoError(t, err)
		if diff := cmp.Diff(initial, h.snapshot(t)); diff != "" {
			t.Fatalf("rollback of everything left changes (-want +got):\n%s", diff)
		}
	})
}

func receivables(h *harness, account types.Account) ([]ledger.Receivable, error) {
	var entries []ledger.Receivable
	err := h.store.View(func(txn store.ReadTxn) error {
		var err error
		entries, err = h.ledger.Any().Receivable(txn, account)
		return err
	})
	return entries, err
}
