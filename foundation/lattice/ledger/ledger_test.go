package ledger_test

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/genesis"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/store/disk"
	"github.com/ardanlabs/lattice/foundation/lattice/store/memory"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1_700_000_000, 0)

// tb is satisfied by *testing.T and *rapid.T.
type tb interface {
	require.TestingT
	Helper()
}

// harness is a ledger over a fresh store seeded with the dev genesis.
type harness struct {
	gen     genesis.Genesis
	key     ed25519.PrivateKey
	account types.Account
	store   *store.Store
	ledger  *ledger.Ledger
}

func newHarness(t tb, backend store.Backend) *harness {
	t.Helper()

	st := store.New(backend)
	gen := genesis.Dev()

	l, err := ledger.New(ledger.Config{
		Store:   st,
		Genesis: gen,
		Now:     func() time.Time { return now },
	})
	require.NoError(t, err)

	return &harness{
		gen:     gen,
		key:     genesis.DevKey(),
		account: gen.Account(),
		store:   st,
		ledger:  l,
	}
}

type backendFactory func(t *testing.T) store.Backend

var backends = map[string]backendFactory{
	"memory": func(t *testing.T) store.Backend {
		return memory.New()
	},
	"pebble": func(t *testing.T) store.Backend {
		b, err := disk.New(disk.Config{InMemory: true})
		require.NoError(t, err)
		return b
	},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, h *harness)) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, factory(t))
			t.Cleanup(func() { h.store.Close() })
			fn(t, h)
		})
	}
}

// =============================================================================

func solve(t tb, b block.Block, threshold uint64) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, block.GenerateWork(ctx, b, threshold, nil))
}

func (h *harness) info(t tb, account types.Account) (types.AccountInfo, bool) {
	t.Helper()

	var info types.AccountInfo
	var opened bool
	err := h.store.View(func(txn store.ReadTxn) error {
		var err error
		info, err = h.ledger.Any().AccountInfo(txn, account)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil
		}
		opened = err == nil
		return err
	})
	require.NoError(t, err)

	return info, opened
}

func (h *harness) process(t tb, blk block.Block) error {
	t.Helper()

	results, err := h.ledger.ProcessBlocks(writequeue.Testing, blk)
	require.NoError(t, err)
	require.Len(t, results, 1)

	return results[0].Err
}

func (h *harness) mustProcess(t tb, blocks ...block.Block) {
	t.Helper()

	for _, blk := range blocks {
		require.NoError(t, h.process(t, blk))
	}
}

// send builds a state send of amount from the key's account.
func (h *harness) send(t tb, key ed25519.PrivateKey, dest types.Account, amount types.Amount) *block.State {
	t.Helper()

	info, opened := h.info(t, signature.PublicKeyToAccount(key))
	require.True(t, opened)

	balance, ok := info.Balance.Sub(amount)
	require.True(t, ok)

	blk := block.NewState(key).
		Previous(info.Head).
		Representative(info.Representative).
		Balance(balance).
		SendTo(dest).
		Build()
	solve(t, blk, h.gen.Work.For(info.Epoch, false))

	return blk
}

// receive builds a state receive, or an open for a new account, pocketing
// the send.
func (h *harness) receive(t tb, key ed25519.PrivateKey, source types.BlockHash) *block.State {
	t.Helper()

	account := signature.PublicKeyToAccount(key)

	var pending types.PendingInfo
	err := h.store.View(func(txn store.ReadTxn) error {
		var err error
		pending, err = h.store.Pending.Get(txn, types.PendingKey{Account: account, Hash: source})
		return err
	})
	require.NoError(t, err)

	info, opened := h.info(t, account)
	if !opened {
		info.Representative = account
	}

	balance, ok := info.Balance.Add(pending.Amount)
	require.True(t, ok)

	blk := block.NewState(key).
		Previous(info.Head).
		Representative(info.Representative).
		Balance(balance).
		ReceiveFrom(source).
		Build()
	solve(t, blk, h.gen.Work.For(types.MaxEpochOf(info.Epoch, pending.Epoch), true))

	return blk
}

func (h *harness) rollback(t tb, hash types.BlockHash) ([]types.BlockHash, error) {
	t.Helper()

	guard := h.ledger.Queue().Wait(writequeue.Testing)
	defer guard.Release()

	var rolled []types.BlockHash
	err := h.store.Update(func(txn store.WriteTxn) error {
		var err error
		rolled, err = h.ledger.Rollback(txn, hash)
		return err
	})

	return rolled, err
}

func (h *harness) confirm(t tb, hash types.BlockHash) []block.SavedBlock {
	t.Helper()

	guard := h.ledger.Queue().Wait(writequeue.ConfirmationHeight)
	defer guard.Release()

	var cemented []block.SavedBlock
	err := h.store.Update(func(txn store.WriteTxn) error {
		var err error
		cemented, err = h.ledger.Confirm(txn, hash)
		return err
	})
	require.NoError(t, err)

	return cemented
}

// =============================================================================

// snapshot is the complete ledger state that block changes touch.
type snapshot struct {
	Accounts map[types.Account]types.AccountInfo
	Blocks   map[types.BlockHash][]byte
	Pending  map[types.PendingKey]types.PendingInfo
	Weights  map[types.Account]types.Amount
	Cache    map[types.Account]types.Amount
}

func (h *harness) snapshot(t tb) snapshot {
	t.Helper()

	s := snapshot{
		Accounts: make(map[types.Account]types.AccountInfo),
		Blocks:   make(map[types.BlockHash][]byte),
		Pending:  make(map[types.PendingKey]types.PendingInfo),
		Weights:  make(map[types.Account]types.Amount),
		Cache:    h.ledger.Weights(),
	}

	err := h.store.View(func(txn store.ReadTxn) error {
		if err := h.store.Accounts.ForEach(txn, func(k types.Account, v types.AccountInfo) error {
			s.Accounts[k] = v
			return nil
		}); err != nil {
			return err
		}

		if err := h.store.Blocks.ForEach(txn, func(k types.BlockHash, v block.SavedBlock) error {
			s.Blocks[k] = store.SavedBlockCodec{}.Encode(v)
			return nil
		}); err != nil {
			return err
		}

		if err := h.store.Pending.ForEach(txn, func(k types.PendingKey, v types.PendingInfo) error {
			s.Pending[k] = v
			return nil
		}); err != nil {
			return err
		}

		return h.store.RepWeights.ForEach(txn, func(k types.Account, v types.Amount) error {
			s.Weights[k] = v
			return nil
		})
	})
	require.NoError(t, err)

	return s
}

// checkInvariants verifies supply conservation and that the weight table and
// cache match the delegated balances.
func (h *harness) checkInvariants(t tb) {
	t.Helper()

	s := h.snapshot(t)

	var total types.Amount
	delegated := make(map[types.Account]types.Amount)
	for _, info := range s.Accounts {
		var ok bool
		total, ok = total.Add(info.Balance)
		require.True(t, ok)

		if !info.Balance.IsZero() {
			delegated[info.Representative], _ = delegated[info.Representative].Add(info.Balance)
		}
	}
	for _, p := range s.Pending {
		var ok bool
		total, ok = total.Add(p.Amount)
		require.True(t, ok)
	}

	require.True(t, total.Equal(h.gen.Supply), "supply not conserved: got %s", total)

	require.Len(t, s.Weights, len(delegated))
	require.Len(t, s.Cache, len(delegated))
	for rep, amount := range delegated {
		require.True(t, s.Weights[rep].Equal(amount), "table weight of %s", rep)
		require.True(t, s.Cache[rep].Equal(amount), "cached weight of %s", rep)
	}
}
