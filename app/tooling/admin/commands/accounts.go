package commands

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Weights prints the representative weights, heaviest first.
func Weights(args []string, st *store.Store) error {
	type weight struct {
		rep    types.Account
		amount types.Amount
	}

	var weights []weight
	err := st.View(func(txn store.ReadTxn) error {
		return st.RepWeights.ForEach(txn, func(rep types.Account, amount types.Amount) error {
			weights = append(weights, weight{rep, amount})
			return nil
		})
	})
	if err != nil {
		return err
	}

	slices.SortFunc(weights, func(a, b weight) int {
		return b.amount.Cmp(a.amount)
	})

	for _, w := range weights {
		fmt.Printf("Representative: %s  Weight: %s\n", w.rep.Address(), w.amount)
	}

	return nil
}

// Account prints the account record and its confirmation height.
//
//	admin account <address>
func Account(args []string, st *store.Store) error {
	if len(args) < 3 {
		return errors.New("usage: admin account <address>")
	}

	acct, err := types.ParseAccount(args[2])
	if err != nil {
		return err
	}

	return st.View(func(txn store.ReadTxn) error {
		info, err := st.Accounts.Get(txn, acct)
		if err != nil {
			return err
		}

		ch, err := st.ConfirmationHeight.Get(txn, acct)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		fmt.Printf("Account:        %s\n", acct.Address())
		fmt.Printf("Head:           %s\n", info.Head)
		fmt.Printf("Open:           %s\n", info.OpenBlock)
		fmt.Printf("Representative: %s\n", info.Representative.Address())
		fmt.Printf("Balance:        %s\n", info.Balance)
		fmt.Printf("Blocks:         %d\n", info.BlockCount)
		fmt.Printf("Epoch:          %s\n", info.Epoch)
		fmt.Printf("Cemented:       %d %s\n", ch.Height, ch.Frontier)
		return nil
	})
}

// Chain walks the account chain from the head down.
//
//	admin chain <address> [count]
func Chain(args []string, st *store.Store) error {
	if len(args) < 3 {
		return errors.New("usage: admin chain <address> [count]")
	}

	acct, err := types.ParseAccount(args[2])
	if err != nil {
		return err
	}

	count := uint64(20)
	if len(args) > 3 {
		if count, err = strconv.ParseUint(args[3], 10, 64); err != nil {
			return err
		}
	}

	return st.View(func(txn store.ReadTxn) error {
		info, err := st.Accounts.Get(txn, acct)
		if err != nil {
			return err
		}

		hash := info.Head
		for range count {
			if hash.IsZero() {
				break
			}

			sb, err := st.Blocks.Get(txn, hash)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Printf("%s  pruned\n", hash)
				break
			}
			if err != nil {
				return err
			}

			fmt.Printf("%6d  %s  %-8s balance[%s]\n", sb.Height(), hash, sb.Block.Type(), sb.Balance())
			hash = sb.Block.PreviousHash()
		}

		return nil
	})
}
