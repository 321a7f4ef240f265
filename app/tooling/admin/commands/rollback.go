package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/lattice/foundation/lattice/genesis"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/writequeue"
	"github.com/ardanlabs/lattice/foundation/logger"
	"go.uber.org/zap"
)

// Rollback removes a block and everything depending on it from an offline
// database. Cemented blocks are refused.
//
//	admin rollback <hash>
func Rollback(args []string, st *store.Store, log *zap.SugaredLogger) error {
	if len(args) < 3 {
		return errors.New("usage: admin rollback <hash>")
	}

	hash, err := types.ParseHash(args[2])
	if err != nil {
		return err
	}

	network := os.Getenv("ADMIN_NETWORK")
	if network == "" {
		network = genesis.NetworkDev
	}

	gen, err := genesis.ForNetwork(network, os.Getenv("ADMIN_GENESIS_FILE"))
	if err != nil {
		return err
	}

	ldgr, err := ledger.New(ledger.Config{
		Store:     st,
		Genesis:   gen,
		EvHandler: logger.EventHandler(log, "admin"),
	})
	if err != nil {
		return err
	}

	guard := ldgr.Queue().Wait(writequeue.BlockProcessor)
	defer guard.Release()

	var rolled []types.BlockHash
	err = st.Update(func(txn store.WriteTxn) error {
		var err error
		rolled, err = ldgr.Rollback(txn, hash)
		return err
	})
	if err != nil {
		return err
	}

	for _, h := range rolled {
		fmt.Println("Rolled back:", h)
	}

	return nil
}
