// Package commands contains the functionality for the admin tool.
package commands

import (
	"context"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/genesis"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/work"
)

// Genesis creates a genesis file for a new network.
//
//	admin genesis <network> <key file> <out file> [supply]
func Genesis(ctx context.Context, args []string) error {
	if len(args) < 5 {
		return fmt.Errorf("usage: admin genesis <network> <key file> <out file> [supply]")
	}

	network, keyPath, out := args[2], args[3], args[4]

	key, err := signature.LoadKey(keyPath)
	if err != nil {
		return err
	}

	supply := types.MaxAmount
	if len(args) > 5 {
		if supply, err = types.ParseAmount(args[5]); err != nil {
			return err
		}
	}

	thresholds := work.Live
	if network == genesis.NetworkDev || network == genesis.NetworkTest {
		thresholds = work.Dev
	}

	quorum := genesis.Quorum{
		Percent:             67,
		OnlineWeightMinimum: supply.MulDiv(1, 1000),
	}

	g, err := genesis.New(ctx, network, key, supply, thresholds, quorum)
	if err != nil {
		return err
	}

	if err := genesis.Save(out, g); err != nil {
		return err
	}

	fmt.Printf("Genesis: %s  Account: %s  Network: %s\n", g.Hash(), g.Account().Address(), g.Network)
	return nil
}
