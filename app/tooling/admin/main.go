// This program performs administrative tasks against a ledger database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ardanlabs/lattice/app/tooling/admin/commands"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/store/disk"
	"github.com/ardanlabs/lattice/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: admin genesis|weights|account|chain|rollback [args]")
	}

	// Creating a genesis file does not need a database.
	if os.Args[1] == "genesis" {
		return commands.Genesis(context.Background(), os.Args)
	}

	path := os.Getenv("ADMIN_DB_PATH")
	if path == "" {
		path = "zlattice/ledger"
	}

	backend, err := disk.New(disk.Config{Path: path, Sync: true, Logger: log})
	if err != nil {
		return err
	}
	st := store.New(backend)
	defer st.Close()

	return processCommands(os.Args, st, log)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, st *store.Store, log *zap.SugaredLogger) error {
	switch args[1] {
	case "weights":
		if err := commands.Weights(args, st); err != nil {
			return fmt.Errorf("getting weights: %w", err)
		}
	case "account":
		if err := commands.Account(args, st); err != nil {
			return fmt.Errorf("getting account: %w", err)
		}
	case "chain":
		if err := commands.Chain(args, st); err != nil {
			return fmt.Errorf("walking chain: %w", err)
		}
	case "rollback":
		if err := commands.Rollback(args, st, log); err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
