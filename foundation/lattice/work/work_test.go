package work_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/work"
	"lukechampine.com/frand"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestThresholds(t *testing.T) {
	type table struct {
		name    string
		epoch   types.Epoch
		receive bool
		exp     uint64
	}

	tt := []table{
		{"epoch0 send", types.Epoch0, false, work.Live.Epoch1},
		{"epoch1 receive", types.Epoch1, true, work.Live.Epoch1},
		{"epoch2 send", types.Epoch2, false, work.Live.Epoch2},
		{"epoch2 receive", types.Epoch2, true, work.Live.Epoch2Receive},
	}

	t.Log("Given the need to pick the work threshold for a block.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				got := work.Live.For(tst.epoch, tst.receive)
				if got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould get threshold %#x, got %#x.", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould get threshold %#x.", success, testID, tst.exp)
			}

			t.Run(tst.name, f)
		}

		if work.Live.Lowest() != work.Live.Epoch2Receive {
			t.Fatalf("\t%s\tShould report the receive threshold as the lowest.", failed)
		}
		t.Logf("\t%s\tShould report the receive threshold as the lowest.", success)
	}
}

func TestGenerate(t *testing.T) {
	t.Log("Given the need to generate work for a root.")
	{
		root := types.Root(frand.Entropy256())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		nonce, err := work.Generate(ctx, root, work.Dev.Epoch2, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate work: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to generate work.", success)

		if !work.Validate(root, nonce, work.Dev.Epoch2) {
			t.Fatalf("\t%s\tShould produce a nonce that reaches the threshold: %#x", failed, work.Value(root, nonce))
		}
		t.Logf("\t%s\tShould produce a nonce that reaches the threshold.", success)

		other := root
		other[0] ^= 0xff
		if work.Value(root, nonce) == work.Value(other, nonce) {
			t.Fatalf("\t%s\tShould bind the work value to the root.", failed)
		}
		t.Logf("\t%s\tShould bind the work value to the root.", success)
	}
}

func TestGenerateCancelled(t *testing.T) {
	t.Log("Given the need to stop generating work on cancellation.")
	{
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// A threshold of all ones is practically unreachable.
		if _, err := work.Generate(ctx, types.Root{}, ^uint64(0), nil); err == nil {
			t.Fatalf("\t%s\tShould return an error when the context is cancelled.", failed)
		}
		t.Logf("\t%s\tShould return an error when the context is cancelled.", success)
	}
}
