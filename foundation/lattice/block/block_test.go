package block_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/google/go-cmp/cmp"
	"lukechampine.com/frand"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func randHash() types.BlockHash  { return types.BlockHash(frand.Entropy256()) }
func randAccount() types.Account { return types.Account(frand.Entropy256()) }

func sampleBlocks() []block.Block {
	key := signature.GenerateKey()

	blocks := []block.Block{
		&block.Send{Previous: randHash(), Destination: randAccount(), Balance: types.NewAmount(1000)},
		&block.Receive{Previous: randHash(), Source: randHash()},
		&block.Open{Source: randHash(), Representative: randAccount(), Account: randAccount()},
		&block.Change{Previous: randHash(), Representative: randAccount()},
		block.NewState(key).Previous(randHash()).Representative(randAccount()).Balance(types.MaxAmount).SendTo(randAccount()).Build(),
	}

	for _, b := range blocks {
		block.Sign(b, key)
		block.SetWork(b, frand.Uint64n(^uint64(0)))
	}

	return blocks
}

// =============================================================================

func TestHashing(t *testing.T) {
	t.Log("Given the need to identify blocks by the hash of their fields.")
	{
		s := &block.State{Account: randAccount(), Previous: randHash(), Balance: types.NewAmount(5), Link: types.Link(randHash())}
		h1 := s.Hash()

		s.Work = 42
		s.Signature = types.Signature{1, 2, 3}
		if s.Hash() != h1 {
			t.Fatalf("\t%s\tShould exclude signature and work from the hash.", failed)
		}
		t.Logf("\t%s\tShould exclude signature and work from the hash.", success)

		s.Balance = types.NewAmount(6)
		if s.Hash() == h1 {
			t.Fatalf("\t%s\tShould change the hash when a field changes.", failed)
		}
		t.Logf("\t%s\tShould change the hash when a field changes.", success)

		prev, src := randHash(), randHash()
		r := &block.Receive{Previous: prev, Source: src}
		c := &block.Change{Previous: prev, Representative: types.Account(src)}
		if r.Hash() != c.Hash() {
			t.Fatalf("\t%s\tShould hash legacy receive and change over the same raw fields.", failed)
		}

		st := &block.State{Previous: prev, Link: types.Link(src)}
		if st.Hash() == r.Hash() {
			t.Fatalf("\t%s\tShould keep state hashes apart from legacy hashes.", failed)
		}
		t.Logf("\t%s\tShould keep state hashes apart from legacy hashes.", success)
	}
}

func TestRoots(t *testing.T) {
	t.Log("Given the need to bind work to the right root.")
	{
		acct := randAccount()
		open := &block.State{Account: acct}
		if open.Root() != types.Root(acct) || !block.IsOpen(open) {
			t.Fatalf("\t%s\tShould use the account as the root of a state open.", failed)
		}
		t.Logf("\t%s\tShould use the account as the root of a state open.", success)

		prev := randHash()
		next := &block.State{Account: acct, Previous: prev}
		if next.Root() != types.Root(prev) || block.IsOpen(next) {
			t.Fatalf("\t%s\tShould use the previous hash as the root otherwise.", failed)
		}
		t.Logf("\t%s\tShould use the previous hash as the root otherwise.", success)
	}
}

func TestBinaryCodec(t *testing.T) {
	t.Log("Given the need to persist saved blocks.")
	{
		for testID, b := range sampleBlocks() {
			sb := block.SavedBlock{
				Block: b,
				Sideband: block.Sideband{
					Height:      uint64(testID + 1),
					Timestamp:   1_700_000_000,
					Successor:   randHash(),
					Account:     randAccount(),
					Balance:     types.NewAmount(77),

					Representative: randAccount(),
					Details:     block.Details{Epoch: types.Epoch2, IsReceive: true},
					SourceEpoch: types.Epoch1,
				},
			}

			data, err := sb.MarshalBinary()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode a %s block: %v", failed, testID, b.Type(), err)
			}

			var got block.SavedBlock
			if err := got.UnmarshalBinary(data); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode a %s block: %v", failed, testID, b.Type(), err)
			}

			if diff := cmp.Diff(sb, got); diff != "" {
				t.Fatalf("\t%s\tTest %d:\tShould get back the same %s block:\n%s", failed, testID, b.Type(), diff)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the same %s block.", success, testID, b.Type())

			if _, err := block.Decode(data[:len(data)-block.SizeSideband-3]); !errors.Is(err, block.ErrInvalidEncoding) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a truncated %s block: %v", failed, testID, b.Type(), err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a truncated %s block.", success, testID, b.Type())
		}

		if _, err := block.Decode([]byte{9, 1, 2}); !errors.Is(err, block.ErrInvalidEncoding) {
			t.Fatalf("\t%s\tShould reject an unknown block type: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an unknown block type.", success)
	}
}

func TestJSONCodec(t *testing.T) {
	t.Log("Given the need to exchange blocks as JSON.")
	{
		for testID, b := range sampleBlocks() {
			data, err := json.Marshal(block.Envelope{Block: b})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to marshal a %s block: %v", failed, testID, b.Type(), err)
			}

			var env block.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal a %s block: %v", failed, testID, b.Type(), err)
			}

			if env.Block.Hash() != b.Hash() || env.Block.BlockWork() != b.BlockWork() || env.Block.BlockSignature() != b.BlockSignature() {
				t.Fatalf("\t%s\tTest %d:\tShould get back the same %s block: %s", failed, testID, b.Type(), data)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the same %s block.", success, testID, b.Type())
		}

		var env block.Envelope
		err := json.Unmarshal([]byte(`{"type":"send","previous":"0x00","work":"01"}`), &env)
		if err == nil {
			t.Fatalf("\t%s\tShould reject a block with missing fields.", failed)
		}
		t.Logf("\t%s\tShould reject a block with missing fields.", success)
	}
}

func TestDetails(t *testing.T) {
	t.Log("Given the need to pack block details into a byte.")
	{
		for _, d := range []block.Details{
			{Epoch: types.Epoch0, IsSend: true},
			{Epoch: types.Epoch1, IsReceive: true},
			{Epoch: types.Epoch2, IsEpoch: true},
			{Epoch: types.Epoch2},
		} {
			if got := block.UnpackDetails(d.Pack()); got != d {
				t.Fatalf("\t%s\tShould round trip details %+v, got %+v.", failed, d, got)
			}
		}
		t.Logf("\t%s\tShould round trip details.", success)
	}
}
