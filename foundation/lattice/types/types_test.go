package types_test

import (
	"testing"

	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"lukechampine.com/frand"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func TestAccountAddress(t *testing.T) {
	t.Log("Given the need to encode and decode account addresses.")
	{
		for testID := 0; testID < 20; testID++ {
			var acct types.Account
			copy(acct[:], frand.Bytes(32))

			addr := acct.Address()
			if len(addr) != len(types.AddressPrefix)+60 {
				t.Fatalf("\t%s\tTest %d:\tShould produce a 64 character address: got %d", failed, testID, len(addr))
			}

			got, err := types.ParseAccount(addr)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to parse the address: %v", failed, testID, err)
			}

			if got != acct {
				t.Fatalf("\t%s\tTest %d:\tShould get back the same account.", failed, testID)
			}

			fromHex, err := types.ParseAccount(acct.Hex())
			if err != nil || fromHex != acct {
				t.Fatalf("\t%s\tTest %d:\tShould be able to parse the hex form: %v", failed, testID, err)
			}
		}
		t.Logf("\t%s\tShould round trip random accounts.", success)

		addr := types.BurnAccount.Address()
		bad := []byte(addr)
		if bad[len(bad)-1] == '1' {
			bad[len(bad)-1] = '3'
		} else {
			bad[len(bad)-1] = '1'
		}

		if _, err := types.ParseAccount(string(bad)); err == nil {
			t.Fatalf("\t%s\tShould reject an address with a bad checksum.", failed)
		}
		t.Logf("\t%s\tShould reject an address with a bad checksum.", success)
	}
}

func TestAmountArithmetic(t *testing.T) {
	t.Log("Given the need for overflow checked 128 bit arithmetic.")
	{
		one := types.NewAmount(1)

		if _, ok := types.MaxAmount.Add(one); ok {
			t.Fatalf("\t%s\tShould detect overflow past 2^128-1.", failed)
		}
		t.Logf("\t%s\tShould detect overflow past 2^128-1.", success)

		if _, ok := types.ZeroAmount.Sub(one); ok {
			t.Fatalf("\t%s\tShould detect underflow below zero.", failed)
		}
		t.Logf("\t%s\tShould detect underflow below zero.", success)

		d, neg := types.NewAmount(10).Diff(types.NewAmount(25))
		if !neg || !d.Equal(types.NewAmount(15)) {
			t.Fatalf("\t%s\tShould track the sign of a delta: got %s neg=%v", failed, d, neg)
		}
		t.Logf("\t%s\tShould track the sign of a delta.", success)

		if got := types.MaxAmount.String(); got != "340282366920938463463374607431768211455" {
			t.Fatalf("\t%s\tShould print the max amount in base 10: got %s", failed, got)
		}
		t.Logf("\t%s\tShould print the max amount in base 10.", success)

		half := types.MaxAmount.MulDiv(50, 100)
		back, err := types.AmountFromBytes(func() []byte { b := half.Bytes(); return b[:] }())
		if err != nil || !back.Equal(half) {
			t.Fatalf("\t%s\tShould round trip through bytes: %v", failed, err)
		}
		t.Logf("\t%s\tShould round trip through bytes.", success)

		if _, err := types.ParseAmount("340282366920938463463374607431768211456"); err == nil {
			t.Fatalf("\t%s\tShould reject amounts wider than 128 bits.", failed)
		}
		t.Logf("\t%s\tShould reject amounts wider than 128 bits.", success)
	}
}

func TestEpochSequence(t *testing.T) {
	t.Log("Given the need to only move epochs forward one step at a time.")
	{
		if !types.Epoch0.IsSequential(types.Epoch1) || !types.Epoch1.IsSequential(types.Epoch2) {
			t.Fatalf("\t%s\tShould accept single step upgrades.", failed)
		}
		if types.Epoch0.IsSequential(types.Epoch2) || types.Epoch2.IsSequential(types.Epoch2+1) {
			t.Fatalf("\t%s\tShould reject skipped or unknown epochs.", failed)
		}
		t.Logf("\t%s\tShould only accept single step upgrades.", success)
	}
}
