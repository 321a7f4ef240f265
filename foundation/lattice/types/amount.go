package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// AmountSize is the number of bytes in a serialized amount.
const AmountSize = 16

var (
	// ZeroAmount represents zero raw.
	ZeroAmount Amount

	// MaxAmount is the largest value an Amount can hold, 2^128-1. It is the
	// total supply held by the genesis account.
	MaxAmount = Amount{v: *new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))}

	errAmountRange = errors.New("amount out of 128 bit range")
)

// Amount is an unsigned 128 bit quantity of raw. Arithmetic never wraps: Add
// and Sub report overflow and underflow to the caller.
type Amount struct {
	v uint256.Int
}

// NewAmount constructs an amount from a uint64.
func NewAmount(n uint64) Amount {
	return Amount{v: *uint256.NewInt(n)}
}

// AmountFromBytes decodes a 16 byte big endian amount.
func AmountFromBytes(b []byte) (Amount, error) {
	if len(b) != AmountSize {
		return Amount{}, fmt.Errorf("amount: invalid length %d", len(b))
	}

	var a Amount
	a.v.SetBytes(b)
	return a, nil
}

// ParseAmount decodes a base 10 amount.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount: %w", err)
	}

	if v.BitLen() > 128 {
		return Amount{}, errAmountRange
	}

	return Amount{v: *v}, nil
}

// Bytes returns the amount as 16 big endian bytes.
func (a Amount) Bytes() [AmountSize]byte {
	var b [AmountSize]byte
	a.v.WriteToSlice(b[:])
	return b
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Equal reports whether both amounts hold the same value.
func (a Amount) Equal(b Amount) bool {
	return a.v.Eq(&b.v)
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Add returns a+b. The second value is false when the result doesn't fit in
// 128 bits.
func (a Amount) Add(b Amount) (Amount, bool) {
	var r Amount
	r.v.Add(&a.v, &b.v)
	if r.v.BitLen() > 128 {
		return Amount{}, false
	}
	return r, true
}

// Sub returns a-b. The second value is false when b is larger than a.
func (a Amount) Sub(b Amount) (Amount, bool) {
	var r Amount
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, false
	}
	return r, true
}

// Diff returns the absolute difference between a and b and whether b is
// larger than a. It is how signed balance deltas are tracked.
func (a Amount) Diff(b Amount) (delta Amount, negative bool) {
	if a.Cmp(b) >= 0 {
		d, _ := a.Sub(b)
		return d, false
	}
	d, _ := b.Sub(a)
	return d, true
}

// MulDiv returns a*num/den computed at 256 bit precision. The result is
// clamped to MaxAmount.
func (a Amount) MulDiv(num, den uint64) Amount {
	if den == 0 {
		return ZeroAmount
	}

	var r Amount
	r.v.Mul(&a.v, uint256.NewInt(num))
	r.v.Div(&r.v, uint256.NewInt(den))
	if r.v.BitLen() > 128 {
		return MaxAmount
	}
	return r
}

// Uint64 returns the amount as a uint64 and whether it fits.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// Float64 returns the nearest float64, for metrics and display.
func (a Amount) Float64() float64 {
	f, _ := new(big.Float).SetInt(a.v.ToBig()).Float64()
	return f
}

// String returns the amount in base 10.
func (a Amount) String() string {
	return a.v.Dec()
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	v, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MaxOf returns the larger of the amounts.
func MaxOf(amounts ...Amount) Amount {
	var m Amount
	for _, a := range amounts {
		if a.Cmp(m) > 0 {
			m = a
		}
	}
	return m
}
