package types

import "fmt"

// Epoch tags an account with the protocol upgrade level it has reached.
type Epoch uint8

// Set of known epochs.
const (
	Epoch0 Epoch = iota
	Epoch1
	Epoch2
)

// MaxEpoch is the highest epoch this ledger understands.
const MaxEpoch = Epoch2

// String implements the fmt.Stringer interface.
func (e Epoch) String() string {
	switch e {
	case Epoch0:
		return "epoch_0"
	case Epoch1:
		return "epoch_1"
	case Epoch2:
		return "epoch_2"
	}
	return fmt.Sprintf("epoch_invalid(%d)", uint8(e))
}

// IsValid reports whether the epoch is known.
func (e Epoch) IsValid() bool {
	return e <= MaxEpoch
}

// IsSequential reports whether next is exactly one upgrade after e.
func (e Epoch) IsSequential(next Epoch) bool {
	return next.IsValid() && next == e+1
}

// MaxEpochOf returns the higher of the epochs.
func MaxEpochOf(a, b Epoch) Epoch {
	if a > b {
		return a
	}
	return b
}
