// Package block defines the closed set of block variants that make up account
// chains, their hashing rules, the sideband metadata computed at insertion and
// the binary and JSON codecs used to store and move them.
package block

import (
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Type identifies a block variant. The values are part of the persisted
// format and must not change.
type Type uint8

// Set of block types.
const (
	TypeInvalid   Type = 0
	TypeNotABlock Type = 1
	TypeSend      Type = 2
	TypeReceive   Type = 3
	TypeOpen      Type = 4
	TypeChange    Type = 5
	TypeState     Type = 6
)

// statePreamble is the size of the prefix hashed ahead of state fields.
const statePreamble = 32

// String implements the fmt.Stringer interface.
func (t Type) String() string {
	switch t {
	case TypeSend:
		return "send"
	case TypeReceive:
		return "receive"
	case TypeOpen:
		return "open"
	case TypeChange:
		return "change"
	case TypeState:
		return "state"
	case TypeNotABlock:
		return "not_a_block"
	}
	return "invalid"
}

// ParseType converts the string form back to a type.
func ParseType(s string) (Type, error) {
	for t := TypeSend; t <= TypeState; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown block type %q", s)
}

// =============================================================================

// Block is implemented by the five block variants only. Variant specific
// fields are reached with a type switch or the helper functions below.
type Block interface {
	Type() Type
	Hash() types.BlockHash
	Root() types.Root
	PreviousHash() types.BlockHash
	BlockSignature() types.Signature
	BlockWork() uint64

	setSignature(types.Signature)
	setWork(uint64)
}

// Send is a legacy block moving funds out of the account. Balance is the
// account balance after the send.
type Send struct {
	Previous    types.BlockHash
	Destination types.Account
	Balance     types.Amount
	Signature   types.Signature
	Work        uint64
}

// Receive is a legacy block pocketing a pending send.
type Receive struct {
	Previous  types.BlockHash
	Source    types.BlockHash
	Signature types.Signature
	Work      uint64
}

// Open is the legacy first block of an account. It must receive a pending
// send.
type Open struct {
	Source         types.BlockHash
	Representative types.Account
	Account        types.Account
	Signature      types.Signature
	Work           uint64
}

// Change is a legacy block switching the account's representative.
type Change struct {
	Previous       types.BlockHash
	Representative types.Account
	Signature      types.Signature
	Work           uint64
}

// State carries the full account state. What it does is derived by comparing
// it with the previous state: a lower balance sends to the link account, a
// higher balance receives the link hash, an epoch link upgrades the account
// and a zero link with equal balance only changes the representative.
type State struct {
	Account        types.Account
	Previous       types.BlockHash
	Representative types.Account
	Balance        types.Amount
	Link           types.Link
	Signature      types.Signature
	Work           uint64
}

// =============================================================================

// Type implements the Block interface.
func (*Send) Type() Type { return TypeSend }

// Type implements the Block interface.
func (*Receive) Type() Type { return TypeReceive }

// Type implements the Block interface.
func (*Open) Type() Type { return TypeOpen }

// Type implements the Block interface.
func (*Change) Type() Type { return TypeChange }

// Type implements the Block interface.
func (*State) Type() Type { return TypeState }

// Hash returns the blake2b-256 digest of the send fields.
func (b *Send) Hash() types.BlockHash {
	bal := b.Balance.Bytes()
	var h signature.Hasher
	return h.Write(b.Previous[:], b.Destination[:], bal[:]).Sum()
}

// Hash returns the blake2b-256 digest of the receive fields.
func (b *Receive) Hash() types.BlockHash {
	var h signature.Hasher
	return h.Write(b.Previous[:], b.Source[:]).Sum()
}

// Hash returns the blake2b-256 digest of the open fields.
func (b *Open) Hash() types.BlockHash {
	var h signature.Hasher
	return h.Write(b.Source[:], b.Representative[:], b.Account[:]).Sum()
}

// Hash returns the blake2b-256 digest of the change fields.
func (b *Change) Hash() types.BlockHash {
	var h signature.Hasher
	return h.Write(b.Previous[:], b.Representative[:]).Sum()
}

// Hash returns the blake2b-256 digest of the state fields. A preamble holding
// the state type keeps state hashes disjoint from the legacy ones.
func (b *State) Hash() types.BlockHash {
	var preamble [statePreamble]byte
	preamble[statePreamble-1] = byte(TypeState)

	bal := b.Balance.Bytes()
	var h signature.Hasher
	return h.Write(preamble[:], b.Account[:], b.Previous[:], b.Representative[:], bal[:], b.Link[:]).Sum()
}

// Root implements the Block interface.
func (b *Send) Root() types.Root { return types.Root(b.Previous) }

// Root implements the Block interface.
func (b *Receive) Root() types.Root { return types.Root(b.Previous) }

// Root implements the Block interface. Opens have no previous block so the
// account is used.
func (b *Open) Root() types.Root { return types.Root(b.Account) }

// Root implements the Block interface.
func (b *Change) Root() types.Root { return types.Root(b.Previous) }

// Root implements the Block interface.
func (b *State) Root() types.Root {
	if b.Previous.IsZero() {
		return types.Root(b.Account)
	}
	return types.Root(b.Previous)
}

// PreviousHash implements the Block interface.
func (b *Send) PreviousHash() types.BlockHash { return b.Previous }

// PreviousHash implements the Block interface.
func (b *Receive) PreviousHash() types.BlockHash { return b.Previous }

// PreviousHash implements the Block interface.
func (b *Open) PreviousHash() types.BlockHash { return types.ZeroHash }

// PreviousHash implements the Block interface.
func (b *Change) PreviousHash() types.BlockHash { return b.Previous }

// PreviousHash implements the Block interface.
func (b *State) PreviousHash() types.BlockHash { return b.Previous }

func (b *Send) BlockSignature() types.Signature    { return b.Signature }
func (b *Receive) BlockSignature() types.Signature { return b.Signature }
func (b *Open) BlockSignature() types.Signature    { return b.Signature }
func (b *Change) BlockSignature() types.Signature  { return b.Signature }
func (b *State) BlockSignature() types.Signature   { return b.Signature }

func (b *Send) BlockWork() uint64    { return b.Work }
func (b *Receive) BlockWork() uint64 { return b.Work }
func (b *Open) BlockWork() uint64    { return b.Work }
func (b *Change) BlockWork() uint64  { return b.Work }
func (b *State) BlockWork() uint64   { return b.Work }

func (b *Send) setSignature(s types.Signature)    { b.Signature = s }
func (b *Receive) setSignature(s types.Signature) { b.Signature = s }
func (b *Open) setSignature(s types.Signature)    { b.Signature = s }
func (b *Change) setSignature(s types.Signature)  { b.Signature = s }
func (b *State) setSignature(s types.Signature)   { b.Signature = s }

func (b *Send) setWork(w uint64)    { b.Work = w }
func (b *Receive) setWork(w uint64) { b.Work = w }
func (b *Open) setWork(w uint64)    { b.Work = w }
func (b *Change) setWork(w uint64)  { b.Work = w }
func (b *State) setWork(w uint64)   { b.Work = w }

// =============================================================================

// IsOpen reports whether the block starts an account chain.
func IsOpen(b Block) bool {
	switch b := b.(type) {
	case *Open:
		return true
	case *State:
		return b.Previous.IsZero()
	}
	return false
}

// IsLegacy reports whether the block is one of the pre-state variants.
func IsLegacy(b Block) bool {
	return b.Type() != TypeState
}

// Account returns the account field for the variants that carry one.
func Account(b Block) (types.Account, bool) {
	switch b := b.(type) {
	case *Open:
		return b.Account, true
	case *State:
		return b.Account, true
	}
	return types.Account{}, false
}

// Representative returns the representative field for the variants that
// carry one.
func Representative(b Block) (types.Account, bool) {
	switch b := b.(type) {
	case *Open:
		return b.Representative, true
	case *Change:
		return b.Representative, true
	case *State:
		return b.Representative, true
	}
	return types.Account{}, false
}

// Balance returns the balance field for the variants that carry one.
func Balance(b Block) (types.Amount, bool) {
	switch b := b.(type) {
	case *Send:
		return b.Balance, true
	case *State:
		return b.Balance, true
	}
	return types.Amount{}, false
}

// Source returns the source hash of the legacy receive shaped variants.
func Source(b Block) (types.BlockHash, bool) {
	switch b := b.(type) {
	case *Receive:
		return b.Source, true
	case *Open:
		return b.Source, true
	}
	return types.BlockHash{}, false
}

// Destination returns the destination of a legacy send.
func Destination(b Block) (types.Account, bool) {
	if s, ok := b.(*Send); ok {
		return s.Destination, true
	}
	return types.Account{}, false
}

// Link returns the link field of a state block.
func Link(b Block) (types.Link, bool) {
	if s, ok := b.(*State); ok {
		return s.Link, true
	}
	return types.Link{}, false
}
