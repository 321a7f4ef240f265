package block

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// ErrInvalidEncoding is returned when bytes can't be decoded into a block.
var ErrInvalidEncoding = errors.New("invalid block encoding")

// Encoded sizes of the variants, excluding the leading type byte.
const (
	sizeSignedWork = 64 + 8
	SizeSend       = 32 + 32 + types.AmountSize + sizeSignedWork
	SizeReceive    = 32 + 32 + sizeSignedWork
	SizeOpen       = 32 + 32 + 32 + sizeSignedWork
	SizeChange     = 32 + 32 + sizeSignedWork
	SizeState      = 32 + 32 + 32 + types.AmountSize + 32 + sizeSignedWork
	SizeSideband   = 32 + 32 + 32 + 8 + types.AmountSize + 8 + 1 + 1
)

// Size returns the encoded body size of the block type.
func Size(t Type) (int, bool) {
	switch t {
	case TypeSend:
		return SizeSend, true
	case TypeReceive:
		return SizeReceive, true
	case TypeOpen:
		return SizeOpen, true
	case TypeChange:
		return SizeChange, true
	case TypeState:
		return SizeState, true
	}
	return 0, false
}

// =============================================================================

type writer struct {
	buf []byte
}

func (w *writer) bytes(b ...[]byte) {
	for _, d := range b {
		w.buf = append(w.buf, d...)
	}
}

func (w *writer) amount(a types.Amount) {
	b := a.Bytes()
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if len(r.buf) < n {
		r.err = fmt.Errorf("%w: need %d bytes, have %d", ErrInvalidEncoding, n, len(r.buf))
		return make([]byte, n)
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) into(dst []byte) {
	copy(dst, r.next(len(dst)))
}

func (r *reader) amount() types.Amount {
	a, err := types.AmountFromBytes(r.next(types.AmountSize))
	if err != nil && r.err == nil {
		r.err = err
	}
	return a
}

func (r *reader) u64() uint64 {
	return binary.BigEndian.Uint64(r.next(8))
}

func (r *reader) u8() byte {
	return r.next(1)[0]
}

// =============================================================================

// Encode serializes the block as a type byte followed by its fields, the
// signature and the work nonce.
func Encode(b Block) []byte {
	size, _ := Size(b.Type())
	w := writer{buf: make([]byte, 0, 1+size)}
	w.buf = append(w.buf, byte(b.Type()))

	switch b := b.(type) {
	case *Send:
		w.bytes(b.Previous[:], b.Destination[:])
		w.amount(b.Balance)
	case *Receive:
		w.bytes(b.Previous[:], b.Source[:])
	case *Open:
		w.bytes(b.Source[:], b.Representative[:], b.Account[:])
	case *Change:
		w.bytes(b.Previous[:], b.Representative[:])
	case *State:
		w.bytes(b.Account[:], b.Previous[:], b.Representative[:])
		w.amount(b.Balance)
		w.bytes(b.Link[:])
	}

	sig := b.BlockSignature()
	w.bytes(sig[:])
	w.u64(b.BlockWork())

	return w.buf
}

// Decode parses a block produced by Encode.
func Decode(data []byte) (Block, error) {
	b, rest, err := decode(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidEncoding, len(rest))
	}
	return b, nil
}

func decode(data []byte) (Block, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty", ErrInvalidEncoding)
	}

	r := reader{buf: data[1:]}

	var b Block
	switch Type(data[0]) {
	case TypeSend:
		var s Send
		r.into(s.Previous[:])
		r.into(s.Destination[:])
		s.Balance = r.amount()
		b = &s
	case TypeReceive:
		var s Receive
		r.into(s.Previous[:])
		r.into(s.Source[:])
		b = &s
	case TypeOpen:
		var s Open
		r.into(s.Source[:])
		r.into(s.Representative[:])
		r.into(s.Account[:])
		b = &s
	case TypeChange:
		var s Change
		r.into(s.Previous[:])
		r.into(s.Representative[:])
		b = &s
	case TypeState:
		var s State
		r.into(s.Account[:])
		r.into(s.Previous[:])
		r.into(s.Representative[:])
		s.Balance = r.amount()
		r.into(s.Link[:])
		b = &s
	default:
		return nil, nil, fmt.Errorf("%w: type %d", ErrInvalidEncoding, data[0])
	}

	var sig types.Signature
	r.into(sig[:])
	b.setSignature(sig)
	b.setWork(r.u64())

	if r.err != nil {
		return nil, nil, r.err
	}

	return b, r.buf, nil
}

// =============================================================================

// EncodeSideband serializes the sideband into its fixed layout.
func EncodeSideband(s Sideband) []byte {
	w := writer{buf: make([]byte, 0, SizeSideband)}
	w.bytes(s.Successor[:], s.Account[:], s.Representative[:])
	w.u64(s.Height)
	w.amount(s.Balance)
	w.u64(s.Timestamp)
	w.buf = append(w.buf, s.Details.Pack(), byte(s.SourceEpoch))
	return w.buf
}

// DecodeSideband parses a sideband produced by EncodeSideband.
func DecodeSideband(data []byte) (Sideband, error) {
	if len(data) != SizeSideband {
		return Sideband{}, fmt.Errorf("%w: sideband size %d", ErrInvalidEncoding, len(data))
	}

	r := reader{buf: data}

	var s Sideband
	r.into(s.Successor[:])
	r.into(s.Account[:])
	r.into(s.Representative[:])
	s.Height = r.u64()
	s.Balance = r.amount()
	s.Timestamp = r.u64()
	s.Details = UnpackDetails(r.u8())
	s.SourceEpoch = types.Epoch(r.u8())

	return s, r.err
}

// MarshalBinary implements the encoding.BinaryMarshaler interface. The block
// is followed by its sideband.
func (sb SavedBlock) MarshalBinary() ([]byte, error) {
	if sb.Block == nil {
		return nil, fmt.Errorf("%w: nil block", ErrInvalidEncoding)
	}
	return append(Encode(sb.Block), EncodeSideband(sb.Sideband)...), nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (sb *SavedBlock) UnmarshalBinary(data []byte) error {
	b, rest, err := decode(data)
	if err != nil {
		return err
	}

	side, err := DecodeSideband(rest)
	if err != nil {
		return err
	}

	sb.Block = b
	sb.Sideband = side
	return nil
}
