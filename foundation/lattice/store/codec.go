package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

func checkSize(data []byte, n int, what string) error {
	if len(data) != n {
		return fmt.Errorf("%s: got %d bytes, want %d", what, len(data), n)
	}
	return nil
}

// AccountCodec encodes accounts as their 32 raw bytes.
type AccountCodec struct{}

func (AccountCodec) Encode(a types.Account) []byte { return bytes.Clone(a[:]) }

func (AccountCodec) Decode(data []byte) (types.Account, error) {
	var a types.Account
	if err := checkSize(data, len(a), "account"); err != nil {
		return a, err
	}
	copy(a[:], data)
	return a, nil
}

// HashCodec encodes block hashes as their 32 raw bytes.
type HashCodec struct{}

func (HashCodec) Encode(h types.BlockHash) []byte { return bytes.Clone(h[:]) }

func (HashCodec) Decode(data []byte) (types.BlockHash, error) {
	var h types.BlockHash
	if err := checkSize(data, len(h), "hash"); err != nil {
		return h, err
	}
	copy(h[:], data)
	return h, nil
}

// PendingKeyCodec encodes the destination account followed by the send hash
// so the entries of one account are contiguous.
type PendingKeyCodec struct{}

func (PendingKeyCodec) Encode(k types.PendingKey) []byte {
	b := make([]byte, 0, 64)
	b = append(b, k.Account[:]...)
	return append(b, k.Hash[:]...)
}

func (PendingKeyCodec) Decode(data []byte) (types.PendingKey, error) {
	var k types.PendingKey
	if err := checkSize(data, 64, "pending key"); err != nil {
		return k, err
	}
	copy(k.Account[:], data[:32])
	copy(k.Hash[:], data[32:])
	return k, nil
}

// Uint64Codec encodes big endian so keys sort numerically.
type Uint64Codec struct{}

func (Uint64Codec) Encode(v uint64) []byte { return binary.BigEndian.AppendUint64(nil, v) }

func (Uint64Codec) Decode(data []byte) (uint64, error) {
	if err := checkSize(data, 8, "uint64"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// AmountCodec encodes amounts as 16 big endian bytes.
type AmountCodec struct{}

func (AmountCodec) Encode(a types.Amount) []byte {
	b := a.Bytes()
	return b[:]
}

func (AmountCodec) Decode(data []byte) (types.Amount, error) {
	return types.AmountFromBytes(data)
}

// StringCodec stores strings as raw bytes.
type StringCodec struct{}

func (StringCodec) Encode(s string) []byte { return []byte(s) }

func (StringCodec) Decode(data []byte) (string, error) { return string(data), nil }

// BytesCodec stores byte slices unchanged.
type BytesCodec struct{}

func (BytesCodec) Encode(b []byte) []byte { return bytes.Clone(b) }

func (BytesCodec) Decode(data []byte) ([]byte, error) { return bytes.Clone(data), nil }

// EmptyCodec is used by set like tables.
type EmptyCodec struct{}

func (EmptyCodec) Encode(struct{}) []byte { return []byte{} }

func (EmptyCodec) Decode([]byte) (struct{}, error) { return struct{}{}, nil }

// =============================================================================

const sizeAccountInfo = 32 + 32 + 32 + types.AmountSize + 8 + 8 + 1

// AccountInfoCodec encodes the account head record.
type AccountInfoCodec struct{}

func (AccountInfoCodec) Encode(ai types.AccountInfo) []byte {
	b := make([]byte, 0, sizeAccountInfo)
	b = append(b, ai.Head[:]...)
	b = append(b, ai.Representative[:]...)
	b = append(b, ai.OpenBlock[:]...)
	bal := ai.Balance.Bytes()
	b = append(b, bal[:]...)
	b = binary.BigEndian.AppendUint64(b, ai.Modified)
	b = binary.BigEndian.AppendUint64(b, ai.BlockCount)
	return append(b, byte(ai.Epoch))
}

func (AccountInfoCodec) Decode(data []byte) (types.AccountInfo, error) {
	var ai types.AccountInfo
	if err := checkSize(data, sizeAccountInfo, "account info"); err != nil {
		return ai, err
	}

	copy(ai.Head[:], data[0:32])
	copy(ai.Representative[:], data[32:64])
	copy(ai.OpenBlock[:], data[64:96])

	bal, err := types.AmountFromBytes(data[96:112])
	if err != nil {
		return ai, err
	}
	ai.Balance = bal
	ai.Modified = binary.BigEndian.Uint64(data[112:120])
	ai.BlockCount = binary.BigEndian.Uint64(data[120:128])
	ai.Epoch = types.Epoch(data[128])

	return ai, nil
}

const sizePendingInfo = 32 + types.AmountSize + 1

// PendingInfoCodec encodes receivable entries.
type PendingInfoCodec struct{}

func (PendingInfoCodec) Encode(pi types.PendingInfo) []byte {
	b := make([]byte, 0, sizePendingInfo)
	b = append(b, pi.Source[:]...)
	amt := pi.Amount.Bytes()
	b = append(b, amt[:]...)
	return append(b, byte(pi.Epoch))
}

func (PendingInfoCodec) Decode(data []byte) (types.PendingInfo, error) {
	var pi types.PendingInfo
	if err := checkSize(data, sizePendingInfo, "pending info"); err != nil {
		return pi, err
	}

	copy(pi.Source[:], data[:32])
	amt, err := types.AmountFromBytes(data[32:48])
	if err != nil {
		return pi, err
	}
	pi.Amount = amt
	pi.Epoch = types.Epoch(data[48])

	return pi, nil
}

// ConfirmationHeightCodec encodes the height followed by the frontier hash.
type ConfirmationHeightCodec struct{}

func (ConfirmationHeightCodec) Encode(ch types.ConfirmationHeightInfo) []byte {
	b := binary.BigEndian.AppendUint64(make([]byte, 0, 40), ch.Height)
	return append(b, ch.Frontier[:]...)
}

func (ConfirmationHeightCodec) Decode(data []byte) (types.ConfirmationHeightInfo, error) {
	var ch types.ConfirmationHeightInfo
	if err := checkSize(data, 40, "confirmation height"); err != nil {
		return ch, err
	}
	ch.Height = binary.BigEndian.Uint64(data[:8])
	copy(ch.Frontier[:], data[8:])
	return ch, nil
}

// SavedBlockCodec stores the block followed by its sideband.
type SavedBlockCodec struct{}

func (SavedBlockCodec) Encode(sb block.SavedBlock) []byte {
	data, err := sb.MarshalBinary()
	if err != nil {
		panic(err) // only a nil block fails, which is a programming error
	}
	return data
}

func (SavedBlockCodec) Decode(data []byte) (block.SavedBlock, error) {
	var sb block.SavedBlock
	err := sb.UnmarshalBinary(data)
	return sb, err
}
