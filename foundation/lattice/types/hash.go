// Package types provides the fixed size value types used throughout the
// lattice: accounts, hashes, signatures, amounts, epochs and the per account
// records the ledger keeps.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockHash is the blake2b-256 content hash of a block.
type BlockHash [32]byte

// ZeroHash represents a hash code of zeros.
var ZeroHash BlockHash

// IsZero reports whether the hash is all zeros.
func (h BlockHash) IsZero() bool {
	return h == ZeroHash
}

// String returns the hash as a 0x prefixed hex string.
func (h BlockHash) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h BlockHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *BlockHash) UnmarshalText(data []byte) error {
	v, err := ParseHash(string(data))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ParseHash decodes a hex encoded hash with or without the 0x prefix.
func ParseHash(s string) (BlockHash, error) {
	var h BlockHash
	if err := decodeHex(s, h[:]); err != nil {
		return BlockHash{}, fmt.Errorf("parse hash: %w", err)
	}
	return h, nil
}

// =============================================================================

// Link is the overloaded 32 byte field of a state block. It is zero, a
// destination account for sends, a source block hash for receives, or an
// epoch sentinel.
type Link [32]byte

// IsZero reports whether the link is all zeros.
func (l Link) IsZero() bool {
	return l == Link{}
}

// AsAccount interprets the link as a destination account.
func (l Link) AsAccount() Account {
	return Account(l)
}

// AsHash interprets the link as a source block hash.
func (l Link) AsHash() BlockHash {
	return BlockHash(l)
}

// String returns the link as a 0x prefixed hex string.
func (l Link) String() string {
	return hexutil.Encode(l[:])
}

// MarshalText implements encoding.TextMarshaler.
func (l Link) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Link) UnmarshalText(data []byte) error {
	return decodeHex(string(data), l[:])
}

// =============================================================================

// Root is the value proof of work is computed against: the previous block
// hash, or the account for open blocks.
type Root [32]byte

// String returns the root as a 0x prefixed hex string.
func (r Root) String() string {
	return hexutil.Encode(r[:])
}

// =============================================================================

// Signature is an ed25519 signature over a block hash.
type Signature [64]byte

// String returns the signature as a 0x prefixed hex string.
func (s Signature) String() string {
	return hexutil.Encode(s[:])
}

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(data []byte) error {
	return decodeHex(string(data), s[:])
}

// =============================================================================

// decodeHex decodes s into dst which must match the decoded length exactly.
func decodeHex(s string, dst []byte) error {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return err
	}

	if len(b) != len(dst) {
		return fmt.Errorf("invalid length, got %d, exp %d", len(b), len(dst))
	}

	copy(dst, b)
	return nil
}
