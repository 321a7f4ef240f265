// Package signature provides helper functions for handling the lattice
// signature and hashing needs.
package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/hdevalence/ed25519consensus"
	"golang.org/x/crypto/blake2b"
	"lukechampine.com/frand"
)

// ErrInvalidKey is returned when a private key can't be decoded.
var ErrInvalidKey = errors.New("invalid private key")

// =============================================================================

// GenerateKey creates a new random ed25519 key pair.
func GenerateKey() ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(frand.Reader)
	if err != nil {
		panic(err) // frand never fails
	}
	return priv
}

// KeyFromSeed derives the private key from a hex encoded 32 byte seed.
func KeyFromSeed(seed string) (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(seed), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	if len(b) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed length %d", ErrInvalidKey, len(b))
	}

	return ed25519.NewKeyFromSeed(b), nil
}

// LoadKey reads a hex encoded seed from the specified file.
func LoadKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return KeyFromSeed(string(data))
}

// SaveKey writes the seed of the private key hex encoded to the file.
func SaveKey(path string, key ed25519.PrivateKey) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(key.Seed())), 0600)
}

// SeedString returns the hex encoded seed of the private key.
func SeedString(key ed25519.PrivateKey) string {
	return hex.EncodeToString(key.Seed())
}

// PublicKeyToAccount converts the public key of a private key to an account.
func PublicKeyToAccount(key ed25519.PrivateKey) types.Account {
	var a types.Account
	copy(a[:], key.Public().(ed25519.PublicKey))
	return a
}

// =============================================================================

// Sign uses the specified private key to sign the block hash.
func Sign(key ed25519.PrivateKey, hash types.BlockHash) types.Signature {
	var sig types.Signature
	copy(sig[:], ed25519.Sign(key, hash[:]))
	return sig
}

// Verify checks the signature was produced by the account's key over the
// hash. Verification follows the consensus rules of ZIP-215 so every node
// agrees on the same set of valid signatures.
func Verify(account types.Account, hash types.BlockHash, sig types.Signature) bool {
	return ed25519consensus.Verify(ed25519.PublicKey(account[:]), hash[:], sig[:])
}

// =============================================================================

// Hasher accumulates fields into a blake2b-256 digest.
type Hasher struct {
	buf []byte
}

// Write appends the data to the digest input.
func (h *Hasher) Write(data ...[]byte) *Hasher {
	for _, d := range data {
		h.buf = append(h.buf, d...)
	}
	return h
}

// Sum returns the digest of everything written so far.
func (h *Hasher) Sum() types.BlockHash {
	return types.BlockHash(blake2b.Sum256(h.buf))
}
