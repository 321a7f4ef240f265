package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// AddressPrefix starts every textual account address.
const AddressPrefix = "lat_"

// alphabet is the base32 alphabet used for account addresses. It leaves out
// the characters that are easily confused with each other.
const alphabet = "13456789abcdefghijkmnopqrstuwxyz"

// ErrInvalidAddress is returned when an address can't be decoded.
var ErrInvalidAddress = errors.New("invalid account address")

// Account is the 256 bit ed25519 public key that identifies an account chain.
type Account [32]byte

// BurnAccount is the all zero account. It can receive funds but can never
// be opened.
var BurnAccount Account

// IsZero reports whether this is the burn account.
func (a Account) IsZero() bool {
	return a == BurnAccount
}

// Hex returns the account as a 0x prefixed hex string.
func (a Account) Hex() string {
	return hexutil.Encode(a[:])
}

// String returns the account in address form.
func (a Account) String() string {
	return a.Address()
}

// Address encodes the account as a checksummed base32 address.
func (a Account) Address() string {
	var sb strings.Builder
	sb.WriteString(AddressPrefix)
	sb.WriteString(encode32(a[:], 4))
	sb.WriteString(encode32(checksum(a), 0))
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.Address()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Account) UnmarshalText(data []byte) error {
	v, err := ParseAccount(string(data))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAccount accepts an account in address form or as a hex encoded key.
func ParseAccount(s string) (Account, error) {
	if !strings.HasPrefix(s, AddressPrefix) {
		var a Account
		if err := decodeHex(s, a[:]); err != nil {
			return Account{}, fmt.Errorf("parse account: %w", err)
		}
		return a, nil
	}

	body := s[len(AddressPrefix):]
	if len(body) != 60 {
		return Account{}, ErrInvalidAddress
	}

	key, err := decode32(body[:52], 4, 32)
	if err != nil {
		return Account{}, err
	}

	sum, err := decode32(body[52:], 0, 5)
	if err != nil {
		return Account{}, err
	}

	var a Account
	copy(a[:], key)

	if string(checksum(a)) != string(sum) {
		return Account{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	return a, nil
}

// =============================================================================

// checksum returns the 5 byte blake2b digest of the key in reverse order.
func checksum(a Account) []byte {
	h, _ := blake2b.New(5, nil)
	h.Write(a[:])
	sum := h.Sum(nil)

	for i, j := 0, len(sum)-1; i < j; i, j = i+1, j-1 {
		sum[i], sum[j] = sum[j], sum[i]
	}
	return sum
}

// encode32 writes pad zero bits followed by the bits of data as base32.
func encode32(data []byte, pad int) string {
	total := pad + len(data)*8
	out := make([]byte, 0, total/5)

	for i := 0; i < total; i += 5 {
		var v byte
		for j := 0; j < 5; j++ {
			v <<= 1
			pos := i + j - pad
			if pos >= 0 {
				v |= (data[pos/8] >> (7 - pos%8)) & 1
			}
		}
		out = append(out, alphabet[v])
	}

	return string(out)
}

// decode32 reverses encode32 producing size bytes after dropping pad bits.
func decode32(s string, pad int, size int) ([]byte, error) {
	if len(s)*5 != pad+size*8 {
		return nil, ErrInvalidAddress
	}

	out := make([]byte, size)
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(alphabet, s[i])
		if v < 0 {
			return nil, fmt.Errorf("%w: bad character %q", ErrInvalidAddress, s[i])
		}

		for j := 0; j < 5; j++ {
			bit := (v >> (4 - j)) & 1
			pos := i*5 + j - pad
			if pos < 0 {
				if bit != 0 {
					return nil, ErrInvalidAddress
				}
				continue
			}
			out[pos/8] |= byte(bit) << (7 - pos%8)
		}
	}

	return out, nil
}
