// Package store provides the transactional storage contract of the ledger and
// the typed tables layered on top of it. Backends only deal in ordered byte
// keys; everything lattice specific lives in the table codecs.
package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Set of error variables for the storage layer.
var (
	ErrNotFound  = errors.New("not found")
	ErrTxnClosed = errors.New("transaction closed")
	ErrClosed    = errors.New("store closed")
)

// Iterator walks keys in ascending byte order. Key and Value are valid until
// the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// ReadTxn is a consistent snapshot of the store. Readers never block
// writers.
type ReadTxn interface {
	Get(key []byte) ([]byte, error)
	Iterate(lower, upper []byte) (Iterator, error)
	Discard()
}

// WriteTxn is the single open write transaction of a backend. It observes its
// own writes. Functions registered with OnCommit run after a successful commit
// in registration order and never after a discard.
type WriteTxn interface {
	ReadTxn
	Set(key, value []byte) error
	Delete(key []byte) error
	OnCommit(fn func())
	Commit() error
}

// Backend is implemented by the storage engines.
type Backend interface {
	BeginRead() (ReadTxn, error)
	BeginWrite() (WriteTxn, error)
	Close() error
}

// =============================================================================

// Table prefixes. The values are part of the persisted format.
const (
	prefixAccounts           byte = 0x01
	prefixBlocks             byte = 0x02
	prefixPending            byte = 0x03
	prefixConfirmationHeight byte = 0x04
	prefixRepWeights         byte = 0x05
	prefixPruned             byte = 0x06
	prefixOnlineWeight       byte = 0x07
	prefixMeta               byte = 0x08
)

// SchemaVersion is the layout version written to the meta table.
const SchemaVersion uint64 = 2

// Meta table keys.
const (
	MetaVersion = "version"
	MetaGenesis = "genesis"
)

// Store bundles the ledger tables over a backend.
type Store struct {
	Backend

	Accounts           Table[types.Account, types.AccountInfo]
	Blocks             Table[types.BlockHash, block.SavedBlock]
	Pending            Table[types.PendingKey, types.PendingInfo]
	ConfirmationHeight Table[types.Account, types.ConfirmationHeightInfo]
	RepWeights         Table[types.Account, types.Amount]
	Pruned             Table[types.BlockHash, struct{}]
	OnlineWeight       Table[uint64, types.Amount]
	Meta               Table[string, []byte]
}

// New constructs the table set over the backend.
func New(backend Backend) *Store {
	return &Store{
		Backend:            backend,
		Accounts:           NewTable(prefixAccounts, AccountCodec{}, AccountInfoCodec{}),
		Blocks:             NewTable(prefixBlocks, HashCodec{}, SavedBlockCodec{}),
		Pending:            NewTable(prefixPending, PendingKeyCodec{}, PendingInfoCodec{}),
		ConfirmationHeight: NewTable(prefixConfirmationHeight, AccountCodec{}, ConfirmationHeightCodec{}),
		RepWeights:         NewTable(prefixRepWeights, AccountCodec{}, AmountCodec{}),
		Pruned:             NewTable(prefixPruned, HashCodec{}, EmptyCodec{}),
		OnlineWeight:       NewTable(prefixOnlineWeight, Uint64Codec{}, AmountCodec{}),
		Meta:               NewTable(prefixMeta, StringCodec{}, BytesCodec{}),
	}
}

// View runs the function inside a read transaction.
func (s *Store) View(fn func(txn ReadTxn) error) error {
	txn, err := s.BeginRead()
	if err != nil {
		return err
	}
	defer txn.Discard()

	return fn(txn)
}

// Update runs the function inside a write transaction and commits it when
// the function returns no error.
func (s *Store) Update(fn func(txn WriteTxn) error) error {
	txn, err := s.BeginWrite()
	if err != nil {
		return err
	}
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}

	return txn.Commit()
}

// Version returns the schema version recorded in the store, zero when the
// store is empty.
func (s *Store) Version(txn ReadTxn) (uint64, error) {
	data, err := s.Meta.Get(txn, MetaVersion)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	v, err := Uint64Codec{}.Decode(data)
	if err != nil {
		return 0, fmt.Errorf("version: %w", err)
	}

	return v, nil
}

// SetVersion records the schema version.
func (s *Store) SetVersion(txn WriteTxn, v uint64) error {
	return s.Meta.Put(txn, MetaVersion, Uint64Codec{}.Encode(v))
}

// =============================================================================

// PrefixUpper returns the smallest key greater than every key starting with
// the prefix, or nil when no such key exists.
func PrefixUpper(prefix []byte) []byte {
	upper := bytes.Clone(prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
