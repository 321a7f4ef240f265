package store

import (
	"errors"
	"fmt"
)

// Codec converts between a value and its stored bytes.
type Codec[T any] interface {
	Encode(v T) []byte
	Decode(data []byte) (T, error)
}

// Table is a typed view over the keys of a backend that share a one byte
// prefix.
type Table[K, V any] struct {
	prefix byte
	keys   Codec[K]
	values Codec[V]
}

// NewTable constructs a table.
func NewTable[K, V any](prefix byte, keys Codec[K], values Codec[V]) Table[K, V] {
	return Table[K, V]{prefix: prefix, keys: keys, values: values}
}

func (t Table[K, V]) key(k K) []byte {
	enc := t.keys.Encode(k)
	key := make([]byte, 1+len(enc))
	key[0] = t.prefix
	copy(key[1:], enc)
	return key
}

// Get returns the value stored under the key or ErrNotFound.
func (t Table[K, V]) Get(txn ReadTxn, k K) (V, error) {
	var zero V

	data, err := txn.Get(t.key(k))
	if err != nil {
		return zero, err
	}

	v, err := t.values.Decode(data)
	if err != nil {
		return zero, fmt.Errorf("decode table[%#x]: %w", t.prefix, err)
	}

	return v, nil
}

// Exists reports whether the key is present.
func (t Table[K, V]) Exists(txn ReadTxn, k K) (bool, error) {
	_, err := txn.Get(t.key(k))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, err
}

// Put stores the value under the key.
func (t Table[K, V]) Put(txn WriteTxn, k K, v V) error {
	return txn.Set(t.key(k), t.values.Encode(v))
}

// Del removes the key. Removing a missing key is not an error.
func (t Table[K, V]) Del(txn WriteTxn, k K) error {
	return txn.Delete(t.key(k))
}

// Count walks the table and returns the number of keys.
func (t Table[K, V]) Count(txn ReadTxn) (uint64, error) {
	it, err := txn.Iterate([]byte{t.prefix}, []byte{t.prefix + 1})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var n uint64
	for it.Next() {
		n++
	}

	return n, it.Err()
}

// Iterate returns a cursor over the whole table.
func (t Table[K, V]) Iterate(txn ReadTxn) (*Cursor[K, V], error) {
	return t.cursor(txn, []byte{t.prefix}, []byte{t.prefix + 1})
}

// IterateFrom returns a cursor starting at the key.
func (t Table[K, V]) IterateFrom(txn ReadTxn, k K) (*Cursor[K, V], error) {
	return t.cursor(txn, t.key(k), []byte{t.prefix + 1})
}

// IteratePrefix returns a cursor over the keys whose encoding starts with the
// raw prefix. Used to scan composite keys such as the pending entries of one
// account.
func (t Table[K, V]) IteratePrefix(txn ReadTxn, prefix []byte) (*Cursor[K, V], error) {
	lower := append([]byte{t.prefix}, prefix...)
	upper := PrefixUpper(lower)
	return t.cursor(txn, lower, upper)
}

// ForEach calls the function for every entry until it returns an error.
func (t Table[K, V]) ForEach(txn ReadTxn, fn func(k K, v V) error) error {
	c, err := t.Iterate(txn)
	if err != nil {
		return err
	}
	defer c.Close()

	for c.Next() {
		if err := fn(c.Key(), c.Value()); err != nil {
			return err
		}
	}

	return c.Err()
}

func (t Table[K, V]) cursor(txn ReadTxn, lower, upper []byte) (*Cursor[K, V], error) {
	it, err := txn.Iterate(lower, upper)
	if err != nil {
		return nil, err
	}
	return &Cursor[K, V]{table: t, it: it}, nil
}

// =============================================================================

// Cursor lazily decodes the entries of a table iteration.
type Cursor[K, V any] struct {
	table Table[K, V]
	it    Iterator
	key   K
	value V
	err   error
}

// Next advances to the next entry. It returns false at the end of the range
// or on the first decode error.
func (c *Cursor[K, V]) Next() bool {
	if c.err != nil || !c.it.Next() {
		return false
	}

	key := c.it.Key()
	k, err := c.table.keys.Decode(key[1:])
	if err != nil {
		c.err = fmt.Errorf("decode key table[%#x]: %w", c.table.prefix, err)
		return false
	}

	v, err := c.table.values.Decode(c.it.Value())
	if err != nil {
		c.err = fmt.Errorf("decode value table[%#x]: %w", c.table.prefix, err)
		return false
	}

	c.key, c.value = k, v
	return true
}

// Key returns the current key.
func (c *Cursor[K, V]) Key() K {
	return c.key
}

// Value returns the current value.
func (c *Cursor[K, V]) Value() V {
	return c.value
}

// Err returns the first error met during iteration.
func (c *Cursor[K, V]) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.it.Err()
}

// Close releases the underlying iterator.
func (c *Cursor[K, V]) Close() error {
	return c.it.Close()
}
