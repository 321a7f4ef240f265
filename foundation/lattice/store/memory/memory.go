// Package memory implements the store backend with copy on commit maps. It
// keeps everything in process memory and is used by tests and dev nodes.
package memory

import (
	"bytes"
	"maps"
	"slices"

	"github.com/algorand/go-deadlock"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
)

// Backend holds the committed data. The published map is never mutated; a
// commit builds a new map and swaps it in, so open read transactions keep
// their snapshot.
type Backend struct {
	mu     deadlock.RWMutex
	data   map[string][]byte
	writer chan struct{}
	closed bool
}

// New constructs an empty backend.
func New() *Backend {
	return &Backend{
		data:   make(map[string][]byte),
		writer: make(chan struct{}, 1),
	}
}

func (b *Backend) snapshot() (map[string][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, store.ErrClosed
	}
	return b.data, nil
}

// BeginRead implements the store.Backend interface.
func (b *Backend) BeginRead() (store.ReadTxn, error) {
	data, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	return &readTxn{data: data}, nil
}

// BeginWrite implements the store.Backend interface. It blocks while another
// write transaction is open.
func (b *Backend) BeginWrite() (store.WriteTxn, error) {
	b.writer <- struct{}{}

	data, err := b.snapshot()
	if err != nil {
		<-b.writer
		return nil, err
	}

	txn := writeTxn{
		backend: b,
		base:    data,
		overlay: make(map[string][]byte),
	}
	return &txn, nil
}

// Close implements the store.Backend interface.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.data = nil
	return nil
}

func (b *Backend) publish(data map[string][]byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = data
}

// =============================================================================

type readTxn struct {
	data map[string][]byte
}

func (t *readTxn) Get(key []byte) ([]byte, error) {
	if t.data == nil {
		return nil, store.ErrTxnClosed
	}

	v, exists := t.data[string(key)]
	if !exists {
		return nil, store.ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (t *readTxn) Iterate(lower, upper []byte) (store.Iterator, error) {
	if t.data == nil {
		return nil, store.ErrTxnClosed
	}
	return newIterator(t.data, nil, lower, upper), nil
}

func (t *readTxn) Discard() {
	t.data = nil
}

// =============================================================================

// writeTxn layers pending changes over the snapshot. A nil overlay value marks
// a deleted key.
type writeTxn struct {
	backend *Backend
	base    map[string][]byte
	overlay map[string][]byte
	hooks   []func()
	done    bool
}

func (t *writeTxn) Get(key []byte) ([]byte, error) {
	if t.done {
		return nil, store.ErrTxnClosed
	}

	if v, exists := t.overlay[string(key)]; exists {
		if v == nil {
			return nil, store.ErrNotFound
		}
		return bytes.Clone(v), nil
	}

	v, exists := t.base[string(key)]
	if !exists {
		return nil, store.ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (t *writeTxn) Iterate(lower, upper []byte) (store.Iterator, error) {
	if t.done {
		return nil, store.ErrTxnClosed
	}
	return newIterator(t.base, t.overlay, lower, upper), nil
}

func (t *writeTxn) Set(key, value []byte) error {
	if t.done {
		return store.ErrTxnClosed
	}
	if value == nil {
		value = []byte{}
	}
	t.overlay[string(key)] = bytes.Clone(value)
	return nil
}

func (t *writeTxn) Delete(key []byte) error {
	if t.done {
		return store.ErrTxnClosed
	}
	t.overlay[string(key)] = nil
	return nil
}

func (t *writeTxn) OnCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

func (t *writeTxn) Commit() error {
	if t.done {
		return store.ErrTxnClosed
	}

	data := maps.Clone(t.base)
	for k, v := range t.overlay {
		if v == nil {
			delete(data, k)
			continue
		}
		data[k] = v
	}

	t.backend.publish(data)
	t.finish()

	for _, fn := range t.hooks {
		fn()
	}
	t.hooks = nil

	return nil
}

func (t *writeTxn) Discard() {
	if t.done {
		return
	}
	t.hooks = nil
	t.finish()
}

func (t *writeTxn) finish() {
	t.done = true
	t.base = nil
	t.overlay = nil
	<-t.backend.writer
}

// =============================================================================

type iterator struct {
	keys   []string
	values [][]byte
	pos    int
}

func newIterator(base, overlay map[string][]byte, lower, upper []byte) *iterator {
	inRange := func(k string) bool {
		if k < string(lower) {
			return false
		}
		return upper == nil || k < string(upper)
	}

	merged := make(map[string][]byte)
	for k, v := range base {
		if inRange(k) {
			merged[k] = v
		}
	}
	for k, v := range overlay {
		if !inRange(k) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	keys := slices.Sorted(maps.Keys(merged))
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = merged[k]
	}

	return &iterator{keys: keys, values: values, pos: -1}
}

func (it *iterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		it.pos = len(it.keys)
		return false
	}
	it.pos++
	return true
}

func (it *iterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *iterator) Value() []byte { return bytes.Clone(it.values[it.pos]) }
func (it *iterator) Err() error    { return nil }
func (it *iterator) Close() error  { return nil }
