// Package disk implements the store backend on top of pebble. Read
// transactions are pebble snapshots and the write transaction is an indexed
// batch, committed atomically.
package disk

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/cockroachdb/pebble/vfs"
)

// Config represents the configuration required to open the database.
type Config struct {
	Path      string
	InMemory  bool
	Sync      bool
	CacheSize int64
	Logger    pebble.Logger
}

// Backend wraps an open pebble database.
type Backend struct {
	db     *pebble.DB
	wo     *pebble.WriteOptions
	writer chan struct{}
}

// New opens the database at the configured path, creating it if needed.
func New(cfg Config) (*Backend, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64 << 20
	}

	cache := pebble.NewCache(cfg.CacheSize)
	defer cache.Unref()

	opts := pebble.Options{
		Cache:                       cache,
		L0CompactionThreshold:       2,
		L0StopWritesThreshold:       1000,
		LBaseMaxBytes:               64 << 20,
		Levels:                      make([]pebble.LevelOptions, 7),
		MemTableSize:                32 << 20,
		MemTableStopWritesThreshold: 4,
	}

	// Disable seek compaction.
	opts.Experimental.ReadSamplingMultiplier = -1

	for i := range opts.Levels {
		l := &opts.Levels[i]
		l.BlockSize = 32 << 10
		l.IndexBlockSize = 256 << 10
		l.FilterPolicy = bloom.FilterPolicy(10)
		l.FilterType = pebble.TableFilter
		if i > 0 {
			l.TargetFileSize = opts.Levels[i-1].TargetFileSize * 2
		}
		l.EnsureDefaults()
	}
	opts.Levels[6].FilterPolicy = nil

	if cfg.Logger != nil {
		opts.Logger = cfg.Logger
	}

	path := cfg.Path
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
		if path == "" {
			path = "lattice"
		}
	}

	db, err := pebble.Open(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %q: %w", path, err)
	}

	wo := pebble.NoSync
	if cfg.Sync {
		wo = pebble.Sync
	}

	b := Backend{
		db:     db,
		wo:     wo,
		writer: make(chan struct{}, 1),
	}

	return &b, nil
}

// BeginRead implements the store.Backend interface.
func (b *Backend) BeginRead() (store.ReadTxn, error) {
	return &readTxn{snap: b.db.NewSnapshot()}, nil
}

// BeginWrite implements the store.Backend interface. It blocks while another
// write transaction is open.
func (b *Backend) BeginWrite() (store.WriteTxn, error) {
	b.writer <- struct{}{}

	txn := writeTxn{
		backend: b,
		batch:   b.db.NewIndexedBatch(),
	}
	return &txn, nil
}

// Close implements the store.Backend interface.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Metrics returns the pebble metrics for the debug endpoints.
func (b *Backend) Metrics() *pebble.Metrics {
	return b.db.Metrics()
}

// =============================================================================

type readTxn struct {
	snap *pebble.Snapshot
}

func (t *readTxn) Get(key []byte) ([]byte, error) {
	if t.snap == nil {
		return nil, store.ErrTxnClosed
	}

	value, closer, err := t.snap.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	return bytes.Clone(value), nil
}

func (t *readTxn) Iterate(lower, upper []byte) (store.Iterator, error) {
	if t.snap == nil {
		return nil, store.ErrTxnClosed
	}
	return &iterator{it: t.snap.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})}, nil
}

func (t *readTxn) Discard() {
	if t.snap != nil {
		t.snap.Close()
		t.snap = nil
	}
}

// =============================================================================

type writeTxn struct {
	backend *Backend
	batch   *pebble.Batch
	hooks   []func()
}

func (t *writeTxn) Get(key []byte) ([]byte, error) {
	if t.batch == nil {
		return nil, store.ErrTxnClosed
	}

	value, closer, err := t.batch.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	return bytes.Clone(value), nil
}

func (t *writeTxn) Iterate(lower, upper []byte) (store.Iterator, error) {
	if t.batch == nil {
		return nil, store.ErrTxnClosed
	}
	return &iterator{it: t.batch.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})}, nil
}

func (t *writeTxn) Set(key, value []byte) error {
	if t.batch == nil {
		return store.ErrTxnClosed
	}
	return t.batch.Set(key, value, nil)
}

func (t *writeTxn) Delete(key []byte) error {
	if t.batch == nil {
		return store.ErrTxnClosed
	}
	return t.batch.Delete(key, nil)
}

func (t *writeTxn) OnCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

func (t *writeTxn) Commit() error {
	if t.batch == nil {
		return store.ErrTxnClosed
	}

	err := t.batch.Commit(t.backend.wo)
	t.finish()
	if err != nil {
		t.hooks = nil
		return fmt.Errorf("commit: %w", err)
	}

	for _, fn := range t.hooks {
		fn()
	}
	t.hooks = nil

	return nil
}

func (t *writeTxn) Discard() {
	if t.batch == nil {
		return
	}
	t.hooks = nil
	t.finish()
}

func (t *writeTxn) finish() {
	t.batch.Close()
	t.batch = nil
	<-t.backend.writer
}

// =============================================================================

type iterator struct {
	it      *pebble.Iterator
	started bool
}

func (i *iterator) Next() bool {
	if !i.started {
		i.started = true
		return i.it.First()
	}
	return i.it.Next()
}

func (i *iterator) Key() []byte   { return bytes.Clone(i.it.Key()) }
func (i *iterator) Value() []byte { return bytes.Clone(i.it.Value()) }
func (i *iterator) Err() error    { return i.it.Error() }
func (i *iterator) Close() error  { return i.it.Close() }
