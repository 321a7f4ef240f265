// Package work implements the anti-spam proof of work attached to every
// block. The work value of a nonce is the little endian uint64 read from an
// 8 byte blake2b digest of the nonce and the block root.
package work

import (
	"context"
	"encoding/binary"
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

// Thresholds holds the minimum work values a block must reach. Blocks of
// accounts below epoch 2 share a single threshold.
type Thresholds struct {
	Epoch1        uint64 `json:"epoch_1"`
	Epoch2        uint64 `json:"epoch_2"`
	Epoch2Receive uint64 `json:"epoch_2_receive"`
}

// Live are the thresholds used by the production network.
var Live = Thresholds{
	Epoch1:        0xffffffc000000000,
	Epoch2:        0xfffffff800000000,
	Epoch2Receive: 0xfffffe0000000000,
}

// Dev are the thresholds used by development networks and tests.
var Dev = Thresholds{
	Epoch1:        0xfe00000000000000,
	Epoch2:        0xffc0000000000000,
	Epoch2Receive: 0xf000000000000000,
}

// For returns the threshold a block needs based on the epoch it leaves the
// account in and whether it receives funds or upgrades the account.
func (t Thresholds) For(epoch types.Epoch, receiveOrEpoch bool) uint64 {
	if epoch < types.Epoch2 {
		return t.Epoch1
	}
	if receiveOrEpoch {
		return t.Epoch2Receive
	}
	return t.Epoch2
}

// Lowest returns the smallest threshold of the set.
func (t Thresholds) Lowest() uint64 {
	return min(t.Epoch1, t.Epoch2, t.Epoch2Receive)
}

// =============================================================================

// Value calculates the work value of a nonce against the root.
func Value(root types.Root, nonce uint64) uint64 {
	h, _ := blake2b.New(8, nil)

	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)
	h.Write(n[:])
	h.Write(root[:])

	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// Validate reports whether the nonce reaches the threshold for the root.
func Validate(root types.Root, nonce uint64, threshold uint64) bool {
	return Value(root, nonce) >= threshold
}

// Difficulty returns how many times harder the value was to produce than the
// base threshold, scaled by 1000 to stay in integer math.
func Difficulty(value uint64, base uint64) uint64 {
	if value == 0 || base == 0 {
		return 0
	}
	return ((^base + 1) / (^value + 1)) * 1000
}

// =============================================================================

// ErrCancelled is returned when generation stopped before a solution.
var ErrCancelled = errors.New("work generation cancelled")

// Generate searches for a nonce that reaches the threshold for the root. Each
// worker starts at a random nonce and walks forward until any worker finds a
// solution or the context is cancelled.
func Generate(ctx context.Context, root types.Root, threshold uint64, ev func(v string, args ...any)) (uint64, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("work: Generate: started: root[%s] threshold[%#x]", root, threshold)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		solved   atomic.Bool
		solution atomic.Uint64
		attempts atomic.Uint64
	)

	g, ctx := errgroup.WithContext(ctx)
	for range runtime.NumCPU() {
		g.Go(func() error {
			nonce := frand.Uint64n(^uint64(0))

			for i := uint64(1); ; i++ {
				if i%100_000 == 0 {
					attempts.Add(100_000)
					if ctx.Err() != nil {
						return nil
					}
				}

				if Value(root, nonce) >= threshold {
					if solved.CompareAndSwap(false, true) {
						solution.Store(nonce)
						cancel()
					}
					return nil
				}
				nonce++
			}
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	if !solved.Load() {
		ev("work: Generate: CANCELLED: attempts[%d]", attempts.Load())
		return 0, ErrCancelled
	}

	nonce := solution.Load()
	ev("work: Generate: SOLVED: root[%s] nonce[%#x] attempts[%d]", root, nonce, attempts.Load())

	return nonce, nil
}
