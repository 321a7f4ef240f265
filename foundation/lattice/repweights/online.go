package repweights

import (
	"fmt"
	"slices"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Default quorum settings.
const (
	DefaultQuorumPercent = 67
	DefaultWeightPeriod  = 5 * time.Minute
	DefaultMaxSamples    = 4032
)

// Observer receives the quorum inputs whenever they are recalculated.
type Observer interface {
	ObserveWeights(online, trended, delta types.Amount, reps int)
}

// Config holds the quorum settings.
type Config struct {
	QuorumPercent       uint64
	OnlineWeightMinimum types.Amount
	WeightPeriod        time.Duration
	MaxSamples          int
	Now                 func() time.Time
	Observer            Observer
}

// Online tracks the representatives seen voting recently and the weight
// they hold.
type Online struct {
	mu      deadlock.Mutex
	cfg     Config
	weights *Cache
	store   *store.Store
	seen    map[types.Account]time.Time
	trended types.Amount
}

// NewOnline constructs the online weight tracker over the weight cache.
func NewOnline(cfg Config, weights *Cache, st *store.Store) *Online {
	if cfg.QuorumPercent == 0 || cfg.QuorumPercent > 100 {
		cfg.QuorumPercent = DefaultQuorumPercent
	}
	if cfg.WeightPeriod <= 0 {
		cfg.WeightPeriod = DefaultWeightPeriod
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Online{
		cfg:     cfg,
		weights: weights,
		store:   st,
		seen:    make(map[types.Account]time.Time),
	}
}

// Observe records that the representative voted now.
func (o *Online) Observe(rep types.Account) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seen[rep] = o.cfg.Now()
}

// OnlineReps returns the representatives seen within the weight period.
func (o *Online) OnlineReps() []types.Account {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.evict()

	reps := make([]types.Account, 0, len(o.seen))
	for rep := range o.seen {
		reps = append(reps, rep)
	}
	return reps
}

// OnlineWeight returns the weight held by the representatives seen within
// the weight period.
func (o *Online) OnlineWeight() types.Amount {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.onlineWeight()
}

func (o *Online) onlineWeight() types.Amount {
	o.evict()

	var total types.Amount
	for rep := range o.seen {
		total, _ = total.Add(o.weights.Weight(rep))
	}
	return total
}

func (o *Online) evict() {
	cutoff := o.cfg.Now().Add(-o.cfg.WeightPeriod)
	for rep, at := range o.seen {
		if at.Before(cutoff) {
			delete(o.seen, rep)
		}
	}
}

// =============================================================================

// Sample persists the current online weight, trims the oldest samples past
// the maximum and refreshes the trended weight once the transaction commits.
func (o *Online) Sample(txn store.WriteTxn) (types.Amount, error) {
	online := o.OnlineWeight()
	key := uint64(o.cfg.Now().UnixNano())

	if err := o.store.OnlineWeight.Put(txn, key, online); err != nil {
		return types.Amount{}, fmt.Errorf("put sample: %w", err)
	}

	samples, err := o.samples(txn)
	if err != nil {
		return types.Amount{}, err
	}

	for len(samples) > o.cfg.MaxSamples {
		if err := o.store.OnlineWeight.Del(txn, samples[0].at); err != nil {
			return types.Amount{}, fmt.Errorf("trim sample: %w", err)
		}
		samples = samples[1:]
	}

	trended := median(samples)
	txn.OnCommit(func() {
		o.mu.Lock()
		o.trended = trended
		o.mu.Unlock()
		o.observe()
	})

	return online, nil
}

// Trended returns the median of the persisted samples.
func (o *Online) Trended(txn store.ReadTxn) (types.Amount, error) {
	samples, err := o.samples(txn)
	if err != nil {
		return types.Amount{}, err
	}
	return median(samples), nil
}

// Load reads the trended weight from storage at startup.
func (o *Online) Load(txn store.ReadTxn) error {
	trended, err := o.Trended(txn)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.trended = trended
	o.mu.Unlock()

	o.observe()
	return nil
}

type sample struct {
	at     uint64
	weight types.Amount
}

// samples returns the persisted samples, oldest first.
func (o *Online) samples(txn store.ReadTxn) ([]sample, error) {
	var samples []sample
	err := o.store.OnlineWeight.ForEach(txn, func(at uint64, weight types.Amount) error {
		samples = append(samples, sample{at: at, weight: weight})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return samples, nil
}

func median(samples []sample) types.Amount {
	if len(samples) == 0 {
		return types.ZeroAmount
	}

	weights := make([]types.Amount, len(samples))
	for i, s := range samples {
		weights[i] = s.weight
	}
	slices.SortFunc(weights, types.Amount.Cmp)

	return weights[len(weights)/2]
}

// =============================================================================

// Period returns how long a vote keeps a representative online.
func (o *Online) Period() time.Duration {
	return o.cfg.WeightPeriod
}

// TrendedWeight returns the trended weight last loaded or sampled.
func (o *Online) TrendedWeight() types.Amount {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.trended
}

// QuorumDelta returns the weight a tally must reach. The trended weight
// floors the online weight so a momentary drop in online representatives
// can't lower the quorum.
func (o *Online) QuorumDelta() types.Amount {
	o.mu.Lock()
	online := o.onlineWeight()
	trended := o.trended
	o.mu.Unlock()

	return QuorumDelta(online, trended, o.cfg.QuorumPercent, o.cfg.OnlineWeightMinimum)
}

// QuorumDelta computes max(max(online, trended) * percent / 100, minimum).
func QuorumDelta(online, trended types.Amount, percent uint64, minimum types.Amount) types.Amount {
	base := types.MaxOf(online, trended)
	return types.MaxOf(base.MulDiv(percent, 100), minimum)
}

// Tally sums the weight of the distinct representatives.
func (o *Online) Tally(voters []types.Account) types.Amount {
	seen := make(map[types.Account]struct{}, len(voters))

	var total types.Amount
	for _, rep := range voters {
		if _, dup := seen[rep]; dup {
			continue
		}
		seen[rep] = struct{}{}
		total, _ = total.Add(o.weights.Weight(rep))
	}
	return total
}

// Confirmable reports whether the voters hold at least the quorum delta.
func (o *Online) Confirmable(voters []types.Account) bool {
	return o.Tally(voters).Cmp(o.QuorumDelta()) >= 0
}

func (o *Online) observe() {
	if o.cfg.Observer == nil {
		return
	}

	o.mu.Lock()
	online := o.onlineWeight()
	trended := o.trended
	reps := len(o.seen)
	o.mu.Unlock()

	delta := QuorumDelta(online, trended, o.cfg.QuorumPercent, o.cfg.OnlineWeightMinimum)
	o.cfg.Observer.ObserveWeights(online, trended, delta, reps)
}
