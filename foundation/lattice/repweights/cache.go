// Package repweights maintains the voting weight delegated to each
// representative and the online weight model that decides how much weight
// a block needs behind it to be confirmed.
package repweights

import (
	"fmt"
	"maps"

	"github.com/algorand/go-deadlock"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Delta is a signed change to a representative's weight.
type Delta struct {
	Rep      types.Account
	Amount   types.Amount
	Negative bool
}

// Cache is the in memory mirror of the rep weights table. The lock is only
// held for a single lookup or a single set of deltas.
type Cache struct {
	mu      deadlock.RWMutex
	weights map[types.Account]types.Amount
	total   types.Amount
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{
		weights: make(map[types.Account]types.Amount),
	}
}

// Weight returns the weight delegated to the representative, zero when
// unknown.
func (c *Cache) Weight(rep types.Account) types.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.weights[rep]
}

// Put sets the weight of a representative. Used when loading from storage.
func (c *Cache) Put(rep types.Account, amount types.Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(rep, amount)
}

// Add increases the representative's weight.
func (c *Cache) Add(rep types.Account, amount types.Amount) error {
	return c.Apply(Delta{Rep: rep, Amount: amount})
}

// Sub decreases the representative's weight.
func (c *Cache) Sub(rep types.Account, amount types.Amount) error {
	return c.Apply(Delta{Rep: rep, Amount: amount, Negative: true})
}

// Apply applies the deltas atomically. Nothing changes when any delta would
// overflow or drive a weight below zero.
func (c *Cache) Apply(deltas ...Delta) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[types.Account]types.Amount, len(deltas))
	for _, d := range deltas {
		cur, exists := next[d.Rep]
		if !exists {
			cur = c.weights[d.Rep]
		}

		v, err := ApplyDelta(cur, d)
		if err != nil {
			return err
		}
		next[d.Rep] = v
	}

	for rep, v := range next {
		c.set(rep, v)
	}

	return nil
}

// set stores the weight and keeps the total current. Zero entries are
// evicted.
func (c *Cache) set(rep types.Account, amount types.Amount) {
	old := c.weights[rep]
	total, _ := c.total.Sub(old)
	c.total, _ = total.Add(amount)

	if amount.IsZero() {
		delete(c.weights, rep)
		return
	}
	c.weights[rep] = amount
}

// Copy returns a snapshot of all weights.
func (c *Cache) Copy() map[types.Account]types.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.weights)
}

// Len returns the number of representatives with weight.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.weights)
}

// Total returns the sum of all weights.
func (c *Cache) Total() types.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.total
}

// ApplyDelta returns the amount changed by the delta.
func ApplyDelta(cur types.Amount, d Delta) (types.Amount, error) {
	if d.Negative {
		v, ok := cur.Sub(d.Amount)
		if !ok {
			return types.Amount{}, fmt.Errorf("weight underflow: rep[%s] weight[%s] sub[%s]", d.Rep, cur, d.Amount)
		}
		return v, nil
	}

	v, ok := cur.Add(d.Amount)
	if !ok {
		return types.Amount{}, fmt.Errorf("weight overflow: rep[%s] weight[%s] add[%s]", d.Rep, cur, d.Amount)
	}
	return v, nil
}

// Move returns the deltas for moving an account's weight from one
// representative and balance to another. Zero amounts are dropped.
func Move(oldRep types.Account, oldBalance types.Amount, newRep types.Account, newBalance types.Amount) []Delta {
	var deltas []Delta
	if !oldBalance.IsZero() {
		deltas = append(deltas, Delta{Rep: oldRep, Amount: oldBalance, Negative: true})
	}
	if !newBalance.IsZero() {
		deltas = append(deltas, Delta{Rep: newRep, Amount: newBalance})
	}
	return deltas
}
