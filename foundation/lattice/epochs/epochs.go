// Package epochs maintains the table of account upgrades. An epoch block is a
// state block whose link carries one of the registered sentinels and which is
// signed by the key registered for that epoch instead of the account owner.
package epochs

import (
	"fmt"

	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Entry describes a single registered epoch.
type Entry struct {
	Epoch  types.Epoch   `json:"epoch"`
	Signer types.Account `json:"signer"`
	Link   types.Link    `json:"link"`
}

// Epochs maps epoch link sentinels to their epoch and signer. The table is
// built once at startup and is read only afterwards. A nil table knows no
// epochs.
type Epochs struct {
	byLink  map[types.Link]Entry
	byEpoch map[types.Epoch]Entry
}

// New constructs an epoch table from the entries.
func New(entries ...Entry) (*Epochs, error) {
	e := Epochs{
		byLink:  make(map[types.Link]Entry),
		byEpoch: make(map[types.Epoch]Entry),
	}

	for _, entry := range entries {
		if err := e.add(entry); err != nil {
			return nil, err
		}
	}

	return &e, nil
}

func (e *Epochs) add(entry Entry) error {
	if entry.Epoch == types.Epoch0 || !entry.Epoch.IsValid() {
		return fmt.Errorf("epoch %s can't be registered", entry.Epoch)
	}
	if entry.Link.IsZero() {
		return fmt.Errorf("epoch %s: zero link", entry.Epoch)
	}
	if _, exists := e.byLink[entry.Link]; exists {
		return fmt.Errorf("epoch %s: link already registered", entry.Epoch)
	}
	if _, exists := e.byEpoch[entry.Epoch]; exists {
		return fmt.Errorf("epoch %s: already registered", entry.Epoch)
	}

	e.byLink[entry.Link] = entry
	e.byEpoch[entry.Epoch] = entry

	return nil
}

// IsEpochLink reports whether the link is a registered epoch sentinel.
func (e *Epochs) IsEpochLink(link types.Link) bool {
	if e == nil {
		return false
	}
	_, exists := e.byLink[link]
	return exists
}

// Epoch returns the epoch the link upgrades to.
func (e *Epochs) Epoch(link types.Link) (types.Epoch, bool) {
	if e == nil {
		return types.Epoch0, false
	}
	entry, exists := e.byLink[link]
	return entry.Epoch, exists
}

// Signer returns the account allowed to sign blocks for the epoch.
func (e *Epochs) Signer(epoch types.Epoch) (types.Account, bool) {
	entry, exists := e.byEpoch[epoch]
	return entry.Signer, exists
}

// Link returns the sentinel link of the epoch.
func (e *Epochs) Link(epoch types.Epoch) (types.Link, bool) {
	entry, exists := e.byEpoch[epoch]
	return entry.Link, exists
}

// Entries returns the registered epochs in ascending order.
func (e *Epochs) Entries() []Entry {
	entries := make([]Entry, 0, len(e.byEpoch))
	for ep := types.Epoch1; ep <= types.MaxEpoch; ep++ {
		if entry, exists := e.byEpoch[ep]; exists {
			entries = append(entries, entry)
		}
	}
	return entries
}

// =============================================================================

// SentinelLink builds the link for an epoch from its ascii tag, zero padded
// to the right.
func SentinelLink(tag string) types.Link {
	var l types.Link
	copy(l[:], tag)
	return l
}

// Default sentinel tags.
var (
	LinkV1 = SentinelLink("epoch v1 block")
	LinkV2 = SentinelLink("epoch v2 block")
)
