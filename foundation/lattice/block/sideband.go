package block

import (
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// Details summarizes what a block did to its account. It is derived at
// insertion time since state blocks don't carry their subtype.
type Details struct {
	Epoch     types.Epoch `json:"epoch"`
	IsSend    bool        `json:"is_send"`
	IsReceive bool        `json:"is_receive"`
	IsEpoch   bool        `json:"is_epoch"`
}

// Packed flags for the details byte.
const (
	flagSend    = 0x80
	flagReceive = 0x40
	flagEpoch   = 0x20
	epochMask   = 0x1f
)

// Pack encodes the details into a single byte.
func (d Details) Pack() byte {
	b := byte(d.Epoch) & epochMask
	if d.IsSend {
		b |= flagSend
	}
	if d.IsReceive {
		b |= flagReceive
	}
	if d.IsEpoch {
		b |= flagEpoch
	}
	return b
}

// UnpackDetails decodes a details byte.
func UnpackDetails(b byte) Details {
	return Details{
		Epoch:     types.Epoch(b & epochMask),
		IsSend:    b&flagSend != 0,
		IsReceive: b&flagReceive != 0,
		IsEpoch:   b&flagEpoch != 0,
	}
}

// Sideband is the metadata stored next to a block. None of it is covered by
// the block hash; it is computed by the ledger when the block is inserted.
type Sideband struct {
	Height    uint64          `json:"height"`
	Timestamp uint64          `json:"timestamp"`
	Successor types.BlockHash `json:"successor"`
	Account   types.Account   `json:"account"`

	// Representative of the account after the block. Legacy send and
	// receive blocks don't name one, so it is carried here.
	Representative types.Account `json:"representative"`

	Balance     types.Amount `json:"balance"`
	Details     Details      `json:"details"`
	SourceEpoch types.Epoch  `json:"source_epoch"`
}

// SavedBlock is a block as it exists in the ledger.
type SavedBlock struct {
	Block    Block
	Sideband Sideband
}

// Hash returns the hash of the stored block.
func (sb SavedBlock) Hash() types.BlockHash {
	return sb.Block.Hash()
}

// Account returns the owning account recorded at insertion.
func (sb SavedBlock) Account() types.Account {
	return sb.Sideband.Account
}

// Balance returns the account balance after the block.
func (sb SavedBlock) Balance() types.Amount {
	return sb.Sideband.Balance
}

// Height returns the position of the block in its account chain, starting at
// one for the open block.
func (sb SavedBlock) Height() uint64 {
	return sb.Sideband.Height
}

// IsSend reports whether the block moved funds out of the account.
func (sb SavedBlock) IsSend() bool {
	return sb.Sideband.Details.IsSend
}

// IsReceive reports whether the block pocketed a pending entry.
func (sb SavedBlock) IsReceive() bool {
	return sb.Sideband.Details.IsReceive
}

// IsEpoch reports whether the block upgraded the account.
func (sb SavedBlock) IsEpoch() bool {
	return sb.Sideband.Details.IsEpoch
}

// SendDestination returns the account a send pays into.
func (sb SavedBlock) SendDestination() (types.Account, bool) {
	switch b := sb.Block.(type) {
	case *Send:
		return b.Destination, true
	case *State:
		if sb.Sideband.Details.IsSend {
			return b.Link.AsAccount(), true
		}
	}
	return types.Account{}, false
}

// ReceiveSource returns the hash of the send a receive pocketed.
func (sb SavedBlock) ReceiveSource() (types.BlockHash, bool) {
	switch b := sb.Block.(type) {
	case *Receive:
		return b.Source, true
	case *Open:
		return b.Source, true
	case *State:
		if sb.Sideband.Details.IsReceive {
			return b.Link.AsHash(), true
		}
	}
	return types.BlockHash{}, false
}
