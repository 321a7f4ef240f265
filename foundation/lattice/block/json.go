package block

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// jsonBlock is the flat wire form of every variant. Only the fields of the
// named type are populated.
type jsonBlock struct {
	Type           string           `json:"type"`
	Account        *types.Account   `json:"account,omitempty"`
	Previous       *types.BlockHash `json:"previous,omitempty"`
	Representative *types.Account   `json:"representative,omitempty"`
	Balance        *types.Amount    `json:"balance,omitempty"`
	Link           *types.Link      `json:"link,omitempty"`
	Source         *types.BlockHash `json:"source,omitempty"`
	Destination    *types.Account   `json:"destination,omitempty"`
	Signature      types.Signature  `json:"signature"`
	Work           string           `json:"work"`
}

// Envelope wraps a Block so it can be carried in JSON documents.
type Envelope struct {
	Block Block
}

// MarshalJSON implements the json.Marshaler interface.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Block == nil {
		return []byte("null"), nil
	}

	jb := jsonBlock{
		Type:      e.Block.Type().String(),
		Signature: e.Block.BlockSignature(),
		Work:      fmt.Sprintf("%016x", e.Block.BlockWork()),
	}

	switch b := e.Block.(type) {
	case *Send:
		jb.Previous = &b.Previous
		jb.Destination = &b.Destination
		jb.Balance = &b.Balance
	case *Receive:
		jb.Previous = &b.Previous
		jb.Source = &b.Source
	case *Open:
		jb.Source = &b.Source
		jb.Representative = &b.Representative
		jb.Account = &b.Account
	case *Change:
		jb.Previous = &b.Previous
		jb.Representative = &b.Representative
	case *State:
		jb.Account = &b.Account
		jb.Previous = &b.Previous
		jb.Representative = &b.Representative
		jb.Balance = &b.Balance
		jb.Link = &b.Link
	}

	return json.Marshal(jb)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		e.Block = nil
		return nil
	}

	var jb jsonBlock
	if err := json.Unmarshal(data, &jb); err != nil {
		return err
	}

	t, err := ParseType(jb.Type)
	if err != nil {
		return err
	}

	work, err := strconv.ParseUint(jb.Work, 16, 64)
	if err != nil {
		return fmt.Errorf("work: %w", err)
	}

	var missing string
	need := func(name string, present bool) {
		if !present && missing == "" {
			missing = name
		}
	}

	var b Block
	switch t {
	case TypeSend:
		need("previous", jb.Previous != nil)
		need("destination", jb.Destination != nil)
		need("balance", jb.Balance != nil)
		if missing == "" {
			b = &Send{Previous: *jb.Previous, Destination: *jb.Destination, Balance: *jb.Balance}
		}
	case TypeReceive:
		need("previous", jb.Previous != nil)
		need("source", jb.Source != nil)
		if missing == "" {
			b = &Receive{Previous: *jb.Previous, Source: *jb.Source}
		}
	case TypeOpen:
		need("source", jb.Source != nil)
		need("representative", jb.Representative != nil)
		need("account", jb.Account != nil)
		if missing == "" {
			b = &Open{Source: *jb.Source, Representative: *jb.Representative, Account: *jb.Account}
		}
	case TypeChange:
		need("previous", jb.Previous != nil)
		need("representative", jb.Representative != nil)
		if missing == "" {
			b = &Change{Previous: *jb.Previous, Representative: *jb.Representative}
		}
	case TypeState:
		need("account", jb.Account != nil)
		need("previous", jb.Previous != nil)
		need("representative", jb.Representative != nil)
		need("balance", jb.Balance != nil)
		need("link", jb.Link != nil)
		if missing == "" {
			b = &State{Account: *jb.Account, Previous: *jb.Previous, Representative: *jb.Representative, Balance: *jb.Balance, Link: *jb.Link}
		}
	}

	if missing != "" {
		return fmt.Errorf("%s block: missing field %q", t, missing)
	}

	b.setSignature(jb.Signature)
	b.setWork(work)
	e.Block = b

	return nil
}

// =============================================================================

// savedJSON is the wire form of a block with its sideband.
type savedJSON struct {
	Hash     types.BlockHash `json:"hash"`
	Block    Envelope        `json:"block"`
	Sideband Sideband        `json:"sideband"`
}

// MarshalJSON implements the json.Marshaler interface.
func (sb SavedBlock) MarshalJSON() ([]byte, error) {
	if sb.Block == nil {
		return []byte("null"), nil
	}
	return json.Marshal(savedJSON{
		Hash:     sb.Block.Hash(),
		Block:    Envelope{Block: sb.Block},
		Sideband: sb.Sideband,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (sb *SavedBlock) UnmarshalJSON(data []byte) error {
	var sj savedJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return err
	}
	if sj.Block.Block == nil {
		return fmt.Errorf("saved block: missing block")
	}
	if sj.Block.Block.Hash() != sj.Hash {
		return fmt.Errorf("saved block: hash mismatch")
	}

	sb.Block = sj.Block.Block
	sb.Sideband = sj.Sideband
	return nil
}
