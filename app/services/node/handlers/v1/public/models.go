package public

import (
	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/validator"
	"github.com/ardanlabs/lattice/foundation/node"
)

// processRequest is the body of a block submission.
type processRequest struct {
	Blocks []block.Envelope `json:"blocks" validate:"required,min=1,max=256"`
}

// processResult reports the outcome of one submitted block.
type processResult struct {
	Hash   types.BlockHash `json:"hash"`
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Height uint64          `json:"height,omitempty"`
}

func toProcessResults(results []ledger.Result) []processResult {
	out := make([]processResult, len(results))
	for i, res := range results {
		out[i] = processResult{Hash: res.Hash, Status: "progress"}

		if res.Err != nil {
			out[i].Error = res.Err.Error()
			if s, ok := validator.AsStatus(res.Err); ok {
				out[i].Status = s.String()
			}
			continue
		}

		out[i].Height = res.Saved.Height()
	}
	return out
}

// account is the account view with the optional owner name.
type account struct {
	node.Account
	Name string `json:"name,omitempty"`
}

// receivable is one pending entry of an account.
type receivable struct {
	Hash   types.BlockHash `json:"hash"`
	Source types.Account   `json:"source"`
	Name   string          `json:"source_name,omitempty"`
	Amount types.Amount    `json:"amount"`
	Epoch  types.Epoch     `json:"epoch"`
}

// savedBlock is a stored block with its confirmation state.
type savedBlock struct {
	Block     block.SavedBlock `json:"block"`
	Confirmed bool             `json:"confirmed"`
}

// representative is a representative with the optional owner name.
type representative struct {
	node.Representative
	Name string `json:"name,omitempty"`
}
