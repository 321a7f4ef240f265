// Package genesis maintains access to the genesis configuration of a network:
// the open block that creates the whole supply, the work thresholds, the
// quorum parameters and the epoch upgrade table.
package genesis

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/epochs"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/work"
	"github.com/ardanlabs/lattice/foundation/validate"
)

// Set of known network names.
const (
	NetworkLive = "live"
	NetworkBeta = "beta"
	NetworkDev  = "dev"
	NetworkTest = "test"
)

// Quorum holds the parameters used to decide when enough weight voted.
type Quorum struct {
	Percent             uint64       `json:"percent" validate:"min=1,max=100"`
	OnlineWeightMinimum types.Amount `json:"online_weight_minimum"`
}

// Genesis represents the genesis file.
type Genesis struct {
	Network string          `json:"network" validate:"required,oneof=live beta dev test"`
	Date    time.Time       `json:"date" validate:"required"`
	Block   block.Envelope  `json:"block"`
	Supply  types.Amount    `json:"supply"`
	Work    work.Thresholds `json:"work"`
	Quorum  Quorum          `json:"quorum"`
	Epochs  []epochs.Entry  `json:"epochs" validate:"max=2"`
}

// Open returns the genesis open block.
func (g Genesis) Open() *block.Open {
	open, _ := g.Block.Block.(*block.Open)
	return open
}

// Account returns the account that receives the supply.
func (g Genesis) Account() types.Account {
	if open := g.Open(); open != nil {
		return open.Account
	}
	return types.Account{}
}

// Hash returns the hash of the genesis block.
func (g Genesis) Hash() types.BlockHash {
	if open := g.Open(); open != nil {
		return open.Hash()
	}
	return types.ZeroHash
}

// EpochTable builds the epoch lookup table.
func (g Genesis) EpochTable() (*epochs.Epochs, error) {
	return epochs.New(g.Epochs...)
}

// Validate checks the genesis is internally consistent.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return err
	}

	open := g.Open()
	if open == nil {
		return errors.New("genesis block must be an open block")
	}
	if open.Account.IsZero() {
		return errors.New("genesis account is zero")
	}
	if open.Source != types.BlockHash(open.Account) {
		return errors.New("genesis source must equal the genesis account")
	}
	if !block.VerifySignature(open, open.Account) {
		return errors.New("genesis block signature is invalid")
	}
	if block.WorkValue(open) < g.Work.For(types.Epoch0, false) {
		return errors.New("genesis block work is insufficient")
	}
	if g.Supply.IsZero() {
		return errors.New("genesis supply is zero")
	}
	if g.Work.Epoch1 == 0 || g.Work.Epoch2 == 0 || g.Work.Epoch2Receive == 0 {
		return errors.New("work thresholds must be set")
	}
	if _, err := g.EpochTable(); err != nil {
		return fmt.Errorf("epochs: %w", err)
	}

	return nil
}

// =============================================================================

// New creates a genesis for the network, signing the open block with the key
// and generating its work.
func New(ctx context.Context, network string, key ed25519.PrivateKey, supply types.Amount, thresholds work.Thresholds, quorum Quorum) (Genesis, error) {
	account := signature.PublicKeyToAccount(key)

	open := block.Open{
		Source:         types.BlockHash(account),
		Representative: account,
		Account:        account,
	}
	block.Sign(&open, key)

	if err := block.GenerateWork(ctx, &open, thresholds.For(types.Epoch0, false), nil); err != nil {
		return Genesis{}, err
	}

	g := Genesis{
		Network: network,
		Date:    time.Now().UTC().Truncate(time.Second),
		Block:   block.Envelope{Block: &open},
		Supply:  supply,
		Work:    thresholds,
		Quorum:  quorum,
		Epochs: []epochs.Entry{
			{Epoch: types.Epoch1, Signer: account, Link: epochs.LinkV1},
			{Epoch: types.Epoch2, Signer: account, Link: epochs.LinkV2},
		},
	}

	if err := g.Validate(); err != nil {
		return Genesis{}, err
	}

	return g, nil
}

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("validate: %w", err)
	}

	return genesis, nil
}

// Save writes the genesis file.
func Save(path string, g Genesis) error {
	data, err := json.MarshalIndent(g, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// =============================================================================

// devSeed is the published key of the development genesis account. It must
// never hold value outside development networks.
const devSeed = "34f0a37aad20f4a260f0a5b3cb3d7fb50673212263e58a380bc10474bb039ce4"

// DevKey returns the private key of the development genesis account.
func DevKey() ed25519.PrivateKey {
	key, err := signature.KeyFromSeed(devSeed)
	if err != nil {
		panic(err)
	}
	return key
}

// Dev returns the development network genesis. The work nonce is found by a
// deterministic search so every node derives the same block.
func Dev() Genesis {
	key := DevKey()
	account := signature.PublicKeyToAccount(key)

	open := block.Open{
		Source:         types.BlockHash(account),
		Representative: account,
		Account:        account,
	}
	block.Sign(&open, key)

	threshold := work.Dev.For(types.Epoch0, false)
	for nonce := uint64(0); ; nonce++ {
		if work.Validate(open.Root(), nonce, threshold) {
			open.Work = nonce
			break
		}
	}

	return Genesis{
		Network: NetworkDev,
		Date:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Block:   block.Envelope{Block: &open},
		Supply:  types.MaxAmount,
		Work:    work.Dev,
		Quorum: Quorum{
			Percent:             67,
			OnlineWeightMinimum: types.MaxAmount.MulDiv(1, 1000),
		},
		Epochs: []epochs.Entry{
			{Epoch: types.Epoch1, Signer: account, Link: epochs.LinkV1},
			{Epoch: types.Epoch2, Signer: account, Link: epochs.LinkV2},
		},
	}
}

// ForNetwork returns the genesis for a network. Only the development network
// is built in; the others require a genesis file.
func ForNetwork(network string, path string) (Genesis, error) {
	if path != "" {
		g, err := Load(path)
		if err != nil {
			return Genesis{}, err
		}
		if g.Network != network {
			return Genesis{}, fmt.Errorf("genesis file is for network %q, want %q", g.Network, network)
		}
		return g, nil
	}

	if network == NetworkDev || network == NetworkTest {
		g := Dev()
		g.Network = network
		return g, nil
	}

	return Genesis{}, fmt.Errorf("network %q requires a genesis file", network)
}
