package block

import (
	"context"
	"crypto/ed25519"

	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/work"
)

// Sign signs the block hash with the key and stores the signature.
func Sign(b Block, key ed25519.PrivateKey) {
	b.setSignature(signature.Sign(key, b.Hash()))
}

// SetSignature stores an externally produced signature on the block.
func SetSignature(b Block, sig types.Signature) {
	b.setSignature(sig)
}

// SetWork stores the work nonce on the block.
func SetWork(b Block, nonce uint64) {
	b.setWork(nonce)
}

// VerifySignature checks the block signature against the signer.
func VerifySignature(b Block, signer types.Account) bool {
	return signature.Verify(signer, b.Hash(), b.BlockSignature())
}

// WorkValue returns the work value of the block's nonce over its root.
func WorkValue(b Block) uint64 {
	return work.Value(b.Root(), b.BlockWork())
}

// GenerateWork finds a nonce reaching the threshold and stores it on the
// block.
func GenerateWork(ctx context.Context, b Block, threshold uint64, ev func(v string, args ...any)) error {
	nonce, err := work.Generate(ctx, b.Root(), threshold, ev)
	if err != nil {
		return err
	}
	b.setWork(nonce)
	return nil
}

// =============================================================================

// StateBuilder assembles state blocks for an account key.
type StateBuilder struct {
	key ed25519.PrivateKey
	blk State
}

// NewState starts a state block for the account owning the key.
func NewState(key ed25519.PrivateKey) *StateBuilder {
	return &StateBuilder{
		key: key,
		blk: State{Account: signature.PublicKeyToAccount(key)},
	}
}

// Previous sets the previous head of the account.
func (sb *StateBuilder) Previous(h types.BlockHash) *StateBuilder {
	sb.blk.Previous = h
	return sb
}

// Representative sets the representative.
func (sb *StateBuilder) Representative(a types.Account) *StateBuilder {
	sb.blk.Representative = a
	return sb
}

// Balance sets the balance after the block.
func (sb *StateBuilder) Balance(a types.Amount) *StateBuilder {
	sb.blk.Balance = a
	return sb
}

// Link sets the raw link.
func (sb *StateBuilder) Link(l types.Link) *StateBuilder {
	sb.blk.Link = l
	return sb
}

// SendTo sets the link to the destination account.
func (sb *StateBuilder) SendTo(a types.Account) *StateBuilder {
	sb.blk.Link = types.Link(a)
	return sb
}

// ReceiveFrom sets the link to the source send hash.
func (sb *StateBuilder) ReceiveFrom(h types.BlockHash) *StateBuilder {
	sb.blk.Link = types.Link(h)
	return sb
}

// Account overrides the account. Used for epoch blocks that are signed by
// the epoch signer rather than the account owner.
func (sb *StateBuilder) Account(a types.Account) *StateBuilder {
	sb.blk.Account = a
	return sb
}

// Work sets the work nonce.
func (sb *StateBuilder) Work(nonce uint64) *StateBuilder {
	sb.blk.Work = nonce
	return sb
}

// Build signs and returns the block.
func (sb *StateBuilder) Build() *State {
	blk := sb.blk
	Sign(&blk, sb.key)
	return &blk
}
