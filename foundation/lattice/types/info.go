package types

// AccountInfo is the chain head record for an opened account. It is created by
// the open block, updated by every later block and only removed when the open
// block itself is rolled back.
type AccountInfo struct {
	Head           BlockHash `json:"head"`
	Representative Account   `json:"representative"`
	OpenBlock      BlockHash `json:"open_block"`
	Balance        Amount    `json:"balance"`
	Modified       uint64    `json:"modified"`    // Unix seconds of the last change.
	BlockCount     uint64    `json:"block_count"` // Blocks from open to head inclusive.
	Epoch          Epoch     `json:"epoch"`
}

// PendingKey identifies a receivable entry: the destination account and the
// hash of the send that created it.
type PendingKey struct {
	Account Account   `json:"account"`
	Hash    BlockHash `json:"hash"`
}

// PendingInfo is the value of a receivable entry.
type PendingInfo struct {
	Source Account `json:"source"`
	Amount Amount  `json:"amount"`
	Epoch  Epoch   `json:"epoch"`
}

// ConfirmationHeightInfo records the highest cemented block of an account.
type ConfirmationHeightInfo struct {
	Height   uint64    `json:"height"`
	Frontier BlockHash `json:"frontier"`
}
