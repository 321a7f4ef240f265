package validator

import "errors"

// Status is the reason a block was rejected. Statuses are errors so they
// flow through normal error returns; callers that need to branch on the
// reason use AsStatus.
type Status int

// Set of rejection statuses.
const (
	Old Status = iota + 1
	Fork
	GapPrevious
	GapSource
	GapEpochOpenPending
	OpenedBurnAccount
	BadSignature
	InsufficientWork
	NegativeSpend
	BalanceMismatch
	Unreceivable
	RepresentativeMismatch
	BlockPosition
)

var statusNames = map[Status]string{
	Old:                    "old",
	Fork:                   "fork",
	GapPrevious:            "gap_previous",
	GapSource:              "gap_source",
	GapEpochOpenPending:    "gap_epoch_open_pending",
	OpenedBurnAccount:      "opened_burn_account",
	BadSignature:           "bad_signature",
	InsufficientWork:       "insufficient_work",
	NegativeSpend:          "negative_spend",
	BalanceMismatch:        "balance_mismatch",
	Unreceivable:           "unreceivable",
	RepresentativeMismatch: "representative_mismatch",
	BlockPosition:          "block_position",
}

var statusText = map[Status]string{
	Old:                    "block already exists",
	Fork:                   "block does not extend the account head",
	GapPrevious:            "previous block is unknown",
	GapSource:              "source block is unknown",
	GapEpochOpenPending:    "epoch open without any receivable",
	OpenedBurnAccount:      "burn account can't be opened",
	BadSignature:           "signature does not verify",
	InsufficientWork:       "work is below the threshold",
	NegativeSpend:          "send increases the balance",
	BalanceMismatch:        "balance does not match the transition",
	Unreceivable:           "source can't be received",
	RepresentativeMismatch: "representative can't change in an epoch block",
	BlockPosition:          "block type not allowed at this position",
}

// String returns the short name of the status.
func (s Status) String() string {
	if name, exists := statusNames[s]; exists {
		return name
	}
	return "unknown"
}

// Error implements the error interface.
func (s Status) Error() string {
	if text, exists := statusText[s]; exists {
		return text
	}
	return "unknown rejection"
}

// AsStatus extracts the rejection status from the error chain.
func AsStatus(err error) (Status, bool) {
	var s Status
	if errors.As(err, &s) {
		return s, true
	}
	return 0, false
}

// IsGap reports whether the block was rejected for a missing dependency and
// could succeed once that dependency arrives.
func IsGap(err error) bool {
	s, ok := AsStatus(err)
	return ok && (s == GapPrevious || s == GapSource || s == GapEpochOpenPending)
}
