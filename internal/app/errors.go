package app

import (
	"sort"

	abci "github.com/cometbft/cometbft/abci/types"
)

// Deterministic tx result codes. These match the revert reasons of the
// on-chain contract generation of the protocol, so off-chain tooling can
// string-match either surface.
const (
	// Precondition violations: surfaced, never retried, state unchanged.
	errSalesClosed      = "SALES_CLOSED"
	errRevealClosed     = "REVEAL_CLOSED"
	errBadPayment       = "BAD_PAYMENT"
	errDuplicateCommit  = "DUPLICATE_COMMIT"
	errCommitMismatch   = "COMMIT_MISMATCH"
	errAlreadyRevealed  = "ALREADY_REVEALED"
	errNotAWinner       = "NOT_A_WINNER"
	errAlreadyClaimed   = "ALREADY_CLAIMED"
	errClaimExpired     = "CLAIM_EXPIRED"
	errBatchTooLarge    = "BATCH_TOO_LARGE"
	errTotalQty         = "TOTAL_QTY_EXCEEDED"
	errRevealNotEnded   = "REVEAL_NOT_ENDED"
	errInsufficientFee  = "INSUFFICIENT_FEE"
	errNotDrawn         = "NOT_DRAWN"
	errAlreadyFinal     = "ALREADY_FINALIZED"
	errNotFinalized     = "NOT_FINALIZED"
	errSnapshotNotDone  = "SNAPSHOT_NOT_DONE"
	errAlreadySnapshot  = "ALREADY_SNAPSHOTTED"
	errBadCursor        = "BAD_CURSOR"
	errNoSuchRound      = "NO_SUCH_ROUND"
	errPaused           = "PAUSED"
	errMalformedNumbers = "MALFORMED_NUMBERS"

	// Authorization violations.
	errNotOwner  = "NOT_OWNER"
	errNotOracle = "NOT_ORACLE"

	// Operational conditions: expected, recoverable by waiting.
	errDrawRequested   = "DRAW_ALREADY_REQUESTED"
	errNotStuck        = "NOT_STUCK"
	errNothingToSweep  = "NOTHING_TO_SWEEP"
	errClaimNotExpired = "CLAIM_NOT_EXPIRED"
	errFeeAlreadyPaid  = "FEE_ALREADY_PAID"

	// Configuration violations, caught at parameter-set or open time.
	errBpsSum    = "BPS_SUM"
	errBadN      = "BAD_N"
	errBadWindow = "BAD_WINDOW"

	errRoundAlreadyOpen = "ROUND_ALREADY_OPEN"
)

func fail(log string) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: 1, Log: log}
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}
