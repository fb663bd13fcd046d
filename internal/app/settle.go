package app

import (
	"errors"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"

	"lottochain/internal/codec"
	"lottochain/internal/commit"
)

// claim pays a winning ticket its tier payout. Eligibility is re-derived from
// the revealed numbers on every call; idempotency is enforced by the per-tier
// claimed flag, which only ever flips false -> true.
func (a *LottoApp) claim(env codec.TxEnvelope, msg codec.LottoClaimTx, now int64) *abci.ExecTxResult {
	if a.st.Paused {
		return fail(errPaused)
	}
	if err := requireAccountAuth(a.st, env, msg.Claimer); err != nil {
		return fail(err.Error())
	}
	r, ok := a.st.Rounds[msg.RoundID]
	if !ok {
		return fail(errNoSuchRound)
	}
	if !r.SnapshotDone {
		return fail(errSnapshotNotDone)
	}
	if r.ClaimDeadline != 0 && now >= r.ClaimDeadline {
		return fail(errClaimExpired)
	}

	cdc := commit.Codec{K: r.K, N: r.N}
	hash, err := cdc.Hash(msg.RoundID, msg.Numbers, msg.Salt, common.HexToAddress(msg.Claimer))
	if err != nil {
		if errors.Is(err, commit.ErrMalformedNumbers) {
			return fail(errMalformedNumbers)
		}
		return fail(err.Error())
	}
	t := r.Ticket(hash)
	if t == nil || t.Owner != msg.Claimer || t.Quantity != msg.Quantity {
		return fail(errCommitMismatch)
	}
	if t.Revealed == nil {
		// Never revealed means never counted; it cannot win.
		return fail(errNotAWinner)
	}
	tier := tierFor(r.K, matchCount(t.Revealed, r.WinningNumbers))
	if tier < 0 {
		return fail(errNotAWinner)
	}
	if t.Claimed[tier] {
		return fail(errAlreadyClaimed)
	}

	amount, err := mulU64Checked(t.Quantity, r.TierPayout[tier], "claim payout")
	if err != nil {
		return fail(err.Error())
	}
	// Escrow is re-checked at the moment of transfer, never trusted from an
	// earlier computation.
	if amount > r.Escrow {
		return fail("escrow underflow")
	}
	r.Escrow -= amount
	if err := a.st.Credit(msg.Claimer, amount); err != nil {
		r.Escrow += amount
		return fail(err.Error())
	}
	t.Claimed[tier] = true

	return okEvent("PrizeClaimed", map[string]string{
		"roundId": strconv.FormatUint(r.ID, 10),
		"claimer": msg.Claimer,
		"tier":    strconv.Itoa(tier),
		"amount":  strconv.FormatUint(amount, 10),
	})
}

func (a *LottoApp) withdrawOperatorFee(env codec.TxEnvelope, msg codec.LottoWithdrawFeeTx) *abci.ExecTxResult {
	if res := a.requireOwner(env, msg.Caller); res != nil {
		return res
	}
	r, ok := a.st.Rounds[msg.RoundID]
	if !ok {
		return fail(errNoSuchRound)
	}
	if !r.Finalized {
		return fail(errNotFinalized)
	}
	if r.FeePaid {
		return fail(errFeeAlreadyPaid)
	}
	to := msg.To
	if to == "" {
		to = msg.Caller
	}

	amount := r.FeeAmount
	if amount > r.Escrow {
		return fail("escrow underflow")
	}
	r.Escrow -= amount
	if err := a.st.Credit(to, amount); err != nil {
		r.Escrow += amount
		return fail(err.Error())
	}
	r.FeePaid = true

	return okEvent("FeeWithdrawn", map[string]string{
		"roundId": strconv.FormatUint(r.ID, 10),
		"to":      to,
		"amount":  strconv.FormatUint(amount, 10),
	})
}

// sweepUnclaimed collects everything the round still escrows for prizes after
// the claim deadline: unclaimed payouts, zero-winner tier pools, and floor-
// division dust. The unpaid operator fee is excluded; it stays reserved for
// withdrawOperatorFee.
func (a *LottoApp) sweepUnclaimed(env codec.TxEnvelope, msg codec.LottoSweepUnclaimedTx, now int64) *abci.ExecTxResult {
	if res := a.requireOwner(env, msg.Caller); res != nil {
		return res
	}
	r, ok := a.st.Rounds[msg.RoundID]
	if !ok {
		return fail(errNoSuchRound)
	}
	if !r.Finalized {
		return fail(errNotFinalized)
	}
	if r.ClaimDeadline == 0 || now < r.ClaimDeadline {
		return fail(errClaimNotExpired)
	}
	to := msg.To
	if to == "" {
		to = msg.Caller
	}

	remainder := r.Escrow
	if !r.FeePaid {
		remainder -= r.FeeAmount
	}
	if r.Swept || remainder == 0 {
		return fail(errNothingToSweep)
	}

	r.Escrow -= remainder
	if err := a.st.Credit(to, remainder); err != nil {
		r.Escrow += remainder
		return fail(err.Error())
	}
	r.Swept = true

	return okEvent("UnclaimedSwept", map[string]string{
		"roundId": strconv.FormatUint(r.ID, 10),
		"to":      to,
		"amount":  strconv.FormatUint(remainder, 10),
	})
}
