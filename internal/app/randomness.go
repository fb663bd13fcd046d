package app

import (
	"strconv"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"

	"lottochain/internal/codec"
	"lottochain/internal/draw"
)

// requestDraw forwards a randomness request to the oracle. The fee is escrowed
// to the oracle account up front; fulfillment arrives later as an independent
// vrf/fulfill tx.
func (a *LottoApp) requestDraw(env codec.TxEnvelope, msg codec.LottoRequestDrawTx, now int64) *abci.ExecTxResult {
	if a.st.Paused {
		return fail(errPaused)
	}
	if err := requireAccountAuth(a.st, env, msg.Caller); err != nil {
		return fail(err.Error())
	}
	r := a.st.CurrentRound()
	if r == nil {
		return fail(errNoSuchRound)
	}
	if now < r.RevealEnd {
		return fail(errRevealNotEnded)
	}
	if r.Drawn || r.RequestID != 0 {
		return fail(errDrawRequested)
	}
	if msg.Value < a.st.Params.VrfPrice {
		return fail(errInsufficientFee)
	}
	if a.st.Balance(msg.Caller) < msg.Value {
		return fail("insufficient funds")
	}

	if err := a.st.Debit(msg.Caller, msg.Value); err != nil {
		return fail(err.Error())
	}
	if err := a.st.Credit(a.st.Oracle, msg.Value); err != nil {
		_ = a.st.Credit(msg.Caller, msg.Value)
		return fail(err.Error())
	}
	r.RequestID = a.st.NextRequestID
	a.st.NextRequestID++
	r.LastRequestTime = now

	return okEvent("DrawRequested", map[string]string{
		"roundId":   strconv.FormatUint(r.ID, 10),
		"requestId": strconv.FormatUint(r.RequestID, 10),
		"fee":       strconv.FormatUint(msg.Value, 10),
	})
}

// reRequestDraw replaces the pending request of a round whose oracle has gone
// quiet. The grace period throttles request flooding; the old request id is
// overwritten, so a late fulfillment of it will be ignored.
func (a *LottoApp) reRequestDraw(env codec.TxEnvelope, msg codec.LottoReRequestDrawTx, now int64) *abci.ExecTxResult {
	if res := a.requireOwner(env, msg.Caller); res != nil {
		return res
	}
	r, ok := a.st.Rounds[msg.RoundID]
	if !ok {
		return fail(errNoSuchRound)
	}
	if r.Drawn || r.RequestID == 0 {
		return fail(errNotStuck)
	}
	stuckAt, err := addInt64AndU64Checked(r.LastRequestTime, a.st.Params.GraceSecs, "grace deadline")
	if err != nil {
		return fail(err.Error())
	}
	if now < stuckAt {
		return fail(errNotStuck)
	}
	if msg.Value < a.st.Params.VrfPrice {
		return fail(errInsufficientFee)
	}
	if a.st.Balance(msg.Caller) < msg.Value {
		return fail("insufficient funds")
	}

	if err := a.st.Debit(msg.Caller, msg.Value); err != nil {
		return fail(err.Error())
	}
	if err := a.st.Credit(a.st.Oracle, msg.Value); err != nil {
		_ = a.st.Credit(msg.Caller, msg.Value)
		return fail(err.Error())
	}
	old := r.RequestID
	r.RequestID = a.st.NextRequestID
	a.st.NextRequestID++
	r.LastRequestTime = now

	return okEvent("DrawReRequested", map[string]string{
		"roundId":      strconv.FormatUint(r.ID, 10),
		"requestId":    strconv.FormatUint(r.RequestID, 10),
		"oldRequestId": strconv.FormatUint(old, 10),
	})
}

// fulfillRandomness consumes the oracle's two random words. A fulfillment for
// anything but the currently pending request id is a silent no-op (Code 0):
// the asynchronous boundary cannot tell a stale retry from an attack, so both
// are ignored rather than surfaced. A matching fulfillment runs the draw
// engine and is therefore processed exactly once.
func (a *LottoApp) fulfillRandomness(env codec.TxEnvelope, msg codec.VrfFulfillTx) *abci.ExecTxResult {
	if msg.Caller != a.st.Oracle {
		return fail(errNotOracle)
	}
	if err := requireAccountAuth(a.st, env, msg.Caller); err != nil {
		return fail(err.Error())
	}

	ignored := func(reason string) *abci.ExecTxResult {
		return okEvent("RandomnessIgnored", map[string]string{
			"requestId": strconv.FormatUint(msg.RequestID, 10),
			"reason":    reason,
		})
	}

	r := a.st.CurrentRound()
	if r == nil {
		return ignored("no round")
	}
	if r.Drawn || r.RequestID == 0 || r.RequestID != msg.RequestID {
		return ignored("stale request id")
	}

	winning, err := draw.Draw(r.K, r.N, msg.Words[0], msg.Words[1])
	if err != nil {
		// Round parameters are validated before opening; a draw failure here
		// is a programming error, not a caller error.
		return fail(err.Error())
	}
	r.WinningNumbers = winning
	r.Drawn = true

	nums := make([]string, len(winning))
	for i, v := range winning {
		nums[i] = strconv.Itoa(v)
	}
	return okEvent("RandomnessFulfilled", map[string]string{
		"roundId":        strconv.FormatUint(r.ID, 10),
		"requestId":      strconv.FormatUint(msg.RequestID, 10),
		"winningNumbers": strings.Join(nums, ","),
	})
}

// finalizeRound freezes the fee and tier pools. Pools are floored; the fee
// bucket absorbs every rounding remainder so the three pools plus the fee
// always sum to the exact sales amount.
func (a *LottoApp) finalizeRound(env codec.TxEnvelope, msg codec.LottoFinalizeRoundTx) *abci.ExecTxResult {
	if res := a.requireOwner(env, msg.Caller); res != nil {
		return res
	}
	r, ok := a.st.Rounds[msg.RoundID]
	if !ok {
		return fail(errNoSuchRound)
	}
	if !r.Drawn {
		return fail(errNotDrawn)
	}
	if r.Finalized {
		return fail(errAlreadyFinal)
	}

	var pools [3]uint64
	var poolSum uint64
	for t := 0; t < 3; t++ {
		pools[t] = mulBpsFloor(r.TotalSales, r.PrizeBps[t])
		poolSum += pools[t]
	}
	r.TierPools = pools
	r.FeeAmount = r.TotalSales - poolSum
	r.Finalized = true

	return okEvent("RoundFinalized", map[string]string{
		"roundId":   strconv.FormatUint(r.ID, 10),
		"feeAmount": strconv.FormatUint(r.FeeAmount, 10),
		"pool0":     strconv.FormatUint(pools[0], 10),
		"pool1":     strconv.FormatUint(pools[1], 10),
		"pool2":     strconv.FormatUint(pools[2], 10),
	})
}
