package app

import (
	"errors"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"

	"lottochain/internal/codec"
	"lottochain/internal/commit"
	"lottochain/internal/state"
)

func (a *LottoApp) openRound(env codec.TxEnvelope, msg codec.LottoOpenRoundTx) *abci.ExecTxResult {
	if res := a.requireOwner(env, msg.Caller); res != nil {
		return res
	}
	if cur := a.st.CurrentRound(); cur != nil && !cur.Closed() {
		return fail(errRoundAlreadyOpen)
	}
	if !(msg.SalesStart < msg.SalesEnd && msg.SalesEnd < msg.RevealEnd) {
		return fail(errBadWindow)
	}
	if msg.ClaimDeadline != 0 && msg.ClaimDeadline <= msg.RevealEnd {
		return fail(errBadWindow)
	}

	p := a.st.Params
	id := a.st.CurrentRoundID + 1
	r := &state.Round{
		ID:            id,
		K:             p.K,
		N:             p.N,
		TicketPrice:   p.TicketPrice,
		FeeBps:        p.FeeBps,
		PrizeBps:      p.PrizeBps,
		SalesStart:    msg.SalesStart,
		SalesEnd:      msg.SalesEnd,
		RevealEnd:     msg.RevealEnd,
		ClaimDeadline: msg.ClaimDeadline,
	}
	a.st.Rounds[id] = r
	a.st.CurrentRoundID = id

	return okEvent("RoundOpened", map[string]string{
		"roundId":       strconv.FormatUint(id, 10),
		"k":             strconv.Itoa(p.K),
		"n":             strconv.Itoa(p.N),
		"ticketPrice":   strconv.FormatUint(p.TicketPrice, 10),
		"salesStart":    strconv.FormatInt(msg.SalesStart, 10),
		"salesEnd":      strconv.FormatInt(msg.SalesEnd, 10),
		"revealEnd":     strconv.FormatInt(msg.RevealEnd, 10),
		"claimDeadline": strconv.FormatInt(msg.ClaimDeadline, 10),
	})
}

func (a *LottoApp) setParams(env codec.TxEnvelope, msg codec.LottoSetParamsTx) *abci.ExecTxResult {
	if res := a.requireOwner(env, msg.Caller); res != nil {
		return res
	}
	next := a.st.Params
	next.N = msg.N
	next.TicketPrice = msg.TicketPrice
	next.FeeBps = msg.FeeBps
	next.PrizeBps = msg.PrizeBps
	if err := next.Validate(); err != nil {
		return fail(err.Error())
	}
	a.st.Params = next
	return okEvent("ParamsUpdated", map[string]string{
		"n":           strconv.Itoa(next.N),
		"ticketPrice": strconv.FormatUint(next.TicketPrice, 10),
		"feeBps":      strconv.FormatUint(uint64(next.FeeBps), 10),
	})
}

func (a *LottoApp) setOracle(env codec.TxEnvelope, msg codec.LottoSetOracleTx) *abci.ExecTxResult {
	if res := a.requireOwner(env, msg.Caller); res != nil {
		return res
	}
	if msg.Oracle == "" {
		return fail("missing oracle")
	}
	a.st.Oracle = msg.Oracle
	a.st.Params.VrfPrice = msg.Price
	return okEvent("OracleUpdated", map[string]string{
		"oracle": msg.Oracle,
		"price":  strconv.FormatUint(msg.Price, 10),
	})
}

func (a *LottoApp) setPaused(env codec.TxEnvelope, caller string, paused bool) *abci.ExecTxResult {
	if res := a.requireOwner(env, caller); res != nil {
		return res
	}
	a.st.Paused = paused
	typ := "Paused"
	if !paused {
		typ = "Unpaused"
	}
	return okEvent(typ, map[string]string{"by": caller})
}

func (a *LottoApp) transferOwnership(env codec.TxEnvelope, msg codec.LottoTransferOwnershipTx) *abci.ExecTxResult {
	if res := a.requireOwner(env, msg.Caller); res != nil {
		return res
	}
	if msg.To == "" {
		return fail("missing new owner")
	}
	a.st.Owner = msg.To
	return okEvent("OwnershipTransferred", map[string]string{
		"from": msg.Caller,
		"to":   msg.To,
	})
}

func (a *LottoApp) commitBuy(env codec.TxEnvelope, msg codec.LottoCommitBuyTx, now int64) *abci.ExecTxResult {
	if a.st.Paused {
		return fail(errPaused)
	}
	if err := requireAccountAuth(a.st, env, msg.Buyer); err != nil {
		return fail(err.Error())
	}
	r := a.st.CurrentRound()
	if r == nil {
		return fail(errNoSuchRound)
	}
	if r.PhaseAt(now) != state.PhaseSalesOpen {
		return fail(errSalesClosed)
	}
	if msg.Quantity == 0 {
		return fail(errBadPayment)
	}
	cost, err := mulU64Checked(msg.Quantity, r.TicketPrice, "ticket cost")
	if err != nil {
		return fail(err.Error())
	}
	if msg.Value != cost {
		return fail(errBadPayment)
	}
	if r.Ticket(msg.CommitHash) != nil {
		return fail(errDuplicateCommit)
	}
	if a.st.Balance(msg.Buyer) < msg.Value {
		return fail("insufficient funds")
	}

	// All checks passed; mutate.
	if err := a.st.Debit(msg.Buyer, msg.Value); err != nil {
		return fail(err.Error())
	}
	_ = r.AddTicket(&state.Ticket{
		Owner:      msg.Buyer,
		CommitHash: msg.CommitHash,
		Quantity:   msg.Quantity,
	})
	r.TotalSales += msg.Value
	r.TotalTickets += msg.Quantity
	r.Escrow += msg.Value

	return okEvent("TicketCommitted", map[string]string{
		"roundId":    strconv.FormatUint(r.ID, 10),
		"buyer":      msg.Buyer,
		"commitHash": msg.CommitHash.Hex(),
		"quantity":   strconv.FormatUint(msg.Quantity, 10),
		"value":      strconv.FormatUint(msg.Value, 10),
	})
}

// commitBuyBatch applies the same per-entry checks as commitBuy against one
// aggregate payment. Any entry failing rejects the whole batch; no partial
// commits are persisted.
func (a *LottoApp) commitBuyBatch(env codec.TxEnvelope, msg codec.LottoCommitBuyBatchTx, now int64) *abci.ExecTxResult {
	if a.st.Paused {
		return fail(errPaused)
	}
	if err := requireAccountAuth(a.st, env, msg.Buyer); err != nil {
		return fail(err.Error())
	}
	r := a.st.CurrentRound()
	if r == nil {
		return fail(errNoSuchRound)
	}
	if r.PhaseAt(now) != state.PhaseSalesOpen {
		return fail(errSalesClosed)
	}
	if len(msg.CommitHashes) == 0 || len(msg.CommitHashes) != len(msg.Quantities) {
		return fail(errBadPayment)
	}
	if len(msg.CommitHashes) > maxBatchEntries {
		return fail(errBatchTooLarge)
	}

	var totalQty, totalCost uint64
	seen := make(map[common.Hash]bool, len(msg.CommitHashes))
	for i, h := range msg.CommitHashes {
		qty := msg.Quantities[i]
		if qty == 0 {
			return fail(errBadPayment)
		}
		if seen[h] || r.Ticket(h) != nil {
			return fail(errDuplicateCommit)
		}
		seen[h] = true

		var err error
		if totalQty, err = addU64Checked(totalQty, qty, "batch quantity"); err != nil {
			return fail(err.Error())
		}
		cost, err := mulU64Checked(qty, r.TicketPrice, "ticket cost")
		if err != nil {
			return fail(err.Error())
		}
		if totalCost, err = addU64Checked(totalCost, cost, "batch cost"); err != nil {
			return fail(err.Error())
		}
	}
	if totalQty > maxBatchTotalQty {
		return fail(errTotalQty)
	}
	if msg.Value != totalCost {
		return fail(errBadPayment)
	}
	if a.st.Balance(msg.Buyer) < msg.Value {
		return fail("insufficient funds")
	}

	if err := a.st.Debit(msg.Buyer, msg.Value); err != nil {
		return fail(err.Error())
	}
	for i, h := range msg.CommitHashes {
		_ = r.AddTicket(&state.Ticket{
			Owner:      msg.Buyer,
			CommitHash: h,
			Quantity:   msg.Quantities[i],
		})
	}
	r.TotalSales += msg.Value
	r.TotalTickets += totalQty
	r.Escrow += msg.Value

	return okEvent("BatchCommitted", map[string]string{
		"roundId":  strconv.FormatUint(r.ID, 10),
		"buyer":    msg.Buyer,
		"entries":  strconv.Itoa(len(msg.CommitHashes)),
		"quantity": strconv.FormatUint(totalQty, 10),
		"value":    strconv.FormatUint(msg.Value, 10),
	})
}

func (a *LottoApp) reveal(env codec.TxEnvelope, msg codec.LottoRevealTx, now int64) *abci.ExecTxResult {
	if a.st.Paused {
		return fail(errPaused)
	}
	if err := requireAccountAuth(a.st, env, msg.Buyer); err != nil {
		return fail(err.Error())
	}
	r, ok := a.st.Rounds[msg.RoundID]
	if !ok {
		return fail(errNoSuchRound)
	}
	if r.PhaseAt(now) != state.PhaseRevealOpen {
		return fail(errRevealClosed)
	}

	cdc := commit.Codec{K: r.K, N: r.N}
	hash, err := cdc.Hash(msg.RoundID, msg.Numbers, msg.Salt, common.HexToAddress(msg.Buyer))
	if err != nil {
		if errors.Is(err, commit.ErrMalformedNumbers) {
			return fail(errMalformedNumbers)
		}
		return fail(err.Error())
	}
	t := r.Ticket(hash)
	if t == nil || t.Owner != msg.Buyer || t.Quantity != msg.Quantity {
		return fail(errCommitMismatch)
	}
	if t.Revealed != nil {
		return fail(errAlreadyRevealed)
	}

	// Write-once.
	t.Revealed = append([]int(nil), msg.Numbers...)

	return okEvent("TicketRevealed", map[string]string{
		"roundId":    strconv.FormatUint(r.ID, 10),
		"buyer":      msg.Buyer,
		"commitHash": hash.Hex(),
		"quantity":   strconv.FormatUint(msg.Quantity, 10),
	})
}
