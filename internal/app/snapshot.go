package app

import (
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"

	"lottochain/internal/codec"
)

// matchCount counts common values between two ascending sorted sequences with
// a linear merge.
func matchCount(a, b []int) int {
	matches := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			matches++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return matches
}

// tierFor maps a match count to a prize tier (0 = k matches, 1 = k-1,
// 2 = k-2) or -1 for no prize.
func tierFor(k, matches int) int {
	switch matches {
	case k:
		return 0
	case k - 1:
		return 1
	case k - 2:
		return 2
	default:
		return -1
	}
}

// snapshotWinners runs one bounded pass of the winner count. Tickets are
// visited in insertion order, so repeated passes with start advancing by the
// cursor always see each ticket exactly once, however many tickets the round
// sold. Once the cursor reaches the ticket count, the per-winner payouts are
// fixed by floor division and claims open.
func (a *LottoApp) snapshotWinners(env codec.TxEnvelope, msg codec.LottoSnapshotWinnersTx) *abci.ExecTxResult {
	if err := requireAccountAuth(a.st, env, msg.Caller); err != nil {
		return fail(err.Error())
	}
	r, ok := a.st.Rounds[msg.RoundID]
	if !ok {
		return fail(errNoSuchRound)
	}
	if !r.Finalized {
		return fail(errNotFinalized)
	}
	if r.SnapshotDone {
		return fail(errAlreadySnapshot)
	}
	if msg.Limit == 0 || msg.Start != r.SnapshotCursor {
		return fail(errBadCursor)
	}

	total := uint64(len(r.Tickets))
	end := msg.Start + msg.Limit
	if end > total || end < msg.Start {
		end = total
	}

	for _, t := range r.Tickets[msg.Start:end] {
		if t.Revealed == nil {
			continue
		}
		tier := tierFor(r.K, matchCount(t.Revealed, r.WinningNumbers))
		if tier < 0 {
			continue
		}
		r.TierCounts[tier] += t.Quantity
	}
	r.SnapshotCursor = end

	if end == total {
		r.SnapshotDone = true
		for tier := 0; tier < 3; tier++ {
			if r.TierCounts[tier] > 0 {
				r.TierPayout[tier] = r.TierPools[tier] / r.TierCounts[tier]
			}
			// A tier with zero winners keeps payout 0; its pool stays in
			// escrow and becomes operator-sweepable surplus.
		}
	}

	return okEvent("WinnersSnapshotted", map[string]string{
		"roundId": strconv.FormatUint(r.ID, 10),
		"cursor":  strconv.FormatUint(r.SnapshotCursor, 10),
		"done":    strconv.FormatBool(r.SnapshotDone),
	})
}
