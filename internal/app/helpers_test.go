package app

import (
	"encoding/json"
	"sort"
	"strconv"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"lottochain/internal/commit"
	"lottochain/internal/state"
)

const (
	ownerAddr  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	oracleAddr = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	alice      = "0x1111111111111111111111111111111111111111"
	bob        = "0x2222222222222222222222222222222222222222"
	carol      = "0x3333333333333333333333333333333333333333"
	dave       = "0x4444444444444444444444444444444444444444"
)

// Small (k, n) so winner constellations stay enumerable by hand.
func testParams() state.Params {
	return state.Params{
		K:           3,
		N:           5,
		TicketPrice: 10,
		FeeBps:      500,
		PrizeBps:    [3]uint32{7000, 2000, 500},
		VrfPrice:    5,
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func txBytes(t *testing.T, typ string, value any) []byte {
	t.Helper()
	return mustMarshal(t, map[string]any{
		"type":  typ,
		"value": value,
	})
}

func findEvent(events []abci.Event, typ string) *abci.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func attr(ev *abci.Event, key string) string {
	if ev == nil {
		return ""
	}
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func parseU64(t *testing.T, s string) uint64 {
	t.Helper()
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		t.Fatalf("parse uint64 %q: %v", s, err)
	}
	return n
}

func newTestApp(t *testing.T) *LottoApp {
	t.Helper()
	a, err := New(t.TempDir(), Options{
		Owner:   ownerAddr,
		Oracle:  oracleAddr,
		Params:  testParams(),
		DevMode: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func mustOk(t *testing.T, res *abci.ExecTxResult) *abci.ExecTxResult {
	t.Helper()
	if res.Code != 0 {
		t.Fatalf("expected ok, got code=%d log=%q", res.Code, res.Log)
	}
	return res
}

func mustFail(t *testing.T, res *abci.ExecTxResult, log string) {
	t.Helper()
	if res.Code == 0 {
		t.Fatalf("expected failure %q, got ok", log)
	}
	if res.Log != log {
		t.Fatalf("expected failure %q, got %q", log, res.Log)
	}
}

func mint(t *testing.T, a *LottoApp, to string, amount uint64) {
	t.Helper()
	mustOk(t, a.deliverTx(txBytes(t, "bank/mint", map[string]any{"to": to, "amount": amount}), 1))
}

// Round window used throughout: sales [100,200), reveal [200,300), claims
// close at 1000.
const (
	tSalesStart    = int64(100)
	tSalesEnd      = int64(200)
	tRevealEnd     = int64(300)
	tClaimDeadline = int64(1000)

	tDuringSales  = int64(150)
	tDuringReveal = int64(250)
	tAfterReveal  = int64(300)
)

func openDefaultRound(t *testing.T, a *LottoApp) {
	t.Helper()
	mustOk(t, a.deliverTx(txBytes(t, "lotto/open_round", map[string]any{
		"caller":        ownerAddr,
		"salesStart":    tSalesStart,
		"salesEnd":      tSalesEnd,
		"revealEnd":     tRevealEnd,
		"claimDeadline": tClaimDeadline,
	}), 1))
}

func testSalt(label string) common.Hash {
	return crypto.Keccak256Hash([]byte("salt-" + label))
}

func commitHashFor(t *testing.T, roundID uint64, numbers []int, salt common.Hash, owner string) common.Hash {
	t.Helper()
	p := testParams()
	cdc := commit.Codec{K: p.K, N: p.N}
	h, err := cdc.Hash(roundID, numbers, salt, common.HexToAddress(owner))
	if err != nil {
		t.Fatalf("commit hash: %v", err)
	}
	return h
}

func buyTicket(t *testing.T, a *LottoApp, buyer string, numbers []int, salt common.Hash, qty uint64) common.Hash {
	t.Helper()
	h := commitHashFor(t, 1, numbers, salt, buyer)
	mustOk(t, a.deliverTx(txBytes(t, "lotto/commit_buy", map[string]any{
		"buyer":      buyer,
		"commitHash": h,
		"quantity":   qty,
		"value":      qty * testParams().TicketPrice,
	}), tDuringSales))
	return h
}

func revealTicket(t *testing.T, a *LottoApp, buyer string, numbers []int, salt common.Hash, qty uint64) {
	t.Helper()
	mustOk(t, a.deliverTx(txBytes(t, "lotto/reveal", map[string]any{
		"buyer":    buyer,
		"roundId":  1,
		"numbers":  numbers,
		"salt":     salt,
		"quantity": qty,
	}), tDuringReveal))
}

// complement returns [1,n] minus the given ascending set, ascending.
func complement(n int, used []int) []int {
	in := make(map[int]bool, len(used))
	for _, v := range used {
		in[v] = true
	}
	var out []int
	for v := 1; v <= n; v++ {
		if !in[v] {
			out = append(out, v)
		}
	}
	return out
}

func ascending(vals ...int) []int {
	out := append([]int(nil), vals...)
	sort.Ints(out)
	return out
}
