package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"

	"lottochain/internal/codec"
	"lottochain/internal/state"
)

const (
	AppVersion uint64 = 1

	// Batch-commit caps.
	maxBatchEntries  = 20
	maxBatchTotalQty = 100
)

// Options seed a fresh chain. They are ignored when the store already holds
// state.
type Options struct {
	Owner  string
	Oracle string
	Params state.Params

	// DevMode enables the bank/mint faucet.
	DevMode bool
}

// LottoApp is the replicated lottery state machine. All mutating operations
// are totally ordered under mu: FinalizeBlock applies txs one at a time, and
// queries take the same lock so they observe a consistent snapshot.
type LottoApp struct {
	*abci.BaseApplication

	mu       sync.Mutex
	st       *state.State
	store    *state.Store
	lastHash []byte
	devMode  bool
}

func New(home string, opts Options) (*LottoApp, error) {
	store, err := state.OpenStore(home)
	if err != nil {
		return nil, err
	}
	st, err := store.Load()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if st == nil {
		if err := opts.Params.Validate(); err != nil {
			_ = store.Close()
			return nil, err
		}
		st = state.NewState(opts.Owner, opts.Oracle, opts.Params)
	}
	a := &LottoApp{
		BaseApplication: abci.NewBaseApplication(),
		st:              st,
		store:           store,
		lastHash:        st.AppHash(),
		devMode:         opts.DevMode,
	}
	return a, nil
}

func (a *LottoApp) Close() error {
	return a.store.Close()
}

func (a *LottoApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "lottochain",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *LottoApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	// Structural validation only; full checks run deterministically in
	// FinalizeBlock against the serialized state.
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *LottoApp) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	return &abci.InitChainResponse{}, nil
}

func (a *LottoApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	// Block time is the wall clock all time-bounded phases are evaluated
	// against; phases are re-derived per operation, never cached.
	now := req.Time.Unix()
	a.st.LastBlockTime = now

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, now)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *LottoApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Persist after each block. Returning the error makes the node halt
	// loudly instead of diverging from its own store.
	if err := a.store.Save(a.st); err != nil {
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *LottoApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := strings.TrimSpace(req.Path)
	reject := func(log string) (*abci.QueryResponse, error) {
		return &abci.QueryResponse{Code: 1, Log: log, Height: a.st.Height}, nil
	}
	answer := func(v any) (*abci.QueryResponse, error) {
		b, _ := json.Marshal(v)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	}

	switch {
	case path == "/status":
		cur := a.st.CurrentRound()
		status := map[string]any{
			"height":         a.st.Height,
			"lastBlockTime":  a.st.LastBlockTime,
			"paused":         a.st.Paused,
			"currentRoundId": a.st.CurrentRoundID,
		}
		if cur != nil {
			status["phase"] = cur.PhaseAt(a.st.LastBlockTime)
		}
		return answer(status)

	case path == "/params":
		return answer(a.st.Params)

	case path == "/round/current":
		r := a.st.CurrentRound()
		if r == nil {
			return reject("no round open")
		}
		return answer(roundView(r, a.st.LastBlockTime))

	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		return answer(map[string]any{"addr": addr, "balance": a.st.Balance(addr)})

	case strings.HasPrefix(path, "/round/"):
		parts := strings.Split(strings.TrimPrefix(path, "/round/"), "/")
		id, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return reject("invalid round id")
		}
		r, ok := a.st.Rounds[id]
		if !ok {
			return reject("round not found")
		}
		switch {
		case len(parts) == 1:
			return answer(roundView(r, a.st.LastBlockTime))
		case len(parts) == 2 && parts[1] == "pools":
			return answer(map[string]any{
				"roundId":    r.ID,
				"totalSales": r.TotalSales,
				"feeAmount":  r.FeeAmount,
				"tierPools":  r.TierPools,
				"tierCounts": r.TierCounts,
				"tierPayout": r.TierPayout,
				"escrow":     r.Escrow,
			})
		case len(parts) == 3 && parts[1] == "ticket":
			if !strings.HasPrefix(parts[2], "0x") {
				return reject("invalid commit hash")
			}
			t := r.Ticket(common.HexToHash(parts[2]))
			if t == nil {
				return reject("ticket not found")
			}
			return answer(t)
		default:
			return reject("unknown round query")
		}

	default:
		return reject("unknown query path")
	}
}

// roundView is the round record plus its derived phase.
func roundView(r *state.Round, now int64) map[string]any {
	return map[string]any{
		"round": r,
		"phase": r.PhaseAt(now),
	}
}

func (a *LottoApp) deliverTx(txBytes []byte, now int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return fail(err.Error())
	}

	switch env.Type {
	case "bank/mint":
		if !a.devMode {
			return fail("bank/mint disabled outside dev mode")
		}
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad bank/mint value")
		}
		if msg.To == "" || msg.Amount == 0 {
			return fail("missing to/amount")
		}
		if err := a.st.Credit(msg.To, msg.Amount); err != nil {
			return fail(err.Error())
		}
		return okEvent("BankMinted", map[string]string{
			"to":     msg.To,
			"amount": strconv.FormatUint(msg.Amount, 10),
		})

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad bank/send value")
		}
		if msg.From == "" || msg.To == "" || msg.Amount == 0 {
			return fail("missing from/to/amount")
		}
		if err := requireAccountAuth(a.st, env, msg.From); err != nil {
			return fail(err.Error())
		}
		if err := a.st.Debit(msg.From, msg.Amount); err != nil {
			return fail(err.Error())
		}
		if err := a.st.Credit(msg.To, msg.Amount); err != nil {
			// Unreachable in practice; restore the debit so the tx is atomic.
			_ = a.st.Credit(msg.From, msg.Amount)
			return fail(err.Error())
		}
		return okEvent("BankSent", map[string]string{
			"from":   msg.From,
			"to":     msg.To,
			"amount": strconv.FormatUint(msg.Amount, 10),
		})

	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad auth/register_account value")
		}
		if err := requireRegisterAccountAuth(env, msg); err != nil {
			return fail(err.Error())
		}
		a.st.AccountKeys[msg.Account] = msg.PubKey
		return okEvent("AccountRegistered", map[string]string{"account": msg.Account})

	case "lotto/open_round":
		var msg codec.LottoOpenRoundTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/open_round value")
		}
		return a.openRound(env, msg)

	case "lotto/set_params":
		var msg codec.LottoSetParamsTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/set_params value")
		}
		return a.setParams(env, msg)

	case "lotto/set_oracle":
		var msg codec.LottoSetOracleTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/set_oracle value")
		}
		return a.setOracle(env, msg)

	case "lotto/pause":
		var msg codec.LottoPauseTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/pause value")
		}
		return a.setPaused(env, msg.Caller, true)

	case "lotto/unpause":
		var msg codec.LottoUnpauseTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/unpause value")
		}
		return a.setPaused(env, msg.Caller, false)

	case "lotto/transfer_ownership":
		var msg codec.LottoTransferOwnershipTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/transfer_ownership value")
		}
		return a.transferOwnership(env, msg)

	case "lotto/commit_buy":
		var msg codec.LottoCommitBuyTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/commit_buy value")
		}
		return a.commitBuy(env, msg, now)

	case "lotto/commit_buy_batch":
		var msg codec.LottoCommitBuyBatchTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/commit_buy_batch value")
		}
		return a.commitBuyBatch(env, msg, now)

	case "lotto/reveal":
		var msg codec.LottoRevealTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/reveal value")
		}
		return a.reveal(env, msg, now)

	case "lotto/request_draw":
		var msg codec.LottoRequestDrawTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/request_draw value")
		}
		return a.requestDraw(env, msg, now)

	case "lotto/rerequest_draw":
		var msg codec.LottoReRequestDrawTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/rerequest_draw value")
		}
		return a.reRequestDraw(env, msg, now)

	case "vrf/fulfill":
		var msg codec.VrfFulfillTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad vrf/fulfill value")
		}
		return a.fulfillRandomness(env, msg)

	case "lotto/finalize_round":
		var msg codec.LottoFinalizeRoundTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/finalize_round value")
		}
		return a.finalizeRound(env, msg)

	case "lotto/snapshot_winners":
		var msg codec.LottoSnapshotWinnersTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/snapshot_winners value")
		}
		return a.snapshotWinners(env, msg)

	case "lotto/claim":
		var msg codec.LottoClaimTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/claim value")
		}
		return a.claim(env, msg, now)

	case "lotto/withdraw_fee":
		var msg codec.LottoWithdrawFeeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/withdraw_fee value")
		}
		return a.withdrawOperatorFee(env, msg)

	case "lotto/sweep_unclaimed":
		var msg codec.LottoSweepUnclaimedTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return fail("bad lotto/sweep_unclaimed value")
		}
		return a.sweepUnclaimed(env, msg, now)

	default:
		return fail("unknown tx type: " + env.Type)
	}
}

// requireOwner authenticates the caller and checks ownership.
func (a *LottoApp) requireOwner(env codec.TxEnvelope, caller string) *abci.ExecTxResult {
	if err := requireAccountAuth(a.st, env, caller); err != nil {
		return fail(err.Error())
	}
	if caller == "" || caller != a.st.Owner {
		return fail(errNotOwner)
	}
	return nil
}
