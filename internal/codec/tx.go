package codec

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TxEnvelope is the transaction container.
//
// CometBFT transactions are opaque bytes; the devnet protocol encodes them as
// JSON envelopes routed by type.
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Tx auth:
	// - Nonce: included in the signed message for replay protection (must increase per signer).
	// - Signer: account address of the signer.
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth ----

// Account pubkey registration for tx authentication.
type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Admin ----

type LottoOpenRoundTx struct {
	Caller        string `json:"caller"`
	SalesStart    int64  `json:"salesStart"`
	SalesEnd      int64  `json:"salesEnd"`
	RevealEnd     int64  `json:"revealEnd"`
	ClaimDeadline int64  `json:"claimDeadline,omitempty"` // 0 = unbounded
}

type LottoSetParamsTx struct {
	Caller      string    `json:"caller"`
	N           int       `json:"n"`
	TicketPrice uint64    `json:"ticketPrice"`
	FeeBps      uint32    `json:"feeBps"`
	PrizeBps    [3]uint32 `json:"prizeBps"`
}

type LottoSetOracleTx struct {
	Caller string `json:"caller"`
	Oracle string `json:"oracle"`
	Price  uint64 `json:"price"` // randomness request price quote
}

type LottoPauseTx struct {
	Caller string `json:"caller"`
}

type LottoUnpauseTx struct {
	Caller string `json:"caller"`
}

type LottoTransferOwnershipTx struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
}

// ---- Player ----

type LottoCommitBuyTx struct {
	Buyer      string      `json:"buyer"`
	CommitHash common.Hash `json:"commitHash"`
	Quantity   uint64      `json:"quantity"`
	Value      uint64      `json:"value"` // must equal quantity * ticketPrice
}

type LottoCommitBuyBatchTx struct {
	Buyer        string        `json:"buyer"`
	CommitHashes []common.Hash `json:"commitHashes"`
	Quantities   []uint64      `json:"quantities"`
	Value        uint64        `json:"value"` // must equal the aggregate cost
}

type LottoRevealTx struct {
	Buyer    string      `json:"buyer"`
	RoundID  uint64      `json:"roundId"`
	Numbers  []int       `json:"numbers"`
	Salt     common.Hash `json:"salt"`
	Quantity uint64      `json:"quantity"`
}

type LottoClaimTx struct {
	Claimer  string      `json:"claimer"`
	RoundID  uint64      `json:"roundId"`
	Numbers  []int       `json:"numbers"`
	Salt     common.Hash `json:"salt"`
	Quantity uint64      `json:"quantity"`
}

// ---- Draw ----

type LottoRequestDrawTx struct {
	Caller string `json:"caller"`
	Value  uint64 `json:"value"` // randomness fee; must cover the quoted price
}

type LottoReRequestDrawTx struct {
	Caller  string `json:"caller"`
	RoundID uint64 `json:"roundId"`
	Value   uint64 `json:"value"`
}

// VrfFulfillTx is the inbound half of the randomness handshake. A fulfillment
// whose requestId is not the currently pending one is silently ignored.
type VrfFulfillTx struct {
	Caller    string         `json:"caller"` // must be the configured oracle
	RequestID uint64         `json:"requestId"`
	Words     [2]common.Hash `json:"words"`
}

// ---- Settlement ----

type LottoFinalizeRoundTx struct {
	Caller  string `json:"caller"`
	RoundID uint64 `json:"roundId"`
}

type LottoSnapshotWinnersTx struct {
	Caller  string `json:"caller"`
	RoundID uint64 `json:"roundId"`
	Start   uint64 `json:"start"`
	Limit   uint64 `json:"limit"`
}

type LottoWithdrawFeeTx struct {
	Caller  string `json:"caller"`
	RoundID uint64 `json:"roundId"`
	To      string `json:"to"`
}

type LottoSweepUnclaimedTx struct {
	Caller  string `json:"caller"`
	RoundID uint64 `json:"roundId"`
	To      string `json:"to"`
}
