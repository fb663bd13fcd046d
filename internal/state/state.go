package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Params are the chain-level lottery parameters. They are snapshotted into a
// round when it opens, so changing them never disturbs a round in flight.
type Params struct {
	K           int       `json:"k"`
	N           int       `json:"n"`
	TicketPrice uint64    `json:"ticketPrice"`
	FeeBps      uint32    `json:"feeBps"`
	PrizeBps    [3]uint32 `json:"prizeBps"` // tiers: k, k-1, k-2 matches
	VrfPrice    uint64    `json:"vrfPrice"`
	GraceSecs   uint64    `json:"graceSecs"` // min wait before re-requesting a stuck draw
}

const DefaultGraceSecs uint64 = 3600

// Validate enforces the fee/prize split invariant and the k <= n bound.
// The error text is the deterministic tx result code.
func (p Params) Validate() error {
	sum := uint64(p.FeeBps) + uint64(p.PrizeBps[0]) + uint64(p.PrizeBps[1]) + uint64(p.PrizeBps[2])
	if sum != 10000 {
		return fmt.Errorf("BPS_SUM")
	}
	// The three prize tiers pay k, k-1 and k-2 matches, so k below 3 would
	// let a zero-match ticket win a tier.
	if p.K < 3 || p.N < p.K || p.N > 255 {
		return fmt.Errorf("BAD_N")
	}
	return nil
}

// Phase is a round's effective lifecycle phase. It is derived from the round
// record and "now" on every call, never cached.
type Phase string

const (
	PhasePending       Phase = "pending" // before salesStart
	PhaseSalesOpen     Phase = "salesOpen"
	PhaseRevealOpen    Phase = "revealOpen"
	PhaseAwaitingDraw  Phase = "awaitingDraw"
	PhaseDrawRequested Phase = "drawRequested"
	PhaseDrawn         Phase = "drawn"
	PhaseFinalized     Phase = "finalized"
)

type Ticket struct {
	Owner      string      `json:"owner"` // 0x hex address, lowercase
	CommitHash common.Hash `json:"commitHash"`
	Quantity   uint64      `json:"quantity"`

	// Revealed is nil until the (write-once) reveal.
	Revealed []int `json:"revealed,omitempty"`

	// Claimed flags only ever flip false -> true, one per prize tier.
	Claimed [3]bool `json:"claimed"`
}

type Round struct {
	ID uint64 `json:"id"`

	// Parameters frozen at open time.
	K           int       `json:"k"`
	N           int       `json:"n"`
	TicketPrice uint64    `json:"ticketPrice"`
	FeeBps      uint32    `json:"feeBps"`
	PrizeBps    [3]uint32 `json:"prizeBps"`

	// Window bounds (unix seconds). ClaimDeadline 0 means unbounded claims.
	SalesStart    int64 `json:"salesStart"`
	SalesEnd      int64 `json:"salesEnd"`
	RevealEnd     int64 `json:"revealEnd"`
	ClaimDeadline int64 `json:"claimDeadline"`

	TotalSales   uint64 `json:"totalSales"`
	TotalTickets uint64 `json:"totalTickets"`

	// Randomness request/fulfill handshake. RequestID 0 means no request yet;
	// only the currently recorded id is honored by a fulfillment.
	RequestID       uint64 `json:"requestId"`
	LastRequestTime int64  `json:"lastRequestTime"`

	Drawn          bool  `json:"drawn"`
	WinningNumbers []int `json:"winningNumbers,omitempty"`

	Finalized bool      `json:"finalized"`
	TierPools [3]uint64 `json:"tierPools"`
	FeeAmount uint64    `json:"feeAmount"`
	FeePaid   bool      `json:"feePaid"`
	Swept     bool      `json:"swept"`

	SnapshotDone   bool      `json:"snapshotDone"`
	SnapshotCursor uint64    `json:"snapshotCursor"`
	TierCounts     [3]uint64 `json:"tierCounts"` // quantity-weighted winners per tier
	TierPayout     [3]uint64 `json:"tierPayout"` // per-entry payout, set once snapshot completes

	// Escrow is the portion of TotalSales the round still owns. Every payout
	// path decrements it exactly once per unit paid.
	Escrow uint64 `json:"escrow"`

	// Tickets in insertion order. The snapshot pass iterates this order, so it
	// must be stable across save/load.
	Tickets []*Ticket `json:"tickets"`

	ticketIdx map[common.Hash]int
}

// PhaseAt derives the round's effective phase at the given unix time.
func (r *Round) PhaseAt(now int64) Phase {
	switch {
	case r.Finalized:
		return PhaseFinalized
	case r.Drawn:
		return PhaseDrawn
	case r.RequestID != 0:
		return PhaseDrawRequested
	case now >= r.RevealEnd:
		return PhaseAwaitingDraw
	case now >= r.SalesEnd:
		return PhaseRevealOpen
	case now >= r.SalesStart:
		return PhaseSalesOpen
	default:
		return PhasePending
	}
}

// Closed reports whether the round no longer blocks opening the next one.
// Settlement (claims, fee withdrawal, sweep) continues on a closed round.
func (r *Round) Closed() bool {
	return r.Finalized
}

// Ticket returns the ticket committed under hash, or nil.
func (r *Round) Ticket(hash common.Hash) *Ticket {
	r.ensureIdx()
	i, ok := r.ticketIdx[hash]
	if !ok {
		return nil
	}
	return r.Tickets[i]
}

// AddTicket appends a ticket, preserving insertion order and indexing its
// commit hash. It fails if the hash is already present in this round.
func (r *Round) AddTicket(t *Ticket) error {
	r.ensureIdx()
	if _, ok := r.ticketIdx[t.CommitHash]; ok {
		return fmt.Errorf("DUPLICATE_COMMIT")
	}
	r.ticketIdx[t.CommitHash] = len(r.Tickets)
	r.Tickets = append(r.Tickets, t)
	return nil
}

func (r *Round) ensureIdx() {
	if r.ticketIdx != nil {
		return
	}
	r.ticketIdx = make(map[common.Hash]int, len(r.Tickets))
	for i, t := range r.Tickets {
		r.ticketIdx[t.CommitHash] = i
	}
}

type State struct {
	Height        int64 `json:"height"`
	LastBlockTime int64 `json:"lastBlockTime"`

	Owner  string `json:"owner"`
	Oracle string `json:"oracle"`
	Paused bool   `json:"paused"`

	Params Params `json:"params"`

	CurrentRoundID uint64 `json:"currentRoundId"`
	NextRequestID  uint64 `json:"nextRequestId"`

	Accounts    map[string]uint64 `json:"accounts"`
	AccountKeys map[string][]byte `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64 `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce

	Rounds map[uint64]*Round `json:"rounds"`
}

func NewState(owner, oracle string, params Params) *State {
	if params.GraceSecs == 0 {
		params.GraceSecs = DefaultGraceSecs
	}
	return &State{
		Owner:         owner,
		Oracle:        oracle,
		Params:        params,
		NextRequestID: 1,
		Accounts:      map[string]uint64{},
		AccountKeys:   map[string][]byte{},
		NonceMax:      map[string]uint64{},
		Rounds:        map[uint64]*Round{},
	}
}

func (s *State) normalize() {
	if s.Accounts == nil {
		s.Accounts = map[string]uint64{}
	}
	if s.AccountKeys == nil {
		s.AccountKeys = map[string][]byte{}
	}
	if s.NonceMax == nil {
		s.NonceMax = map[string]uint64{}
	}
	if s.Rounds == nil {
		s.Rounds = map[uint64]*Round{}
	}
	if s.NextRequestID == 0 {
		s.NextRequestID = 1
	}
	if s.Params.GraceSecs == 0 {
		s.Params.GraceSecs = DefaultGraceSecs
	}
}

// CurrentRound returns the highest-id round, or nil before the first open.
func (s *State) CurrentRound() *Round {
	if s.CurrentRoundID == 0 {
		return nil
	}
	return s.Rounds[s.CurrentRoundID]
}

// ---- Bank ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

func (s *State) Credit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return fmt.Errorf("balance overflow: have=%d add=%d", bal, amount)
	}
	s.Accounts[addr] = bal + amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return fmt.Errorf("insufficient funds: have=%d need=%d", bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}

// ---- App hash ----

// AppHash hashes a normalized view of the state. encoding/json does not
// guarantee map key order, so maps are flattened into sorted slices first.
func (s *State) AppHash() []byte {
	type accountKV struct {
		Addr    string `json:"addr"`
		Balance uint64 `json:"balance"`
	}
	type accountKeyKV struct {
		Addr   string `json:"addr"`
		PubKey []byte `json:"pubKey"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}
	type roundKV struct {
		ID    uint64 `json:"id"`
		Round *Round `json:"round"`
	}

	accounts := make([]accountKV, 0, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts = append(accounts, accountKV{Addr: k, Balance: v})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Addr < accounts[j].Addr })

	accountKeys := make([]accountKeyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, accountKeyKV{Addr: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Addr < accountKeys[j].Addr })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	rounds := make([]roundKV, 0, len(s.Rounds))
	for id, r := range s.Rounds {
		rounds = append(rounds, roundKV{ID: id, Round: r})
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].ID < rounds[j].ID })

	normalized := struct {
		Height         int64          `json:"height"`
		LastBlockTime  int64          `json:"lastBlockTime"`
		Owner          string         `json:"owner"`
		Oracle         string         `json:"oracle"`
		Paused         bool           `json:"paused"`
		Params         Params         `json:"params"`
		CurrentRoundID uint64         `json:"currentRoundId"`
		NextRequestID  uint64         `json:"nextRequestId"`
		Accounts       []accountKV    `json:"accounts"`
		AccountKeys    []accountKeyKV `json:"accountKeys,omitempty"`
		NonceMax       []nonceKV      `json:"nonceMax,omitempty"`
		Rounds         []roundKV      `json:"rounds"`
	}{
		Height:         s.Height,
		LastBlockTime:  s.LastBlockTime,
		Owner:          s.Owner,
		Oracle:         s.Oracle,
		Paused:         s.Paused,
		Params:         s.Params,
		CurrentRoundID: s.CurrentRoundID,
		NextRequestID:  s.NextRequestID,
		Accounts:       accounts,
		AccountKeys:    accountKeys,
		NonceMax:       nonces,
		Rounds:         rounds,
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}
