// Package oracle is the dev-mode randomness fulfiller: the external half of
// the request/fulfill handshake. It polls the chain for a pending randomness
// request and answers it with two fresh random words.
//
// The chain enforces exactly-once processing per request id; the client-side
// bookkeeping here only avoids rebroadcasting while a fulfillment is in
// flight.
package oracle

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"lottochain/internal/codec"
)

type Client struct {
	rpc      *rpchttp.HTTP
	account  string
	interval time.Duration
	log      *logrus.Entry

	lastSent uint64
}

func New(remote, account string, interval time.Duration, log *logrus.Logger) (*Client, error) {
	if account == "" {
		return nil, fmt.Errorf("oracle account is required")
	}
	rpc, err := rpchttp.New(remote)
	if err != nil {
		return nil, fmt.Errorf("rpc client: %w", err)
	}
	return &Client{
		rpc:      rpc,
		account:  account,
		interval: interval,
		log:      log.WithField("component", "oracle"),
	}, nil
}

// Run polls until the context is cancelled. Poll errors are logged and
// retried on the next tick; an unreachable chain is not fatal.
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.WithField("interval", c.interval).Info("oracle started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.pollOnce(ctx); err != nil {
				c.log.WithError(err).Warn("poll failed")
			}
		}
	}
}

func (c *Client) pollOnce(ctx context.Context) error {
	res, err := c.rpc.ABCIQuery(ctx, "/round/current", nil)
	if err != nil {
		return err
	}
	if res.Response.Code != 0 {
		// No round open yet.
		return nil
	}

	var view struct {
		Round struct {
			ID        uint64 `json:"id"`
			RequestID uint64 `json:"requestId"`
			Drawn     bool   `json:"drawn"`
		} `json:"round"`
	}
	if err := json.Unmarshal(res.Response.Value, &view); err != nil {
		return fmt.Errorf("decode round view: %w", err)
	}
	r := view.Round
	if r.RequestID == 0 || r.Drawn || r.RequestID == c.lastSent {
		return nil
	}

	words, err := GenerateWords()
	if err != nil {
		return err
	}
	tx, err := fulfillTx(c.account, r.RequestID, words)
	if err != nil {
		return err
	}
	if _, err := c.rpc.BroadcastTxSync(ctx, cmttypes.Tx(tx)); err != nil {
		return fmt.Errorf("broadcast fulfill: %w", err)
	}
	c.lastSent = r.RequestID
	c.log.WithFields(logrus.Fields{
		"roundId":   r.ID,
		"requestId": r.RequestID,
	}).Info("randomness fulfilled")
	return nil
}

// GenerateWords draws two fresh 32-byte random words.
func GenerateWords() ([2]common.Hash, error) {
	var words [2]common.Hash
	for i := range words {
		if _, err := rand.Read(words[i][:]); err != nil {
			return words, fmt.Errorf("random word: %w", err)
		}
	}
	return words, nil
}

func fulfillTx(caller string, requestID uint64, words [2]common.Hash) ([]byte, error) {
	value, err := json.Marshal(codec.VrfFulfillTx{
		Caller:    caller,
		RequestID: requestID,
		Words:     words,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(codec.TxEnvelope{
		Type:  "vrf/fulfill",
		Value: value,
	})
}
