package codec

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestDecodeTxEnvelope_OK(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"type":  "lotto/commit_buy",
		"value": map[string]any{"buyer": "0x1111111111111111111111111111111111111111", "quantity": 2},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	env, err := DecodeTxEnvelope(b)
	if err != nil {
		t.Fatalf("DecodeTxEnvelope: %v", err)
	}
	if env.Type != "lotto/commit_buy" {
		t.Fatalf("unexpected type: %q", env.Type)
	}

	var msg LottoCommitBuyTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if msg.Quantity != 2 {
		t.Fatalf("unexpected quantity: %d", msg.Quantity)
	}
}

func TestDecodeTxEnvelope_AuthFields(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"type":   "bank/send",
		"value":  map[string]any{"from": "alice", "to": "bob", "amount": 1},
		"nonce":  "7",
		"signer": "alice",
		"sig":    []byte{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	env, err := DecodeTxEnvelope(b)
	if err != nil {
		t.Fatalf("DecodeTxEnvelope: %v", err)
	}
	if env.Nonce != "7" || env.Signer != "alice" || len(env.Sig) != 3 {
		t.Fatalf("auth fields lost: %+v", env)
	}
}

func TestDecodeTxEnvelope_MissingType(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"value": map[string]any{"x": 1},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := DecodeTxEnvelope(b); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestDecodeTxEnvelope_InvalidJSON(t *testing.T) {
	if _, err := DecodeTxEnvelope([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestCommitHashSurvivesJSON(t *testing.T) {
	// common.Hash fields travel as 0x-hex, not base64.
	h := crypto.Keccak256Hash([]byte("commitment"))
	b, err := json.Marshal(LottoCommitBuyTx{
		Buyer:      "0x1111111111111111111111111111111111111111",
		CommitHash: h,
		Quantity:   1,
		Value:      10,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back LottoCommitBuyTx
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.CommitHash != h {
		t.Fatalf("commit hash changed: %s != %s", back.CommitHash, h)
	}
}
