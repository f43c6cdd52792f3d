package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"zuripay/internal/models"
)

// viewResult encodes a view call return value the way the NEAR node does:
// as an array of byte values.
func viewResult(t *testing.T, v interface{}) []int {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal view result: %v", err)
	}
	out := make([]int, len(raw))
	for i, b := range raw {
		out[i] = int(b)
	}
	return out
}

func TestNearLedgerListOpenIntents(t *testing.T) {
	var gotMethod string
	var gotArgs []byte

	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode rpc request: %v", err)
		}
		params, _ := json.Marshal(req.Params)
		var callParams callFunctionParams
		if err := json.Unmarshal(params, &callParams); err != nil {
			t.Fatalf("failed to decode params: %v", err)
		}
		gotMethod = callParams.MethodName
		gotArgs, _ = base64.StdEncoding.DecodeString(callParams.ArgsBase64)

		intents := []map[string]interface{}{
			{
				"id":              "i1",
				"payment_id":      "p1",
				"dest_chain":      "solana-devnet",
				"dest_asset":      "SOL",
				"dest_address":    "dest-addr",
				"amount_atomic":   "1500000000",
				"decimals":        9,
				"zcash_burn_txid": "burn-1",
				"created_at":      "1756600000",
				"fulfilled":       false,
				"payout_tx_hash":  nil,
			},
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"result": viewResult(t, intents),
				"logs":   []string{},
			},
		})
	}))
	defer node.Close()

	l := NewNearLedger(node.URL, "zuripay.testnet", "", zap.NewNop())

	intents, err := l.ListOpenIntents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != "list_open_intents" {
		t.Errorf("expected list_open_intents view, got %s", gotMethod)
	}
	if string(gotArgs) != "{}" {
		t.Errorf("expected empty args, got %s", gotArgs)
	}
	if len(intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(intents))
	}

	intent := intents[0]
	if intent.ID != "i1" || intent.AmountAtomic != "1500000000" || intent.Decimals != 9 {
		t.Errorf("unexpected intent: %+v", intent)
	}
	if intent.CreatedAt != 1756600000 {
		t.Errorf("expected created_at parsed from string, got %d", intent.CreatedAt)
	}
}

func TestNearLedgerCreateIntentViaSigner(t *testing.T) {
	var gotCall changeCallRequest

	signer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotCall); err != nil {
			t.Fatalf("failed to decode signer request: %v", err)
		}
		json.NewEncoder(w).Encode(changeCallResponse{TxHash: "near-tx-1"})
	}))
	defer signer.Close()

	l := NewNearLedger("http://unused.invalid", "zuripay.testnet", signer.URL, zap.NewNop())

	txRef, err := l.CreateIntent(context.Background(), models.Intent{
		ID:           "i1",
		PaymentID:    "p1",
		DestChain:    "solana-devnet",
		DestAsset:    "SOL",
		DestAddress:  "dest-addr",
		AmountAtomic: "1500000000",
		Decimals:     9,
		CreatedAt:    1756600000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txRef != "near-tx-1" {
		t.Errorf("expected near-tx-1, got %s", txRef)
	}
	if gotCall.ContractID != "zuripay.testnet" || gotCall.Method != "create_intent" {
		t.Errorf("unexpected signer call: %+v", gotCall)
	}

	var args intentInput
	if err := json.Unmarshal(gotCall.Args, &args); err != nil {
		t.Fatalf("failed to decode intent args: %v", err)
	}
	if args.Intent.ID != "i1" || args.Intent.AmountAtomic != "1500000000" {
		t.Errorf("unexpected intent payload: %+v", args.Intent)
	}
	if args.Intent.CreatedAt != "1756600000" {
		t.Errorf("expected created_at serialized as string, got %q", args.Intent.CreatedAt)
	}
}

func TestNearLedgerCreateIntentWithoutSigner(t *testing.T) {
	l := NewNearLedger("http://unused.invalid", "zuripay.testnet", "", zap.NewNop())

	if _, err := l.CreateIntent(context.Background(), testIntent("i1")); err == nil {
		t.Error("expected error without a signer sidecar")
	}
}

func TestNearLedgerMarkFulfilled(t *testing.T) {
	var gotCall changeCallRequest

	signer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotCall); err != nil {
			t.Fatalf("failed to decode signer request: %v", err)
		}
		json.NewEncoder(w).Encode(changeCallResponse{TxHash: "near-tx-2"})
	}))
	defer signer.Close()

	l := NewNearLedger("http://unused.invalid", "zuripay.testnet", signer.URL, zap.NewNop())

	if err := l.MarkFulfilled(context.Background(), "i1", "payout-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCall.Method != "mark_fulfilled" {
		t.Errorf("expected mark_fulfilled call, got %s", gotCall.Method)
	}

	var args map[string]string
	if err := json.Unmarshal(gotCall.Args, &args); err != nil {
		t.Fatalf("failed to decode args: %v", err)
	}
	if args["id"] != "i1" || args["payout_tx_hash"] != "payout-1" {
		t.Errorf("unexpected args: %v", args)
	}
}
