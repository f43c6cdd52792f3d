package zcash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestLightClientBurn(t *testing.T) {
	var gotReq sendShieldedRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send-shielded-tx" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(sendShieldedResponse{TxID: "zc-txid-1"})
	}))
	defer server.Close()

	c := NewLightClient(server.URL, "secret", "zs1burnaddr", zap.NewNop())

	txid, err := c.Burn(context.Background(), "p1", "1.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txid != "zc-txid-1" {
		t.Errorf("expected zc-txid-1, got %s", txid)
	}
	if gotReq.To != "zs1burnaddr" || gotReq.Amount != "1.5" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if gotReq.Memo != "zuripay:p1" {
		t.Errorf("expected memo to carry the payment id, got %q", gotReq.Memo)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestLightClientBurnErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "sidecar error field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(sendShieldedResponse{Error: "insufficient shielded balance"})
			},
		},
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "missing txid",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(sendShieldedResponse{})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewLightClient(server.URL, "", "zs1burnaddr", zap.NewNop())
			if _, err := c.Burn(context.Background(), "p1", "1"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStubBurner(t *testing.T) {
	txid, err := StubBurner{}.Burn(context.Background(), "p1", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txid == "" {
		t.Error("expected a txid")
	}

	if _, err := (StubBurner{}).Burn(context.Background(), "", "1"); err == nil {
		t.Error("expected error for missing payment id")
	}
}
