// Package zcash records the shielded burn that backs each fulfillment
// intent. The live implementation delegates transaction building to a
// lightwalletd sidecar; the stub emits deterministic testnet references.
package zcash

import (
	"context"
	"fmt"
	"time"
)

// Burner sends the payment's privacy hop: a shielded transaction to the
// burn address, returning the resulting txid.
type Burner interface {
	Burn(ctx context.Context, paymentID, amount string) (string, error)
}

// StubBurner emulates shielded burns without touching a Zcash node.
type StubBurner struct{}

func (StubBurner) Burn(_ context.Context, paymentID, _ string) (string, error) {
	if paymentID == "" {
		return "", fmt.Errorf("missing payment id")
	}
	return fmt.Sprintf("zcash-testnet-burn-%s-%d", paymentID, time.Now().UnixNano()), nil
}
