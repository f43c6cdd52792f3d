package blockchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"zuripay/internal/assets"
)

// StubVerifier confirms every deposit that carries a transaction reference.
type StubVerifier struct{}

func (StubVerifier) VerifyDeposit(_ context.Context, txRef, _, _ string, _ assets.Asset) (bool, error) {
	if txRef == "" {
		return false, fmt.Errorf("missing funding tx reference")
	}
	return true, nil
}

// StubExecutor hashes the payout parameters to deterministically emulate
// transaction references.
type StubExecutor struct {
	// Prefix distinguishes chain families in emitted references.
	Prefix string
}

func (e StubExecutor) SendPayout(_ context.Context, destAddress, amount string, asset assets.Asset) (string, error) {
	if destAddress == "" {
		return "", fmt.Errorf("missing destination address")
	}
	return e.Prefix + fakeHash("payout:"+destAddress+":"+amount+":"+asset.Symbol()), nil
}

// StubCollectors derives a distinct deterministic collector address per
// payment id.
type StubCollectors struct {
	Prefix string
}

func (c StubCollectors) NewCollectorAddress(_ context.Context, paymentID string) (string, error) {
	if paymentID == "" {
		return "", fmt.Errorf("missing payment id")
	}
	return c.Prefix + fakeHash("collector:"+paymentID)[:40], nil
}

func fakeHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
