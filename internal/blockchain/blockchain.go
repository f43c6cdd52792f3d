// Package blockchain defines the narrow contracts the payment lifecycle needs
// from each chain: a confirmed/unconfirmed verdict for deposits, a transaction
// reference for payouts, and a fresh collector address per payment. Concrete
// clients live in the evm and solana subpackages; deterministic stubs cover
// tests and offline deployments.
package blockchain

import (
	"context"
	"fmt"

	"zuripay/internal/assets"
)

// ErrUnsupportedAsset is returned when an executor cannot pay out the
// requested asset. Retrying cannot help; callers should fail the payment.
var ErrUnsupportedAsset = fmt.Errorf("unsupported payout asset")

// ErrInvalidTxRef is returned when a transaction reference cannot be parsed
// for the chain at all. Unlike an unconfirmed transaction, it will never
// verify; callers should fail the payment.
var ErrInvalidTxRef = fmt.Errorf("malformed transaction reference")

// DepositVerifier checks that a funding transaction paid the expected amount
// of the given asset to the payment's collector address.
type DepositVerifier interface {
	VerifyDeposit(ctx context.Context, txRef, collector, expectedAmount string, asset assets.Asset) (bool, error)
}

// PayoutExecutor submits a payout of the given asset on the destination chain
// and returns its transaction reference.
type PayoutExecutor interface {
	SendPayout(ctx context.Context, destAddress, amount string, asset assets.Asset) (string, error)
}

// CollectorSource allocates a single-use deposit address for a new payment.
type CollectorSource interface {
	NewCollectorAddress(ctx context.Context, paymentID string) (string, error)
}

// Registry holds the per-chain-family capabilities, selected once at startup.
type Registry struct {
	verifiers  map[assets.ChainFamily]DepositVerifier
	executors  map[assets.ChainFamily]PayoutExecutor
	collectors map[assets.ChainFamily]CollectorSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		verifiers:  make(map[assets.ChainFamily]DepositVerifier),
		executors:  make(map[assets.ChainFamily]PayoutExecutor),
		collectors: make(map[assets.ChainFamily]CollectorSource),
	}
}

// Register wires the capabilities for a chain family.
func (r *Registry) Register(family assets.ChainFamily, v DepositVerifier, e PayoutExecutor, c CollectorSource) {
	r.verifiers[family] = v
	r.executors[family] = e
	r.collectors[family] = c
}

// Verifier returns the deposit verifier for a chain family.
func (r *Registry) Verifier(family assets.ChainFamily) (DepositVerifier, error) {
	v, ok := r.verifiers[family]
	if !ok {
		return nil, fmt.Errorf("no deposit verifier for chain family %s", family)
	}
	return v, nil
}

// Executor returns the payout executor for a chain family.
func (r *Registry) Executor(family assets.ChainFamily) (PayoutExecutor, error) {
	e, ok := r.executors[family]
	if !ok {
		return nil, fmt.Errorf("no payout executor for chain family %s", family)
	}
	return e, nil
}

// Collector returns the collector-address source for a chain family.
func (r *Registry) Collector(family assets.ChainFamily) (CollectorSource, error) {
	c, ok := r.collectors[family]
	if !ok {
		return nil, fmt.Errorf("no collector source for chain family %s", family)
	}
	return c, nil
}
