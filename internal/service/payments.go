// Package service implements the synchronous payment operations behind the
// HTTP API: creating a payment with its fee quote and collector address,
// attaching the funding transaction, and read-only projections. Asynchronous
// advancement lives in the worker package.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zuripay/internal/assets"
	"zuripay/internal/blockchain"
	"zuripay/internal/metrics"
	"zuripay/internal/models"
	"zuripay/internal/store"
)

// ErrAlreadyFunded is returned when a funding tx is re-attached after the
// payment has progressed past funding detection.
var ErrAlreadyFunded = fmt.Errorf("funding tx already attached and payment in progress")

// PaymentService owns payment creation and the attach/read operations.
type PaymentService struct {
	store      *store.PaymentStore
	collectors *blockchain.Registry
	fees       *FeeService
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewPaymentService wires the payment operations together.
func NewPaymentService(st *store.PaymentStore, reg *blockchain.Registry, fees *FeeService, m *metrics.Metrics, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:      st,
		collectors: reg,
		fees:       fees,
		metrics:    m,
		logger:     logger.Named("payments"),
	}
}

// CreatePayment allocates a payment id and a single-use collector address,
// quotes the fee-inclusive funding amount and persists the CREATED record.
// The funding amount mirrors the destination amount; pricing between assets
// is out of scope for this service.
func (s *PaymentService) CreatePayment(ctx context.Context, recipient, destAssetSymbol, destAmount, payAssetSymbol string) (*models.Payment, error) {
	payAsset, err := assets.Parse(payAssetSymbol)
	if err != nil {
		return nil, err
	}
	destAsset, err := assets.Parse(destAssetSymbol)
	if err != nil {
		return nil, err
	}

	fee, total, err := s.fees.Quote(destAmount)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()

	collectorSource, err := s.collectors.Collector(payAsset.Info().Family)
	if err != nil {
		return nil, err
	}
	collector, err := collectorSource.NewCollectorAddress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate collector address: %w", err)
	}

	destInfo := destAsset.Info()
	p := &models.Payment{
		ID:                   id,
		Recipient:            recipient,
		PayAsset:             payAsset,
		PayAssetSymbol:       payAsset.Symbol(),
		FundingAmount:        destAmount,
		FundingAmountWithFee: total,
		Fee:                  fee,
		CollectorAddress:     collector,
		DestAsset:            destAsset,
		DestAssetSymbol:      destAsset.Symbol(),
		DestAmount:           destAmount,
		DestDecimals:         destInfo.Decimals,
		DestChain:            destInfo.DefaultChain,
		Status:               models.StatusCreated,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}
	if err := s.store.Create(p); err != nil {
		return nil, err
	}

	s.metrics.IncPaymentCreated(p.PayAssetSymbol, p.DestAssetSymbol)
	s.logger.Info("Payment created",
		zap.String("payment_id", p.ID),
		zap.String("pay_asset", p.PayAssetSymbol),
		zap.String("dest_asset", p.DestAssetSymbol),
		zap.String("dest_amount", p.DestAmount),
		zap.String("collector", p.CollectorAddress))

	return p, nil
}

// AttachFundingTx records the user's funding transaction and moves the
// payment to WAITING_FOR_FUNDING. Re-attaching overwrites the reference while
// the payment is still waiting; once funding has been detected the attach is
// rejected with ErrAlreadyFunded. Both paths are status-guarded inside the
// store lock, so a processor tick confirming the deposit concurrently cannot
// let an overwrite land on a FUNDED payment.
func (s *PaymentService) AttachFundingTx(_ context.Context, paymentID, fundingTxRef string) error {
	set := func(p *models.Payment) {
		p.FundingTxRef = fundingTxRef
	}

	_, err := s.store.Transition(paymentID, models.StatusCreated, models.StatusWaitingForFunding, set)
	switch {
	case err == nil:
		s.metrics.IncTransition(string(models.StatusCreated), string(models.StatusWaitingForFunding))
	case errors.Is(err, store.ErrConflict):
		if _, uerr := s.store.UpdateInStatus(paymentID, models.StatusWaitingForFunding, set); uerr != nil {
			if errors.Is(uerr, store.ErrConflict) {
				return ErrAlreadyFunded
			}
			return uerr
		}
	default:
		return err
	}

	s.logger.Info("Funding tx attached",
		zap.String("payment_id", paymentID),
		zap.String("funding_tx", fundingTxRef))
	return nil
}

// GetPayment returns a copy of the payment record.
func (s *PaymentService) GetPayment(_ context.Context, paymentID string) (*models.Payment, error) {
	return s.store.Get(paymentID)
}

// ListPayments returns copies of every payment, oldest first.
func (s *PaymentService) ListPayments(_ context.Context) []models.Payment {
	return s.store.List()
}
