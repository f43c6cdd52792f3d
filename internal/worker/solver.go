package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"zuripay/internal/assets"
	"zuripay/internal/blockchain"
	"zuripay/internal/config"
	"zuripay/internal/ledger"
	"zuripay/internal/metrics"
	"zuripay/internal/models"
	"zuripay/internal/store"
)

// Solver fulfills open ledger intents: it sends the payout of the intent's
// asset on the destination chain, marks the intent fulfilled, and moves the
// payment to PAID. A payout already sent is never re-sent; the settled map
// records the payout reference before the ledger is told, so a failed
// MarkFulfilled is retried without a second transfer.
type Solver struct {
	store    *store.PaymentStore
	chains   *blockchain.Registry
	ledger   ledger.Ledger
	metrics  *metrics.Metrics
	logger   *zap.Logger
	interval time.Duration

	// settled maps intent id to payout reference for intents this process
	// has paid, whether or not the ledger knows yet.
	settled map[string]string
}

// NewSolver creates the payout loop.
func NewSolver(st *store.PaymentStore, chains *blockchain.Registry, ldg ledger.Ledger, m *metrics.Metrics, cfg *config.Config, logger *zap.Logger) *Solver {
	return &Solver{
		store:    st,
		chains:   chains,
		ledger:   ldg,
		metrics:  m,
		logger:   logger.Named("solver"),
		interval: time.Duration(cfg.Worker.SolverIntervalSeconds) * time.Second,
		settled:  make(map[string]string),
	}
}

// Run starts the solver loop. The first tick fires immediately.
func (s *Solver) Run(ctx context.Context) {
	s.logger.Info("Solver started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Solver stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick lists open intents and tries to fulfill each one. A failure on one
// intent never blocks the others.
func (s *Solver) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	intents, err := s.ledger.ListOpenIntents(tickCtx)
	if err != nil {
		s.metrics.IncStepError("solver_list", "transient")
		s.logger.Warn("Failed to list open intents", zap.Error(err))
		return
	}

	for _, intent := range intents {
		select {
		case <-tickCtx.Done():
			return
		default:
		}

		s.fulfill(tickCtx, intent)
	}
}

// fulfill pays out a single intent and records the result.
func (s *Solver) fulfill(ctx context.Context, intent models.Intent) {
	if ref, done := s.settled[intent.ID]; done {
		// Paid already; the ledger just has not heard. Retry the mark only.
		s.settle(ctx, intent, ref)
		return
	}

	family, err := assets.FamilyForChain(intent.DestChain)
	if err != nil {
		s.metrics.IncPayout(intent.DestChain, "unsupported")
		s.logger.Error("Intent targets unsupported chain",
			zap.String("intent_id", intent.ID),
			zap.String("dest_chain", intent.DestChain))
		s.failPayment(intent, err)
		return
	}
	destAsset, err := assets.Parse(intent.DestAsset)
	if err != nil {
		s.metrics.IncPayout(intent.DestChain, "unsupported")
		s.logger.Error("Intent carries unsupported asset",
			zap.String("intent_id", intent.ID),
			zap.String("dest_asset", intent.DestAsset))
		s.failPayment(intent, err)
		return
	}
	executor, err := s.chains.Executor(family)
	if err != nil {
		s.metrics.IncPayout(intent.DestChain, "unsupported")
		s.logger.Error("No executor for chain family",
			zap.String("intent_id", intent.ID),
			zap.String("dest_chain", intent.DestChain))
		return
	}

	atomic, err := assets.ParseAtomic(intent.AmountAtomic)
	if err != nil {
		s.metrics.IncPayout(intent.DestChain, "invalid")
		s.logger.Error("Intent carries invalid amount",
			zap.String("intent_id", intent.ID),
			zap.String("amount_atomic", intent.AmountAtomic),
			zap.Error(err))
		return
	}
	amount := assets.FromAtomic(atomic, intent.Decimals)

	payoutRef, err := executor.SendPayout(ctx, intent.DestAddress, amount, destAsset)
	if err != nil {
		if errors.Is(err, blockchain.ErrUnsupportedAsset) {
			s.metrics.IncPayout(intent.DestChain, "unsupported")
			s.logger.Error("Executor cannot pay out asset",
				zap.String("intent_id", intent.ID),
				zap.String("dest_asset", intent.DestAsset),
				zap.Error(err))
			s.failPayment(intent, err)
			return
		}
		s.metrics.IncPayout(intent.DestChain, "failed")
		s.logger.Warn("Payout failed, will retry next tick",
			zap.String("intent_id", intent.ID),
			zap.String("dest_address", intent.DestAddress),
			zap.Error(err))
		return
	}

	s.settled[intent.ID] = payoutRef
	s.metrics.IncPayout(intent.DestChain, "sent")
	s.logger.Info("Payout sent",
		zap.String("intent_id", intent.ID),
		zap.String("payment_id", intent.PaymentID),
		zap.String("payout_tx", payoutRef),
		zap.String("amount", amount))

	s.settle(ctx, intent, payoutRef)
}

// failPayment moves the intent's payment to ERROR for payouts that can never
// succeed. The intent itself stays open on the ledger for the operator.
func (s *Solver) failPayment(intent models.Intent, cause error) {
	if intent.PaymentID == "" {
		return
	}
	_, err := s.store.Transition(intent.PaymentID, models.StatusIntentPosted, models.StatusError, func(pm *models.Payment) {
		pm.Error = cause.Error()
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrConflict) {
		s.logger.Error("Failed to record payment error", zap.String("payment_id", intent.PaymentID), zap.Error(err))
	}
}

// settle marks the intent fulfilled on the ledger and advances the payment.
func (s *Solver) settle(ctx context.Context, intent models.Intent, payoutRef string) {
	if err := s.ledger.MarkFulfilled(ctx, intent.ID, payoutRef); err != nil {
		s.logger.Warn("Failed to mark intent fulfilled, will retry",
			zap.String("intent_id", intent.ID),
			zap.Error(err))
		return
	}

	if intent.PaymentID == "" {
		return
	}
	_, err := s.store.Transition(intent.PaymentID, models.StatusIntentPosted, models.StatusPaid, func(pm *models.Payment) {
		pm.PayoutTxRef = payoutRef
	})
	switch {
	case err == nil:
		s.metrics.IncTransition(string(models.StatusIntentPosted), string(models.StatusPaid))
		s.logger.Info("Payment paid",
			zap.String("payment_id", intent.PaymentID),
			zap.String("payout_tx", payoutRef))
	case errors.Is(err, store.ErrNotFound):
		// Intent posted by another coordinator instance; nothing local to advance.
	case errors.Is(err, store.ErrConflict):
		s.logger.Debug("Payment already past INTENT_POSTED", zap.String("payment_id", intent.PaymentID))
	default:
		s.logger.Error("Failed to advance payment", zap.String("payment_id", intent.PaymentID), zap.Error(err))
	}
}
