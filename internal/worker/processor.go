// Package worker hosts the two background loops that drive payments to
// completion: the Processor advances each payment one lifecycle step per
// tick, and the Solver fulfills open ledger intents with payouts. Both run
// under the Manager's lifecycle.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zuripay/internal/assets"
	"zuripay/internal/blockchain"
	"zuripay/internal/config"
	"zuripay/internal/ledger"
	"zuripay/internal/metrics"
	"zuripay/internal/models"
	"zuripay/internal/store"
	"zuripay/internal/zcash"
)

const tickTimeout = 60 * time.Second

// Processor advances every non-terminal payment at most one lifecycle step
// per tick. Unconfirmed deposits and failed external calls leave the payment
// where it is for the next tick; only unrepresentable data moves it to ERROR.
type Processor struct {
	store      *store.PaymentStore
	chains     *blockchain.Registry
	burner     zcash.Burner
	ledger     ledger.Ledger
	metrics    *metrics.Metrics
	logger     *zap.Logger
	interval   time.Duration
	burnPolicy string
}

// NewProcessor creates the payment processor loop.
func NewProcessor(st *store.PaymentStore, chains *blockchain.Registry, burner zcash.Burner, ldg ledger.Ledger, m *metrics.Metrics, cfg *config.Config, logger *zap.Logger) *Processor {
	return &Processor{
		store:      st,
		chains:     chains,
		burner:     burner,
		ledger:     ldg,
		metrics:    m,
		logger:     logger.Named("processor"),
		interval:   time.Duration(cfg.Worker.ProcessorIntervalSeconds) * time.Second,
		burnPolicy: cfg.BurnPolicy,
	}
}

// Run starts the processing loop. The first tick fires immediately.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("Processor started",
		zap.Duration("interval", p.interval),
		zap.String("burn_policy", p.burnPolicy))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Processor stopping")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick advances each payment by at most one step. A payment that becomes
// FUNDED this tick is not pushed further until the next one.
func (p *Processor) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	open := 0
	for _, payment := range p.store.List() {
		if payment.Status.Terminal() {
			continue
		}
		open++

		select {
		case <-tickCtx.Done():
			p.metrics.SetOpenPayments(open)
			return
		default:
		}

		p.advance(tickCtx, payment)
	}
	p.metrics.SetOpenPayments(open)
}

// advance performs the single step appropriate for the payment's status.
func (p *Processor) advance(ctx context.Context, payment models.Payment) {
	switch payment.Status {
	case models.StatusCreated:
		// Waiting for the user to attach a funding tx. Nothing to do.
	case models.StatusWaitingForFunding:
		p.checkFunding(ctx, payment)
	case models.StatusFunded:
		if p.burnPolicy == config.BurnThenIntent {
			p.burn(ctx, payment)
		} else {
			p.postIntent(ctx, payment)
		}
	case models.StatusZecBurned:
		p.postIntent(ctx, payment)
	case models.StatusIntentPosted:
		// The solver owns the payment from here.
	}
}

// checkFunding asks the source-chain verifier whether the attached funding tx
// paid the fee-inclusive amount to the collector. "Not yet" is a no-op.
func (p *Processor) checkFunding(ctx context.Context, payment models.Payment) {
	if payment.FundingTxRef == "" {
		return
	}

	verifier, err := p.chains.Verifier(payment.PayAsset.Info().Family)
	if err != nil {
		p.fail(payment, "funding", err)
		return
	}

	confirmed, err := verifier.VerifyDeposit(ctx, payment.FundingTxRef, payment.CollectorAddress, payment.FundingAmountWithFee, payment.PayAsset)
	if err != nil {
		// A reference that cannot even be parsed will never confirm.
		if errors.Is(err, blockchain.ErrInvalidTxRef) {
			p.fail(payment, "funding", err)
			return
		}
		p.transient(payment, "funding", err)
		return
	}
	if !confirmed {
		p.logger.Debug("Deposit not confirmed yet",
			zap.String("payment_id", payment.ID),
			zap.String("funding_tx", payment.FundingTxRef))
		return
	}

	p.transition(payment.ID, models.StatusWaitingForFunding, models.StatusFunded, nil)
}

// burn records the shielded hop and stores the resulting txid.
func (p *Processor) burn(ctx context.Context, payment models.Payment) {
	txid, err := p.burner.Burn(ctx, payment.ID, payment.FundingAmount)
	if err != nil {
		p.transient(payment, "burn", err)
		return
	}

	p.transition(payment.ID, models.StatusFunded, models.StatusZecBurned, func(pm *models.Payment) {
		pm.BurnTxRef = txid
	})
}

// postIntent converts the destination amount to atomic units and publishes
// the fulfillment intent on the ledger. Inexact conversion is fatal; a ledger
// failure is retried next tick.
func (p *Processor) postIntent(ctx context.Context, payment models.Payment) {
	atomic, err := assets.ToAtomic(payment.DestAmount, payment.DestDecimals)
	if err != nil {
		p.fail(payment, "intent", err)
		return
	}

	destChain := payment.DestChain
	if destChain == "" {
		destChain = payment.DestAsset.Info().DefaultChain
	}
	if _, err := assets.FamilyForChain(destChain); err != nil {
		p.fail(payment, "intent", err)
		return
	}

	intent := models.Intent{
		ID:           uuid.NewString(),
		PaymentID:    payment.ID,
		DestChain:    destChain,
		DestAsset:    payment.DestAssetSymbol,
		DestAddress:  payment.Recipient,
		AmountAtomic: atomic.String(),
		Decimals:     payment.DestDecimals,
		BurnTxRef:    payment.BurnTxRef,
		CreatedAt:    time.Now().UTC().Unix(),
	}

	txRef, err := p.ledger.CreateIntent(ctx, intent)
	if err != nil {
		p.transient(payment, "intent", err)
		return
	}

	p.transition(payment.ID, payment.Status, models.StatusIntentPosted, func(pm *models.Payment) {
		pm.IntentID = intent.ID
		pm.IntentLedgerTxRef = txRef
		pm.DestChain = destChain
	})
}

// transition applies a guarded status change and records the metric. Losing
// the compare-and-swap race to another loop is not an error.
func (p *Processor) transition(id string, from, to models.PaymentStatus, mutate func(*models.Payment)) {
	if _, err := p.store.Transition(id, from, to, mutate); err != nil {
		if errors.Is(err, store.ErrConflict) {
			p.logger.Debug("Transition lost race",
				zap.String("payment_id", id),
				zap.String("from", string(from)),
				zap.String("to", string(to)))
			return
		}
		p.logger.Error("Transition failed", zap.String("payment_id", id), zap.Error(err))
		return
	}

	p.metrics.IncTransition(string(from), string(to))
	p.logger.Info("Payment advanced",
		zap.String("payment_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
}

// transient logs a retryable step failure. The payment stays in place.
func (p *Processor) transient(payment models.Payment, step string, err error) {
	p.metrics.IncStepError(step, "transient")
	p.logger.Warn("Step failed, will retry next tick",
		zap.String("payment_id", payment.ID),
		zap.String("step", step),
		zap.Error(err))
}

// fail moves the payment to ERROR with a diagnostic message.
func (p *Processor) fail(payment models.Payment, step string, err error) {
	p.metrics.IncStepError(step, "fatal")
	p.logger.Error("Step failed fatally",
		zap.String("payment_id", payment.ID),
		zap.String("step", step),
		zap.Error(err))

	if _, terr := p.store.Transition(payment.ID, payment.Status, models.StatusError, func(pm *models.Payment) {
		pm.Error = err.Error()
	}); terr != nil {
		p.logger.Error("Failed to record payment error", zap.String("payment_id", payment.ID), zap.Error(terr))
		return
	}
	p.metrics.IncTransition(string(payment.Status), string(models.StatusError))
}
