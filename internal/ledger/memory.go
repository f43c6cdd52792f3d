package ledger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"zuripay/internal/models"
)

// MemoryLedger keeps intents for the lifetime of the process. It backs the
// degraded mode of the NEAR client and the stub deployment profile. All
// operations are atomic under a single mutex, mirroring the consistency a
// real ledger provides.
type MemoryLedger struct {
	mu      sync.Mutex
	intents map[string]*models.Intent
	order   []string
	logger  *zap.Logger
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger(logger *zap.Logger) *MemoryLedger {
	return &MemoryLedger{
		intents: make(map[string]*models.Intent),
		logger:  logger.Named("ledger"),
	}
}

// CreateIntent stores the intent. The returned reference identifies the local
// write so callers can tell a degraded-mode intent from an on-chain one.
func (l *MemoryLedger) CreateIntent(_ context.Context, intent models.Intent) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.intents[intent.ID]; exists {
		return "", fmt.Errorf("intent %s already exists", intent.ID)
	}
	cp := intent
	l.intents[intent.ID] = &cp
	l.order = append(l.order, intent.ID)

	l.logger.Info("Intent recorded",
		zap.String("intent_id", intent.ID),
		zap.String("payment_id", intent.PaymentID),
		zap.String("dest_chain", intent.DestChain),
		zap.String("amount_atomic", intent.AmountAtomic))

	return "memory:" + intent.ID, nil
}

// ListOpenIntents returns copies of all unfulfilled intents in creation order.
func (l *MemoryLedger) ListOpenIntents(_ context.Context) ([]models.Intent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var open []models.Intent
	for _, id := range l.order {
		if intent := l.intents[id]; !intent.Fulfilled {
			open = append(open, *intent)
		}
	}
	return open, nil
}

// MarkFulfilled flags the intent and records the payout reference. Repeated
// calls for the same intent leave the first payout reference in place.
func (l *MemoryLedger) MarkFulfilled(_ context.Context, id, payoutTxRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	intent, ok := l.intents[id]
	if !ok {
		return fmt.Errorf("mark fulfilled: %w: %s", ErrIntentNotFound, id)
	}
	if intent.Fulfilled {
		l.logger.Debug("Intent already fulfilled", zap.String("intent_id", id))
		return nil
	}
	intent.Fulfilled = true
	intent.PayoutTxRef = payoutTxRef
	return nil
}

// GetIntent returns a copy of the intent with the given id.
func (l *MemoryLedger) GetIntent(_ context.Context, id string) (*models.Intent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	intent, ok := l.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *intent
	return &cp, nil
}
