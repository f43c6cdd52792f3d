package ledger

import (
	"context"

	"go.uber.org/zap"

	"zuripay/internal/models"
)

// ResilientLedger wraps a remote ledger with a local in-memory fallback.
// When the remote is unreachable, intents are kept for the lifetime of the
// process and the degradation is logged loudly rather than failing the
// payment. Intents written locally stay local: the solver sees the union of
// both backings.
type ResilientLedger struct {
	remote Ledger
	local  *MemoryLedger
	logger *zap.Logger
}

// NewResilientLedger wraps remote with a process-local fallback.
func NewResilientLedger(remote Ledger, local *MemoryLedger, logger *zap.Logger) *ResilientLedger {
	return &ResilientLedger{
		remote: remote,
		local:  local,
		logger: logger.Named("ledger"),
	}
}

// CreateIntent tries the remote ledger first and falls back to the local one.
func (l *ResilientLedger) CreateIntent(ctx context.Context, intent models.Intent) (string, error) {
	txRef, err := l.remote.CreateIntent(ctx, intent)
	if err == nil {
		return txRef, nil
	}

	l.logger.Warn("Remote ledger unreachable, storing intent locally (degraded mode)",
		zap.String("intent_id", intent.ID),
		zap.Error(err))
	return l.local.CreateIntent(ctx, intent)
}

// ListOpenIntents merges open intents from both backings.
func (l *ResilientLedger) ListOpenIntents(ctx context.Context) ([]models.Intent, error) {
	local, err := l.local.ListOpenIntents(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := l.remote.ListOpenIntents(ctx)
	if err != nil {
		l.logger.Warn("Remote ledger list failed, serving local intents only", zap.Error(err))
		return local, nil
	}

	seen := make(map[string]bool, len(remote))
	for _, intent := range remote {
		seen[intent.ID] = true
	}
	for _, intent := range local {
		if !seen[intent.ID] {
			remote = append(remote, intent)
		}
	}
	return remote, nil
}

// MarkFulfilled marks the intent wherever it lives. Local intents are
// resolved locally; everything else goes to the remote ledger.
func (l *ResilientLedger) MarkFulfilled(ctx context.Context, id, payoutTxRef string) error {
	if _, err := l.local.GetIntent(ctx, id); err == nil {
		return l.local.MarkFulfilled(ctx, id, payoutTxRef)
	}
	return l.remote.MarkFulfilled(ctx, id, payoutTxRef)
}

// GetIntent checks the local fallback first, then the remote ledger.
func (l *ResilientLedger) GetIntent(ctx context.Context, id string) (*models.Intent, error) {
	if intent, err := l.local.GetIntent(ctx, id); err == nil {
		return intent, nil
	}
	return l.remote.GetIntent(ctx, id)
}
