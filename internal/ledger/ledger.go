// Package ledger defines the fulfillment-intent ledger contract shared by the
// payment processor (create) and the solver (list/mark). The canonical backing
// is a NEAR contract; an in-memory ledger provides the degraded mode required
// when the remote ledger is unreachable.
package ledger

import (
	"context"
	"fmt"

	"zuripay/internal/models"
)

// ErrIntentNotFound is returned for lookups of unknown intent ids.
var ErrIntentNotFound = fmt.Errorf("intent not found")

// Ledger is the narrow contract the core requires from any backing store.
type Ledger interface {
	// CreateIntent publishes a new fulfillment intent and returns a ledger
	// transaction reference.
	CreateIntent(ctx context.Context, intent models.Intent) (string, error)

	// ListOpenIntents returns all intents with fulfilled = false.
	ListOpenIntents(ctx context.Context) ([]models.Intent, error)

	// MarkFulfilled records the payout transaction reference for an intent.
	// Marking an already-fulfilled intent is a safe no-op.
	MarkFulfilled(ctx context.Context, id, payoutTxRef string) error

	// GetIntent fetches a single intent by id.
	GetIntent(ctx context.Context, id string) (*models.Intent, error)
}
