package ledger

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"zuripay/internal/models"
)

func testIntent(id string) models.Intent {
	return models.Intent{
		ID:           id,
		PaymentID:    "pay-" + id,
		DestChain:    "solana-devnet",
		DestAsset:    "SOL",
		DestAddress:  "dest-addr",
		AmountAtomic: "1500000000",
		Decimals:     9,
	}
}

func TestMemoryLedgerCreateAndList(t *testing.T) {
	l := NewMemoryLedger(zap.NewNop())
	ctx := context.Background()

	ref, err := l.CreateIntent(ctx, testIntent("i1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "memory:i1" {
		t.Errorf("unexpected ledger ref: %s", ref)
	}
	if _, err := l.CreateIntent(ctx, testIntent("i1")); err == nil {
		t.Error("expected error on duplicate intent")
	}
	if _, err := l.CreateIntent(ctx, testIntent("i2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	open, err := l.ListOpenIntents(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open intents, got %d", len(open))
	}
	if open[0].ID != "i1" || open[1].ID != "i2" {
		t.Errorf("expected creation order, got %s then %s", open[0].ID, open[1].ID)
	}
}

func TestMemoryLedgerMarkFulfilled(t *testing.T) {
	l := NewMemoryLedger(zap.NewNop())
	ctx := context.Background()

	if _, err := l.CreateIntent(ctx, testIntent("i1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := l.MarkFulfilled(ctx, "i1", "payout-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Repeating the mark is a no-op that keeps the first payout reference.
	if err := l.MarkFulfilled(ctx, "i1", "payout-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intent, err := l.GetIntent(ctx, "i1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !intent.Fulfilled {
		t.Error("expected intent fulfilled")
	}
	if intent.PayoutTxRef != "payout-1" {
		t.Errorf("expected first payout reference kept, got %s", intent.PayoutTxRef)
	}

	open, _ := l.ListOpenIntents(ctx)
	if len(open) != 0 {
		t.Errorf("expected no open intents, got %d", len(open))
	}

	if err := l.MarkFulfilled(ctx, "missing", "x"); !errors.Is(err, ErrIntentNotFound) {
		t.Errorf("expected ErrIntentNotFound, got %v", err)
	}
}

func TestMemoryLedgerGetReturnsCopy(t *testing.T) {
	l := NewMemoryLedger(zap.NewNop())
	ctx := context.Background()

	if _, err := l.CreateIntent(ctx, testIntent("i1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := l.GetIntent(ctx, "i1")
	got.Fulfilled = true

	again, _ := l.GetIntent(ctx, "i1")
	if again.Fulfilled {
		t.Error("mutating a returned copy leaked into the ledger")
	}
}
