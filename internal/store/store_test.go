package store

import (
	"errors"
	"testing"
	"time"

	"zuripay/internal/models"
)

func newPayment(id string, status models.PaymentStatus, createdAt time.Time) *models.Payment {
	return &models.Payment{
		ID:        id,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := NewPaymentStore()
	p := newPayment("p1", models.StatusCreated, time.Now())

	if err := s.Create(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Create(p); err == nil {
		t.Error("expected error on duplicate create")
	}

	got, err := s.Get("p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "p1" || got.Status != models.StatusCreated {
		t.Errorf("unexpected payment: %+v", got)
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewPaymentStore()
	if err := s.Create(newPayment("p1", models.StatusCreated, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := s.Get("p1")
	got.Status = models.StatusPaid

	again, _ := s.Get("p1")
	if again.Status != models.StatusCreated {
		t.Errorf("mutating a returned copy leaked into the store: %s", again.Status)
	}
}

func TestTransition(t *testing.T) {
	s := NewPaymentStore()
	if err := s.Create(newPayment("p1", models.StatusWaitingForFunding, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := s.Transition("p1", models.StatusWaitingForFunding, models.StatusFunded, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != models.StatusFunded {
		t.Errorf("expected FUNDED, got %s", p.Status)
	}

	// The compare-and-swap must reject a stale from-status.
	if _, err := s.Transition("p1", models.StatusWaitingForFunding, models.StatusFunded, nil); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestTransitionRejectsBackwards(t *testing.T) {
	s := NewPaymentStore()
	if err := s.Create(newPayment("p1", models.StatusIntentPosted, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Transition("p1", models.StatusIntentPosted, models.StatusFunded, nil); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for backwards transition, got %v", err)
	}
}

func TestTransitionRejectsOutOfTerminal(t *testing.T) {
	s := NewPaymentStore()
	if err := s.Create(newPayment("p1", models.StatusPaid, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Transition("p1", models.StatusPaid, models.StatusError, nil); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict out of terminal state, got %v", err)
	}
}

func TestTransitionToErrorFromAnyNonTerminal(t *testing.T) {
	s := NewPaymentStore()
	if err := s.Create(newPayment("p1", models.StatusFunded, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := s.Transition("p1", models.StatusFunded, models.StatusError, func(pm *models.Payment) {
		pm.Error = "boom"
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != models.StatusError || p.Error != "boom" {
		t.Errorf("unexpected payment: %+v", p)
	}
}

func TestUpdateStampsUpdatedAt(t *testing.T) {
	s := NewPaymentStore()
	created := time.Now().Add(-time.Hour)
	if err := s.Create(newPayment("p1", models.StatusCreated, created)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := s.Update("p1", func(pm *models.Payment) {
		pm.FundingTxRef = "0xabc"
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FundingTxRef != "0xabc" {
		t.Errorf("mutation not applied: %+v", p)
	}
	if !p.UpdatedAt.After(created) {
		t.Error("expected UpdatedAt to advance")
	}
}

func TestUpdateInStatus(t *testing.T) {
	s := NewPaymentStore()
	if err := s.Create(newPayment("p1", models.StatusWaitingForFunding, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := s.UpdateInStatus("p1", models.StatusWaitingForFunding, func(pm *models.Payment) {
		pm.FundingTxRef = "0xabc"
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FundingTxRef != "0xabc" || p.Status != models.StatusWaitingForFunding {
		t.Errorf("unexpected payment: %+v", p)
	}

	// Once the payment moves on, the guarded update must not apply.
	if _, err := s.Transition("p1", models.StatusWaitingForFunding, models.StatusFunded, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.UpdateInStatus("p1", models.StatusWaitingForFunding, func(pm *models.Payment) {
		pm.FundingTxRef = "0xoverwrite"
	}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	got, _ := s.Get("p1")
	if got.FundingTxRef != "0xabc" {
		t.Errorf("rejected update leaked into the store: %q", got.FundingTxRef)
	}

	if _, err := s.UpdateInStatus("missing", models.StatusCreated, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListByStatusOrdered(t *testing.T) {
	s := NewPaymentStore()
	base := time.Now()
	for _, p := range []*models.Payment{
		newPayment("b", models.StatusFunded, base.Add(2*time.Second)),
		newPayment("a", models.StatusFunded, base.Add(time.Second)),
		newPayment("c", models.StatusPaid, base),
	} {
		if err := s.Create(p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	funded := s.ListByStatus(models.StatusFunded)
	if len(funded) != 2 {
		t.Fatalf("expected 2 funded payments, got %d", len(funded))
	}
	if funded[0].ID != "a" || funded[1].ID != "b" {
		t.Errorf("expected oldest first, got %s then %s", funded[0].ID, funded[1].ID)
	}

	all := s.List()
	if len(all) != 3 {
		t.Errorf("expected 3 payments, got %d", len(all))
	}
}
