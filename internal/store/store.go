package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"zuripay/internal/models"
)

// ErrNotFound is returned for lookups of unknown payment ids.
var ErrNotFound = fmt.Errorf("payment not found")

// ErrConflict is returned when a guarded transition does not match the
// payment's current status.
var ErrConflict = fmt.Errorf("payment status conflict")

// PaymentStore is an in-memory keyed table of payment records. All mutations
// go through Update/Transition under a single mutex so that the API layer,
// the processor loop and the solver loop never observe a partially applied
// transition. Callers always receive copies.
type PaymentStore struct {
	mu       sync.RWMutex
	payments map[string]*models.Payment
}

// NewPaymentStore creates an empty store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{
		payments: make(map[string]*models.Payment),
	}
}

// Create inserts a new payment record. The id must be unique.
func (s *PaymentStore) Create(p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already exists", p.ID)
	}
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

// Get returns a copy of the payment with the given id.
func (s *PaymentStore) Get(id string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Update applies mutate to the payment under the store lock and stamps
// UpdatedAt. The whole set of field changes becomes visible atomically.
func (s *PaymentStore) Update(id string, mutate func(*models.Payment)) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	mutate(p)
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

// UpdateInStatus applies mutate only while the payment is still in the given
// status; the status itself does not change. Like Transition, the check and
// the mutation happen under one lock so concurrent loops cannot slip a
// transition in between.
func (s *PaymentStore) UpdateInStatus(id string, status models.PaymentStatus, mutate func(*models.Payment)) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != status {
		return nil, fmt.Errorf("%w: payment %s is %s, expected %s", ErrConflict, id, p.Status, status)
	}
	if mutate != nil {
		mutate(p)
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

// Transition applies mutate only if the payment is currently in from and the
// resulting status respects the lifecycle order. This is the compare-and-swap
// discipline that keeps the processor and solver from clobbering each other.
func (s *PaymentStore) Transition(id string, from, to models.PaymentStatus, mutate func(*models.Payment)) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != from {
		return nil, fmt.Errorf("%w: payment %s is %s, expected %s", ErrConflict, id, p.Status, from)
	}
	if !models.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s not allowed", ErrConflict, from, to)
	}
	if mutate != nil {
		mutate(p)
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

// ListByStatus returns copies of all payments in the given status, oldest first.
func (s *PaymentStore) ListByStatus(status models.PaymentStatus) []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Payment
	for _, p := range s.payments {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	sortByCreation(out)
	return out
}

// List returns copies of every payment, oldest first.
func (s *PaymentStore) List() []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, *p)
	}
	sortByCreation(out)
	return out
}

func sortByCreation(payments []models.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].ID < payments[j].ID
		}
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})
}
