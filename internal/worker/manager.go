package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"zuripay/internal/blockchain"
	"zuripay/internal/config"
	"zuripay/internal/ledger"
	"zuripay/internal/metrics"
	"zuripay/internal/store"
	"zuripay/internal/zcash"
)

// Manager owns the lifecycle of the background loops.
type Manager struct {
	processor *Processor
	solver    *Solver
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wires the processor and solver against the shared store,
// chain registry and ledger.
func NewManager(st *store.PaymentStore, chains *blockchain.Registry, burner zcash.Burner, ldg ledger.Ledger, m *metrics.Metrics, cfg *config.Config, logger *zap.Logger) *Manager {
	logger = logger.Named("worker")
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		processor: NewProcessor(st, chains, burner, ldg, m, cfg, logger),
		solver:    NewSolver(st, chains, ldg, m, cfg, logger),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the processor and solver goroutines.
func (m *Manager) Start() {
	m.logger.Info("Starting worker manager")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.processor.Run(m.ctx)
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.solver.Run(m.ctx)
	}()

	m.logger.Info("Worker manager started")
}

// Shutdown signals both loops to stop and waits up to timeout.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.logger.Info("Shutting down worker manager")
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Workers stopped gracefully")
	case <-time.After(timeout):
		m.logger.Warn("Worker shutdown timed out")
	}
	return nil
}
