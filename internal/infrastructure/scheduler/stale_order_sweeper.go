// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StaleOrderCanceller cancels pending orders created before cutoff and
// returns how many were cancelled.
type StaleOrderCanceller interface {
	CancelStaleOrders(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// SweeperConfig holds configuration for the stale order sweeper
type SweeperConfig struct {
	// Enabled determines if the sweeper is active
	Enabled bool

	// StaleOrderTTL is how long an order may stay pending
	StaleOrderTTL time.Duration

	// CheckInterval is the time between sweeps
	CheckInterval time.Duration

	// BatchSize caps the orders cancelled per sweep
	BatchSize int

	// RunTimeout is the maximum time for one sweep
	RunTimeout time.Duration
}

// DefaultSweeperConfig returns default configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Enabled:       false,
		StaleOrderTTL: 48 * time.Hour,
		CheckInterval: 15 * time.Minute,
		BatchSize:     100,
		RunTimeout:    2 * time.Minute,
	}
}

// Validate checks the configuration
func (c SweeperConfig) Validate() error {
	if c.StaleOrderTTL <= 0 {
		return fmt.Errorf("%w: stale order TTL must be positive", ErrInvalidConfig)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	return nil
}

// StaleOrderSweeper periodically cancels orders left pending past their TTL
// so that their stock returns to the catalogue.
type StaleOrderSweeper struct {
	canceller StaleOrderCanceller
	logger    *zap.Logger
	config    SweeperConfig
	now       func() time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewStaleOrderSweeper creates a new sweeper
func NewStaleOrderSweeper(canceller StaleOrderCanceller, logger *zap.Logger, config SweeperConfig) (*StaleOrderSweeper, error) {
	if config.RunTimeout <= 0 {
		config.RunTimeout = DefaultSweeperConfig().RunTimeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSweeperConfig().BatchSize
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &StaleOrderSweeper{
		canceller: canceller,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}, nil
}

// Start starts the sweep loop
func (s *StaleOrderSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Stale order sweeper is disabled")
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx)

	s.logger.Info("Stale order sweeper started",
		zap.Duration("stale_order_ttl", s.config.StaleOrderTTL),
		zap.Duration("check_interval", s.config.CheckInterval),
	)
	return nil
}

// Stop gracefully stops the sweeper
func (s *StaleOrderSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Stale order sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Stale order sweeper stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the sweeper is running
func (s *StaleOrderSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// TriggerImmediateSweep runs one sweep now, outside the ticker
func (s *StaleOrderSweeper) TriggerImmediateSweep(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.Sweep(ctx)
	}()
	return nil
}

func (s *StaleOrderSweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Stale order sweep loop stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep cancels one batch of stale orders and returns the count
func (s *StaleOrderSweeper) Sweep(ctx context.Context) int {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.config.StaleOrderTTL)
	startTime := time.Now()
	cancelled, err := s.canceller.CancelStaleOrders(sweepCtx, cutoff, s.config.BatchSize)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Stale order sweep failed",
			zap.Time("cutoff", cutoff),
			zap.Duration("duration", duration),
			zap.Int("cancelled", cancelled),
			zap.Error(err),
		)
		return cancelled
	}

	if cancelled > 0 {
		s.logger.Info("Stale orders cancelled",
			zap.Time("cutoff", cutoff),
			zap.Duration("duration", duration),
			zap.Int("cancelled", cancelled),
		)
	} else {
		s.logger.Debug("No stale orders found", zap.Time("cutoff", cutoff))
	}
	return cancelled
}
