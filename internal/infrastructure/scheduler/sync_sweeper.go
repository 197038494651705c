// Package scheduler runs the periodic background work the sync domain needs:
// retrying failed postings, executing scheduled delistings, and archiving
// old sold listings. Every pass is also triggerable on demand through the
// HTTP API; the sweeper only removes the need to call those endpoints by hand.
package scheduler

import (
	"context"
	"sync"
	"time"

	listingapp "github.com/crosspost/backend/internal/application/listing"
	syncapp "github.com/crosspost/backend/internal/application/sync"
	"go.uber.org/zap"
)

// SyncSweeperConfig holds configuration for the background sweeper
type SyncSweeperConfig struct {
	// Interval is how often a sweep pass runs
	Interval time.Duration
	// PassTimeout bounds one full sweep pass
	PassTimeout time.Duration
	// ArchiveAfter is how long sold listings stay before archival
	ArchiveAfter time.Duration
	// ArchiveBatchSize caps listings archived per pass
	ArchiveBatchSize int
}

// DefaultSyncSweeperConfig returns default sweeper configuration
func DefaultSyncSweeperConfig() SyncSweeperConfig {
	return SyncSweeperConfig{
		Interval:         5 * time.Minute,
		PassTimeout:      2 * time.Minute,
		ArchiveAfter:     30 * 24 * time.Hour,
		ArchiveBatchSize: 100,
	}
}

// SyncSweeper periodically drives retries, scheduled cancellations, and
// sold-listing archival
type SyncSweeper struct {
	config       SyncSweeperConfig
	orchestrator *syncapp.Orchestrator
	listings     *listingapp.Service
	logger       *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncSweeper creates a new background sweeper
func NewSyncSweeper(
	config SyncSweeperConfig,
	orchestrator *syncapp.Orchestrator,
	listings *listingapp.Service,
	logger *zap.Logger,
) *SyncSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultSyncSweeperConfig().Interval
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = DefaultSyncSweeperConfig().PassTimeout
	}
	if config.ArchiveAfter <= 0 {
		config.ArchiveAfter = DefaultSyncSweeperConfig().ArchiveAfter
	}
	if config.ArchiveBatchSize <= 0 {
		config.ArchiveBatchSize = DefaultSyncSweeperConfig().ArchiveBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SyncSweeper{
		config:       config,
		orchestrator: orchestrator,
		listings:     listings,
		logger:       logger,
	}
}

// Start starts the sweep loop. Safe to call on an already-running sweeper.
func (s *SyncSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("sync sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("archive_after", s.config.ArchiveAfter),
	)

	return nil
}

// Stop stops the sweep loop and waits for an in-flight pass to finish
func (s *SyncSweeper) Stop(ctx context.Context) error {
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
		s.logger.Info("sync sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SyncSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep pass. Each stage runs even when an
// earlier one fails; a wedged retry scan must not block due delistings.
func (s *SyncSweeper) RunOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, s.config.PassTimeout)
	defer cancel()

	started := time.Now()

	retries, err := s.orchestrator.RetryFailedPosts(passCtx)
	if err != nil {
		s.logger.Error("sweep retry pass failed", zap.Error(err))
	} else if retries.Scanned > 0 {
		s.logger.Info("sweep retry pass finished",
			zap.Int("scanned", retries.Scanned),
			zap.Int("succeeded", retries.Succeeded),
			zap.Int("failed", retries.Failed),
			zap.Int("exhausted", retries.Exhausted),
		)
	}

	cancels, err := s.orchestrator.ProcessScheduledCancellations(passCtx)
	if err != nil {
		s.logger.Error("sweep delisting pass failed", zap.Error(err))
	} else if cancels.Due > 0 {
		s.logger.Info("sweep delisting pass finished",
			zap.Int("due", cancels.Due),
			zap.Int("completed", cancels.Completed),
			zap.Int("failed", cancels.Failed),
		)
	}

	cutoff := time.Now().Add(-s.config.ArchiveAfter)
	archived, err := s.listings.ArchiveSoldBefore(passCtx, cutoff, s.config.ArchiveBatchSize)
	if err != nil {
		s.logger.Error("sweep archive pass failed", zap.Error(err))
	} else if archived.Archived > 0 {
		s.logger.Info("sweep archive pass finished",
			zap.Int("archived", archived.Archived),
			zap.Time("cutoff", cutoff),
		)
	}

	s.logger.Debug("sweep pass complete", zap.Duration("took", time.Since(started)))
}
