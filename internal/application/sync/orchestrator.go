// Package sync orchestrates posting, reconciliation, and retry of unified
// listings across marketplace platforms.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crosspost/backend/internal/domain/listing"
	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MetricsRecorder records sync activity for observability. Implemented by
// the telemetry package; a no-op implementation is used when metrics are
// disabled.
type MetricsRecorder interface {
	RecordPost(ctx context.Context, platform syncdomain.PlatformCode, success bool)
	RecordRetry(ctx context.Context, platform syncdomain.PlatformCode, success bool)
	RecordCancel(ctx context.Context, platform syncdomain.PlatformCode, success bool)
	RecordAdapterLatency(ctx context.Context, platform syncdomain.PlatformCode, op string, d time.Duration)
}

// NopMetrics is a MetricsRecorder that does nothing
type NopMetrics struct{}

func (NopMetrics) RecordPost(context.Context, syncdomain.PlatformCode, bool)   {}
func (NopMetrics) RecordRetry(context.Context, syncdomain.PlatformCode, bool)  {}
func (NopMetrics) RecordCancel(context.Context, syncdomain.PlatformCode, bool) {}
func (NopMetrics) RecordAdapterLatency(context.Context, syncdomain.PlatformCode, string, time.Duration) {
}

// Config holds orchestrator tunables
type Config struct {
	// RetryCeiling is the maximum total post attempts per (listing, platform)
	RetryCeiling int
	// AdapterTimeout bounds each adapter call; a timeout counts as a failure
	AdapterTimeout time.Duration
	// CancelDelay defers takedown of live listings after a sale elsewhere.
	// Zero means cancel immediately.
	CancelDelay time.Duration
	// RetryBatchSize caps how many failed rows one retry pass picks up
	RetryBatchSize int
}

func (c *Config) applyDefaults() {
	if c.RetryCeiling <= 0 {
		c.RetryCeiling = 3
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = 30 * time.Second
	}
	if c.RetryBatchSize <= 0 {
		c.RetryBatchSize = 50
	}
}

// Orchestrator coordinates listing state across platforms. All collaborators
// are injected; the orchestrator holds no ambient configuration.
type Orchestrator struct {
	listings listing.Repository
	rows     syncdomain.PlatformListingRepository
	auditLog syncdomain.SyncLogRepository
	registry syncdomain.AdapterRegistry
	notifier syncdomain.NotificationSink
	events   shared.EventPublisher
	metrics  MetricsRecorder
	locks    *keyedMutex
	logger   *zap.Logger
	cfg      Config
}

// NewOrchestrator creates a sync orchestrator
func NewOrchestrator(
	listings listing.Repository,
	rows syncdomain.PlatformListingRepository,
	auditLog syncdomain.SyncLogRepository,
	registry syncdomain.AdapterRegistry,
	notifier syncdomain.NotificationSink,
	events shared.EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
	cfg Config,
) *Orchestrator {
	cfg.applyDefaults()
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		listings: listings,
		rows:     rows,
		auditLog: auditLog,
		registry: registry,
		notifier: notifier,
		events:   events,
		metrics:  metrics,
		locks:    newKeyedMutex(),
		logger:   logger,
		cfg:      cfg,
	}
}

// RetryCeiling exposes the configured ceiling for read paths
func (o *Orchestrator) RetryCeiling() int {
	return o.cfg.RetryCeiling
}

// ---------------------------------------------------------------------------
// PostToAll
// ---------------------------------------------------------------------------

// PostToAll posts a listing to the given platforms concurrently. Each
// platform is isolated: one failure never short-circuits the others. An
// empty platform set fans out to every configured platform. Requesting a
// platform with no configured adapter fails the whole call before any
// mutation.
func (o *Orchestrator) PostToAll(ctx context.Context, listingID uuid.UUID, platforms []syncdomain.PlatformCode) (*PostSummary, error) {
	summary := &PostSummary{ListingID: listingID, Results: []PlatformResult{}}
	if len(platforms) == 0 {
		platforms = o.registry.Platforms()
	}

	for _, p := range platforms {
		if !p.IsValid() {
			return nil, fmt.Errorf("%w: unknown platform %q", shared.ErrInvalidInput, p)
		}
		if !o.registry.IsConfigured(p) {
			return nil, fmt.Errorf("%w: %s", syncdomain.ErrPlatformNotConfigured, p)
		}
	}

	l, err := o.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.Status == listing.ListingStatusSold || l.Status == listing.ListingStatusArchived {
		return nil, shared.ErrInvalidState
	}

	results := make([]PlatformResult, len(platforms))
	g, gctx := errgroup.WithContext(ctx)
	for i, platform := range platforms {
		g.Go(func() error {
			results[i] = o.postOne(gctx, l, platform, syncdomain.SyncOperationPost)
			return nil
		})
	}
	// postOne never returns an error; the group is only a join point
	_ = g.Wait()

	summary.Results = results
	for _, r := range results {
		switch {
		case r.Skipped:
			summary.SkippedCount++
		case r.Status == syncdomain.PostingStatusActive:
			summary.SuccessCount++
		default:
			summary.FailureCount++
		}
	}

	if summary.SuccessCount > 0 {
		o.markListed(ctx, l)
	}

	o.logger.Info("post fan-out complete",
		zap.String("listing_id", listingID.String()),
		zap.Int("success", summary.SuccessCount),
		zap.Int("failure", summary.FailureCount),
		zap.Int("skipped", summary.SkippedCount),
	)

	return summary, nil
}

// postOne runs a single post or retry attempt against one platform. It
// reports the outcome in the result instead of returning an error so the
// fan-out never short-circuits.
func (o *Orchestrator) postOne(ctx context.Context, l *listing.UnifiedListing, platform syncdomain.PlatformCode, op syncdomain.SyncOperation) PlatformResult {
	unlock := o.locks.Lock(lockKey(l.ID, platform))
	defer unlock()

	result := PlatformResult{Platform: platform}

	row, err := o.rows.FindByListingAndPlatform(ctx, l.ID, platform)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		row, err = syncdomain.NewPlatformListing(l.ID, platform)
		if err == nil {
			err = o.rows.Create(ctx, row)
		}
		if err != nil {
			result.ErrorDetail = err.Error()
			result.Status = syncdomain.PostingStatusFailed
			return result
		}
	case err != nil:
		result.ErrorDetail = err.Error()
		result.Status = syncdomain.PostingStatusFailed
		return result
	}

	result.Status = row.Status
	result.Attempts = row.AttemptCount

	// Already live or terminal: nothing to do for this platform
	if row.Status == syncdomain.PostingStatusActive || row.Status.IsTerminal() {
		result.ExternalID = row.ExternalID
		result.Skipped = true
		return result
	}
	if row.IsExhausted(o.cfg.RetryCeiling) {
		result.ErrorDetail = row.LastError
		result.Skipped = true
		return result
	}

	expectedStatus := row.Status
	expectedAttempts := row.AttemptCount

	adapter, err := o.registry.Resolve(platform)
	if err != nil {
		result.ErrorDetail = err.Error()
		return result
	}

	row.RecordAttempt(time.Now())
	externalID, postErr := o.callPost(ctx, adapter, l)

	if postErr == nil {
		if err := row.MarkActive(externalID); err != nil {
			postErr = err
		}
	}
	if postErr != nil {
		_ = row.MarkFailed(postErr.Error())
	}

	if err := o.rows.UpdateWithCAS(ctx, row, expectedStatus, expectedAttempts); err != nil {
		o.logger.Warn("platform row update lost race",
			zap.String("listing_id", l.ID.String()),
			zap.String("platform", platform.String()),
			zap.Error(err),
		)
		// The adapter call already happened; the attempt still gets its
		// audit entry even though the row update lost the race.
		cause := err
		if postErr != nil {
			cause = postErr
		}
		o.appendLog(ctx, l.ID, platform, op, false, cause)
		result.Status = expectedStatus
		result.ErrorDetail = err.Error()
		return result
	}

	result.Status = row.Status
	result.Attempts = row.AttemptCount
	result.ExternalID = row.ExternalID

	success := postErr == nil
	o.appendLog(ctx, l.ID, platform, op, success, postErr)
	if op == syncdomain.SyncOperationRetry {
		o.metrics.RecordRetry(ctx, platform, success)
	} else {
		o.metrics.RecordPost(ctx, platform, success)
	}

	if success {
		o.publish(ctx, syncdomain.NewListingPostedEvent(row))
		return result
	}

	result.ErrorDetail = postErr.Error()
	o.publish(ctx, syncdomain.NewPostingFailedEvent(row, postErr.Error()))

	if row.IsExhausted(o.cfg.RetryCeiling) {
		o.publish(ctx, syncdomain.NewRetriesExhaustedEvent(row))
		o.notify(ctx, syncdomain.NewNotification(
			syncdomain.NotificationKindFailedListing,
			l.ID,
			platform,
			"Posting failed permanently",
			fmt.Sprintf("%q could not be posted to %s after %d attempts: %s", l.Title, platform.DisplayName(), row.AttemptCount, postErr),
		))
	}

	return result
}

// callPost invokes the adapter with the per-call timeout. A deadline hit is
// reported as a timeout failure, indistinguishable in effect from any other
// adapter failure.
func (o *Orchestrator) callPost(ctx context.Context, adapter syncdomain.PlatformAdapter, l *listing.UnifiedListing) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()

	start := time.Now()
	externalID, err := adapter.Post(callCtx, l)
	o.metrics.RecordAdapterLatency(ctx, adapter.Code(), "post", time.Since(start))

	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
		return "", syncdomain.NewPlatformError(adapter.Code(), "post", timeout, err)
	}
	return externalID, nil
}

// ---------------------------------------------------------------------------
// MarkSold
// ---------------------------------------------------------------------------

// MarkSold records a sale on one platform and takes the listing down
// everywhere else. Idempotent: a second call for an already-sold listing is
// a no-op. If the listing has no record on the sold platform, nothing is
// mutated and ErrListingNotOnPlatform is returned.
func (o *Orchestrator) MarkSold(ctx context.Context, listingID uuid.UUID, soldPlatform syncdomain.PlatformCode, price decimal.Decimal) (*MarkSoldResult, error) {
	l, err := o.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	result := &MarkSoldResult{
		ListingID:     listingID,
		SoldPlatform:  soldPlatform,
		SoldPrice:     price,
		Canceled:      []syncdomain.PlatformCode{},
		Scheduled:     []syncdomain.PlatformCode{},
		FailedCancels: []syncdomain.PlatformCode{},
	}

	if l.IsSold() {
		result.AlreadySold = true
		return result, nil
	}

	// Verify the sale is plausible before touching anything
	soldRow, err := o.rows.FindByListingAndPlatform(ctx, listingID, soldPlatform)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: listing %s on %s", syncdomain.ErrListingNotOnPlatform, listingID, soldPlatform)
	}
	if err != nil {
		return nil, err
	}

	if err := o.markRowSold(ctx, soldRow); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := l.MarkSold(soldPlatform.String(), price, now); err != nil {
		return nil, err
	}
	if err := o.listings.Update(ctx, l); err != nil {
		return nil, err
	}
	o.publish(ctx, l.GetDomainEvents()...)
	l.ClearDomainEvents()

	o.appendLog(ctx, listingID, soldPlatform, syncdomain.SyncOperationMarkSold, true, nil)

	// Sale notification fires once the sold state is durable, regardless of
	// how the takedowns below go.
	o.notify(ctx, syncdomain.NewNotification(
		syncdomain.NotificationKindSale,
		listingID,
		soldPlatform,
		"Item sold",
		fmt.Sprintf("%q sold on %s for %s", l.Title, soldPlatform.DisplayName(), price.StringFixed(2)),
	))

	others, err := o.rows.FindByListing(ctx, listingID)
	if err != nil {
		o.logger.Error("listing sold but takedown scan failed",
			zap.String("listing_id", listingID.String()),
			zap.Error(err),
		)
		return result, nil
	}

	for _, row := range others {
		if row.Platform == soldPlatform || !row.Status.CanCancel() {
			continue
		}

		if o.cfg.CancelDelay > 0 && row.Status == syncdomain.PostingStatusActive {
			if err := o.scheduleCancel(ctx, row, now.Add(o.cfg.CancelDelay)); err != nil {
				result.FailedCancels = append(result.FailedCancels, row.Platform)
			} else {
				result.Scheduled = append(result.Scheduled, row.Platform)
			}
			continue
		}

		if err := o.cancelOne(ctx, row); err != nil {
			result.FailedCancels = append(result.FailedCancels, row.Platform)
		} else {
			result.Canceled = append(result.Canceled, row.Platform)
		}
	}

	o.logger.Info("listing sold",
		zap.String("listing_id", listingID.String()),
		zap.String("platform", soldPlatform.String()),
		zap.String("price", price.String()),
		zap.Int("canceled", len(result.Canceled)),
		zap.Int("scheduled", len(result.Scheduled)),
		zap.Int("failed_cancels", len(result.FailedCancels)),
	)

	return result, nil
}

func (o *Orchestrator) markRowSold(ctx context.Context, row *syncdomain.PlatformListing) error {
	unlock := o.locks.Lock(lockKey(row.ListingID, row.Platform))
	defer unlock()

	expectedStatus := row.Status
	expectedAttempts := row.AttemptCount

	if err := row.MarkSold(); err != nil {
		return err
	}
	return o.rows.UpdateWithCAS(ctx, row, expectedStatus, expectedAttempts)
}

// scheduleCancel defers the takedown of a live row
func (o *Orchestrator) scheduleCancel(ctx context.Context, row *syncdomain.PlatformListing, at time.Time) error {
	unlock := o.locks.Lock(lockKey(row.ListingID, row.Platform))
	defer unlock()

	expectedStatus := row.Status
	expectedAttempts := row.AttemptCount

	if err := row.ScheduleCancel(at); err != nil {
		return err
	}
	if err := o.rows.UpdateWithCAS(ctx, row, expectedStatus, expectedAttempts); err != nil {
		o.logger.Warn("failed to schedule takedown",
			zap.String("listing_id", row.ListingID.String()),
			zap.String("platform", row.Platform.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// cancelOne takes one row down. Live rows go through the adapter; rows that
// never went live are canceled locally. A failed adapter takedown leaves the
// row live with the error recorded for manual follow-up.
func (o *Orchestrator) cancelOne(ctx context.Context, row *syncdomain.PlatformListing) error {
	unlock := o.locks.Lock(lockKey(row.ListingID, row.Platform))
	defer unlock()

	expectedStatus := row.Status
	expectedAttempts := row.AttemptCount

	var cancelErr error
	if row.Status == syncdomain.PostingStatusActive {
		adapter, err := o.registry.Resolve(row.Platform)
		if err != nil {
			cancelErr = err
		} else {
			callCtx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
			start := time.Now()
			err = adapter.Cancel(callCtx, row.ExternalID)
			o.metrics.RecordAdapterLatency(ctx, row.Platform, "cancel", time.Since(start))
			cancel()
			if err != nil {
				timeout := errors.Is(err, context.DeadlineExceeded)
				cancelErr = syncdomain.NewPlatformError(row.Platform, "cancel", timeout, err)
			}
		}

		if cancelErr == nil {
			cancelErr = row.MarkDelisted()
		} else {
			row.RecordCancelFailure(cancelErr.Error())
		}
	} else {
		cancelErr = row.MarkCanceled()
	}

	if err := o.rows.UpdateWithCAS(ctx, row, expectedStatus, expectedAttempts); err != nil {
		o.logger.Warn("takedown row update lost race",
			zap.String("listing_id", row.ListingID.String()),
			zap.String("platform", row.Platform.String()),
			zap.Error(err),
		)
		if cancelErr == nil {
			cancelErr = err
		}
	}

	success := cancelErr == nil
	o.appendLog(ctx, row.ListingID, row.Platform, syncdomain.SyncOperationCancel, success, cancelErr)
	o.metrics.RecordCancel(ctx, row.Platform, success)

	if success {
		o.publish(ctx, syncdomain.NewListingDelistedEvent(row))
		return nil
	}

	o.logger.Error("failed to take listing down",
		zap.String("listing_id", row.ListingID.String()),
		zap.String("platform", row.Platform.String()),
		zap.Error(cancelErr),
	)
	return cancelErr
}

// ---------------------------------------------------------------------------
// RetryFailedPosts
// ---------------------------------------------------------------------------

// RetryFailedPosts re-attempts failed postings below the retry ceiling. It
// is caller-triggered: an external scheduler (or the bundled sweeper)
// decides when a pass runs. Rows at the ceiling are terminal and never
// picked up.
func (o *Orchestrator) RetryFailedPosts(ctx context.Context) (*RetrySummary, error) {
	rowsDue, err := o.rows.FindRetryable(ctx, o.cfg.RetryCeiling, o.cfg.RetryBatchSize)
	if err != nil {
		return nil, err
	}

	summary := &RetrySummary{Scanned: len(rowsDue)}
	listings := make(map[uuid.UUID]*listing.UnifiedListing)

	for _, row := range rowsDue {
		l, ok := listings[row.ListingID]
		if !ok {
			l, err = o.listings.FindByID(ctx, row.ListingID)
			if err != nil {
				o.logger.Warn("retry skipped, listing lookup failed",
					zap.String("listing_id", row.ListingID.String()),
					zap.Error(err),
				)
				summary.Skipped++
				continue
			}
			listings[row.ListingID] = l
		}

		// A listing that sold or was archived since the failure has nothing
		// to repost.
		if l.Status == listing.ListingStatusSold || l.Status == listing.ListingStatusArchived {
			summary.Skipped++
			continue
		}

		result := o.postOne(ctx, l, row.Platform, syncdomain.SyncOperationRetry)
		if result.Skipped {
			summary.Skipped++
			continue
		}
		summary.Attempted++
		if result.Status == syncdomain.PostingStatusActive {
			summary.Succeeded++
			o.markListed(ctx, l)
		} else {
			summary.Failed++
			if result.Attempts >= o.cfg.RetryCeiling {
				summary.Exhausted++
			}
		}
	}

	o.logger.Info("retry pass complete",
		zap.Int("scanned", summary.Scanned),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("exhausted", summary.Exhausted),
	)

	return summary, nil
}

// ---------------------------------------------------------------------------
// ProcessScheduledCancellations
// ---------------------------------------------------------------------------

// ProcessScheduledCancellations completes takedowns whose grace window has
// elapsed.
func (o *Orchestrator) ProcessScheduledCancellations(ctx context.Context) (*SweepSummary, error) {
	due, err := o.rows.FindCancelDue(ctx, time.Now(), o.cfg.RetryBatchSize)
	if err != nil {
		return nil, err
	}

	summary := &SweepSummary{Due: len(due)}
	for _, row := range due {
		if err := o.cancelOne(ctx, row); err != nil {
			summary.Failed++
		} else {
			summary.Completed++
		}
	}

	if summary.Due > 0 {
		o.logger.Info("scheduled takedown pass complete",
			zap.Int("due", summary.Due),
			zap.Int("completed", summary.Completed),
			zap.Int("failed", summary.Failed),
		)
	}

	return summary, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (o *Orchestrator) markListed(ctx context.Context, l *listing.UnifiedListing) {
	if err := l.MarkListed(); err != nil {
		return
	}
	if err := o.listings.Update(ctx, l); err != nil {
		o.logger.Warn("failed to mark listing as listed",
			zap.String("listing_id", l.ID.String()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) appendLog(ctx context.Context, listingID uuid.UUID, platform syncdomain.PlatformCode, op syncdomain.SyncOperation, success bool, cause error) {
	result := syncdomain.SyncResultSuccess
	detail := ""
	if !success {
		result = syncdomain.SyncResultFailure
		if cause != nil {
			detail = cause.Error()
		}
	}

	entry, err := syncdomain.NewSyncLogEntry(listingID, platform, op, result, detail)
	if err == nil {
		err = o.auditLog.Append(ctx, entry)
	}
	if err != nil {
		o.logger.Error("failed to append sync log entry",
			zap.String("listing_id", listingID.String()),
			zap.String("platform", platform.String()),
			zap.String("operation", string(op)),
			zap.Error(err),
		)
	}
}

// notify delivers a notification without letting sink failures leak into
// the calling operation.
func (o *Orchestrator) notify(ctx context.Context, n *syncdomain.Notification) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, n); err != nil {
		o.logger.Warn("notification delivery failed",
			zap.String("kind", string(n.Kind)),
			zap.String("listing_id", n.ListingID.String()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) publish(ctx context.Context, events ...shared.DomainEvent) {
	if o.events == nil || len(events) == 0 {
		return
	}
	if err := o.events.Publish(ctx, events...); err != nil {
		o.logger.Warn("domain event publish failed", zap.Error(err))
	}
}

func lockKey(listingID uuid.UUID, platform syncdomain.PlatformCode) string {
	return listingID.String() + "/" + platform.String()
}
