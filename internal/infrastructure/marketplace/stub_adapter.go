package marketplace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/crosspost/backend/internal/domain/listing"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StubConfig controls the behavior of a stub adapter. The defaults post
// instantly and never fail.
type StubConfig struct {
	// Latency is added to every call to simulate marketplace round trips
	Latency time.Duration

	// FailureRate in [0,1] makes Post fail deterministically: every call
	// whose sequence number modulo 100 falls below FailureRate*100 fails.
	FailureRate float64

	// ExternalIDPrefix prefixes generated listing IDs, e.g. "EBAY"
	ExternalIDPrefix string
}

// stubListing is the remote-side state the stub tracks per external ID
type stubListing struct {
	title  string
	status syncdomain.PostingStatus
}

// StubAdapter is an in-memory PlatformAdapter used in development and tests.
// It keeps its own notion of what is listed so Cancel and Status behave like
// a real marketplace would: cancelling an unknown listing fails.
type StubAdapter struct {
	code   syncdomain.PlatformCode
	config StubConfig
	logger *zap.Logger

	mu       sync.Mutex
	listings map[string]*stubListing
	calls    int
}

// Ensure StubAdapter implements sync.PlatformAdapter
var _ syncdomain.PlatformAdapter = (*StubAdapter)(nil)

// NewStubAdapter creates a stub adapter for the given platform
func NewStubAdapter(code syncdomain.PlatformCode, config StubConfig, logger *zap.Logger) (*StubAdapter, error) {
	if !code.IsValid() {
		return nil, fmt.Errorf("marketplace: unknown platform code %q", code)
	}
	if config.FailureRate < 0 || config.FailureRate > 1 {
		return nil, fmt.Errorf("marketplace: failure rate must be in [0,1], got %v", config.FailureRate)
	}
	if config.ExternalIDPrefix == "" {
		config.ExternalIDPrefix = strings.ToUpper(string(code))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StubAdapter{
		code:     code,
		config:   config,
		logger:   logger,
		listings: make(map[string]*stubListing),
	}, nil
}

// Code returns the platform this adapter handles
func (a *StubAdapter) Code() syncdomain.PlatformCode {
	return a.code
}

// Post creates the listing on the simulated marketplace
func (a *StubAdapter) Post(ctx context.Context, l *listing.UnifiedListing) (string, error) {
	if err := a.simulateRoundTrip(ctx); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls++
	if a.shouldFail() {
		a.logger.Debug("stub adapter injected post failure",
			zap.String("platform", a.code.String()),
			zap.Int("call", a.calls))
		return "", syncdomain.NewPlatformError(a.code, "post", false, syncdomain.ErrPlatformRequestFailed)
	}

	externalID := fmt.Sprintf("%s-%s", a.config.ExternalIDPrefix, uuid.New().String()[:8])
	a.listings[externalID] = &stubListing{
		title:  l.Title,
		status: syncdomain.PostingStatusActive,
	}

	a.logger.Debug("stub adapter posted listing",
		zap.String("platform", a.code.String()),
		zap.String("external_id", externalID))

	return externalID, nil
}

// Cancel takes the listing down on the simulated marketplace
func (a *StubAdapter) Cancel(ctx context.Context, externalID string) error {
	if err := a.simulateRoundTrip(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	remote, ok := a.listings[externalID]
	if !ok {
		return syncdomain.NewPlatformError(a.code, "cancel", false, syncdomain.ErrExternalListingMissing)
	}

	remote.status = syncdomain.PostingStatusCanceled
	return nil
}

// Status reports the simulated marketplace's view of the listing
func (a *StubAdapter) Status(ctx context.Context, externalID string) (syncdomain.PostingStatus, error) {
	if err := a.simulateRoundTrip(ctx); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	remote, ok := a.listings[externalID]
	if !ok {
		return "", syncdomain.NewPlatformError(a.code, "status", false, syncdomain.ErrExternalListingMissing)
	}
	return remote.status, nil
}

// simulateRoundTrip sleeps for the configured latency, honoring cancellation
func (a *StubAdapter) simulateRoundTrip(ctx context.Context) error {
	if a.config.Latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(a.config.Latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// shouldFail implements the deterministic failure schedule. Caller holds a.mu.
func (a *StubAdapter) shouldFail() bool {
	if a.config.FailureRate <= 0 {
		return false
	}
	return a.calls%100 < int(a.config.FailureRate*100)
}
