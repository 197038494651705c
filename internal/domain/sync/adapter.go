package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/crosspost/backend/internal/domain/listing"
)

// ---------------------------------------------------------------------------
// Platform adapter errors
// ---------------------------------------------------------------------------

var (
	// Registry errors
	ErrPlatformNotConfigured = errors.New("sync: platform not configured")
	ErrNoPlatformsConfigured = errors.New("sync: no platforms configured")
	ErrDuplicateAdapter      = errors.New("sync: duplicate adapter for platform")

	// Adapter errors
	ErrPlatformUnavailable    = errors.New("sync: platform temporarily unavailable")
	ErrPlatformRequestFailed  = errors.New("sync: platform request failed")
	ErrPlatformRejectedItem   = errors.New("sync: platform rejected the listing")
	ErrExternalListingMissing = errors.New("sync: external listing not found on platform")

	// Reconciliation errors
	ErrListingNotOnPlatform = errors.New("sync: listing has no record on that platform")
	ErrSaleAlreadyProcessed = errors.New("sync: sale event already processed")
)

// PlatformError wraps an adapter failure with the platform and operation
// it came from, so callers can log and store uniform error detail.
type PlatformError struct {
	Platform PlatformCode
	Op       string // "post", "cancel", "status"
	Timeout  bool
	Err      error
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: timed out: %v", e.Platform, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// NewPlatformError creates a PlatformError
func NewPlatformError(platform PlatformCode, op string, timeout bool, err error) *PlatformError {
	return &PlatformError{Platform: platform, Op: op, Timeout: timeout, Err: err}
}

// ---------------------------------------------------------------------------
// Platform adapter port
// ---------------------------------------------------------------------------

// PlatformAdapter is the outbound port for one marketplace platform.
// Implementations own authentication, payload mapping, and transport; the
// orchestrator owns timeouts, retries, and state transitions.
type PlatformAdapter interface {
	// Code returns the platform this adapter serves
	Code() PlatformCode

	// Post publishes the listing and returns the platform-assigned listing ID
	Post(ctx context.Context, l *listing.UnifiedListing) (externalID string, err error)

	// Cancel takes down a live listing by its platform-assigned ID
	Cancel(ctx context.Context, externalID string) error

	// Status fetches the current posting status from the platform
	Status(ctx context.Context, externalID string) (PostingStatus, error)
}

// AdapterRegistry resolves platform codes to adapters. Implementations are
// validated at construction: every configured platform must have an adapter,
// so Resolve failing at runtime indicates a programming error upstream.
type AdapterRegistry interface {
	// Resolve returns the adapter for a platform or ErrPlatformNotConfigured
	Resolve(platform PlatformCode) (PlatformAdapter, error)

	// Platforms returns all configured platform codes
	Platforms() []PlatformCode

	// IsConfigured reports whether the platform has an adapter
	IsConfigured(platform PlatformCode) bool
}
