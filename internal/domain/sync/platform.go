package sync

// PlatformCode identifies a marketplace platform
type PlatformCode string

const (
	// PlatformCodeEbay represents eBay
	PlatformCodeEbay PlatformCode = "ebay"
	// PlatformCodeMercari represents Mercari
	PlatformCodeMercari PlatformCode = "mercari"
	// PlatformCodePoshmark represents Poshmark
	PlatformCodePoshmark PlatformCode = "poshmark"
	// PlatformCodeDepop represents Depop
	PlatformCodeDepop PlatformCode = "depop"
)

// AllPlatformCodes returns every known platform code
func AllPlatformCodes() []PlatformCode {
	return []PlatformCode{
		PlatformCodeEbay,
		PlatformCodeMercari,
		PlatformCodePoshmark,
		PlatformCodeDepop,
	}
}

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeEbay, PlatformCodeMercari, PlatformCodePoshmark, PlatformCodeDepop:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeEbay:
		return "eBay"
	case PlatformCodeMercari:
		return "Mercari"
	case PlatformCodePoshmark:
		return "Poshmark"
	case PlatformCodeDepop:
		return "Depop"
	default:
		return string(c)
	}
}

// PostingStatus represents the state of one listing on one platform
type PostingStatus string

const (
	// PostingStatusPending means the row exists but no post attempt has succeeded yet
	PostingStatusPending PostingStatus = "pending"
	// PostingStatusActive means the listing is live on the platform
	PostingStatusActive PostingStatus = "active"
	// PostingStatusFailed means the last post attempt failed; retryable until the ceiling
	PostingStatusFailed PostingStatus = "failed"
	// PostingStatusCanceled means the listing was taken down (or never went up)
	PostingStatusCanceled PostingStatus = "canceled"
	// PostingStatusSold means the item sold on this platform
	PostingStatusSold PostingStatus = "sold"
	// PostingStatusDelisted means a live listing was removed after the item
	// sold elsewhere. Terminal, like canceled, but distinguishes "never live"
	// from "was live and taken down".
	PostingStatusDelisted PostingStatus = "delisted"
)

// IsValid returns true if the posting status is a known value
func (s PostingStatus) IsValid() bool {
	switch s {
	case PostingStatusPending, PostingStatusActive, PostingStatusFailed,
		PostingStatusCanceled, PostingStatusSold, PostingStatusDelisted:
		return true
	default:
		return false
	}
}

// String returns the string representation of PostingStatus
func (s PostingStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further transitions are possible.
// Failed rows are terminal only once the retry ceiling is reached, which
// the entity tracks via attempt count; the status alone is not enough.
func (s PostingStatus) IsTerminal() bool {
	switch s {
	case PostingStatusCanceled, PostingStatusSold, PostingStatusDelisted:
		return true
	default:
		return false
	}
}

// CanCancel returns true when a sale elsewhere should take this row down
func (s PostingStatus) CanCancel() bool {
	return s == PostingStatusActive || s == PostingStatusPending || s == PostingStatusFailed
}

// CanRetry returns true when a failed post may be attempted again
func (s PostingStatus) CanRetry() bool {
	return s == PostingStatusFailed
}
