package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------------------
// PlatformCode Tests
// ---------------------------------------------------------------------------

func TestPlatformCode_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		code     PlatformCode
		expected bool
	}{
		{"eBay valid", PlatformCodeEbay, true},
		{"Mercari valid", PlatformCodeMercari, true},
		{"Poshmark valid", PlatformCodePoshmark, true},
		{"Depop valid", PlatformCodeDepop, true},
		{"Invalid code", PlatformCode("etsy"), false},
		{"Empty code", PlatformCode(""), false},
		{"Wrong case", PlatformCode("EBAY"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.IsValid())
		})
	}
}

func TestPlatformCode_DisplayName(t *testing.T) {
	tests := []struct {
		code     PlatformCode
		expected string
	}{
		{PlatformCodeEbay, "eBay"},
		{PlatformCodeMercari, "Mercari"},
		{PlatformCodePoshmark, "Poshmark"},
		{PlatformCodeDepop, "Depop"},
		{PlatformCode("unknown"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.DisplayName())
		})
	}
}

func TestAllPlatformCodes(t *testing.T) {
	codes := AllPlatformCodes()
	assert.Len(t, codes, 4)
	for _, c := range codes {
		assert.True(t, c.IsValid())
	}
}

// ---------------------------------------------------------------------------
// PostingStatus Tests
// ---------------------------------------------------------------------------

func TestPostingStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   PostingStatus
		expected bool
	}{
		{PostingStatusPending, false},
		{PostingStatusActive, false},
		{PostingStatusFailed, false},
		{PostingStatusCanceled, true},
		{PostingStatusSold, true},
		{PostingStatusDelisted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsTerminal())
		})
	}
}

func TestPostingStatus_CanCancel(t *testing.T) {
	assert.True(t, PostingStatusActive.CanCancel())
	assert.True(t, PostingStatusPending.CanCancel())
	assert.True(t, PostingStatusFailed.CanCancel())
	assert.False(t, PostingStatusSold.CanCancel())
	assert.False(t, PostingStatusCanceled.CanCancel())
	assert.False(t, PostingStatusDelisted.CanCancel())
}

func TestPostingStatus_CanRetry(t *testing.T) {
	assert.True(t, PostingStatusFailed.CanRetry())
	assert.False(t, PostingStatusPending.CanRetry())
	assert.False(t, PostingStatusActive.CanRetry())
	assert.False(t, PostingStatusSold.CanRetry())
}
