package marketplace

import (
	"fmt"

	syncdomain "github.com/crosspost/backend/internal/domain/sync"
)

// Ensure StaticRegistry implements sync.AdapterRegistry
var _ syncdomain.AdapterRegistry = (*StaticRegistry)(nil)

// StaticRegistry holds the set of marketplace adapters configured at startup.
// The set is immutable after construction so lookups need no locking.
type StaticRegistry struct {
	adapters map[syncdomain.PlatformCode]syncdomain.PlatformAdapter
}

// NewStaticRegistry validates and indexes the given adapters. It fails fast
// on an empty set, a duplicate platform, or an adapter reporting an unknown
// platform code, so misconfiguration surfaces at startup rather than on the
// first post.
func NewStaticRegistry(adapters ...syncdomain.PlatformAdapter) (*StaticRegistry, error) {
	if len(adapters) == 0 {
		return nil, syncdomain.ErrNoPlatformsConfigured
	}

	indexed := make(map[syncdomain.PlatformCode]syncdomain.PlatformAdapter, len(adapters))
	for _, adapter := range adapters {
		code := adapter.Code()
		if !code.IsValid() {
			return nil, fmt.Errorf("marketplace: adapter reports unknown platform code %q", code)
		}
		if _, exists := indexed[code]; exists {
			return nil, fmt.Errorf("%w: %s", syncdomain.ErrDuplicateAdapter, code)
		}
		indexed[code] = adapter
	}

	return &StaticRegistry{adapters: indexed}, nil
}

// Resolve returns the adapter for the platform or ErrPlatformNotConfigured
func (r *StaticRegistry) Resolve(code syncdomain.PlatformCode) (syncdomain.PlatformAdapter, error) {
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", syncdomain.ErrPlatformNotConfigured, code)
	}
	return adapter, nil
}

// Platforms returns the configured platform codes in declaration order
// of AllPlatformCodes
func (r *StaticRegistry) Platforms() []syncdomain.PlatformCode {
	codes := make([]syncdomain.PlatformCode, 0, len(r.adapters))
	for _, code := range syncdomain.AllPlatformCodes() {
		if _, ok := r.adapters[code]; ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// IsConfigured reports whether an adapter exists for the platform
func (r *StaticRegistry) IsConfigured(code syncdomain.PlatformCode) bool {
	_, ok := r.adapters[code]
	return ok
}
