package cache

import (
	"fmt"
	"strings"
)

// CacheKey identifies one cached review page.
type CacheKey struct {
	// Platform is the store namespace (e.g., "app_store")
	Platform string

	// Country is the store locale the page was requested for
	Country string

	// AppID is the platform-specific application identifier
	AppID string

	// Page is the page number as sent to the store
	Page uint32
}

// String generates a deterministic cache key string.
// Format: reviews:platform:country:app_id:page=N
//
// Example:
//
//	reviews:app_store:us:1194408342:page=3
func (k CacheKey) String() string {
	parts := []string{"reviews"}

	if p := normalize(k.Platform); p != "" {
		parts = append(parts, p)
	}
	if c := normalize(k.Country); c != "" {
		parts = append(parts, c)
	}
	if id := strings.TrimSpace(k.AppID); id != "" {
		parts = append(parts, id)
	}

	parts = append(parts, fmt.Sprintf("page=%d", k.Page))

	return strings.Join(parts, ":")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
