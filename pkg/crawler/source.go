package crawler

import (
	"context"
	"net/http"
)

// PageSource is the per-platform request builder bound to one target app.
//
// CurrentPage never decreases during a crawl, and HasMorePages depends only
// on CurrentPage and a fixed per-platform maximum (inclusive).
type PageSource interface {
	// BuildRequest describes the request for page. It has no side effects.
	BuildRequest(ctx context.Context, page uint32) (*http.Request, error)

	// HasMorePages reports whether CurrentPage is within the page bound.
	HasMorePages() bool

	// IncrementPage advances CurrentPage by exactly one.
	IncrementPage()

	// CurrentPage returns the page the next request targets.
	CurrentPage() uint32
}

// Describer identifies the target behind a PageSource for logs, metrics and
// cache keys. Sources that do not implement it are reported as "unknown"
// and are never cached.
type Describer interface {
	Platform() string
	AppID() string
	Country() string
}

type description struct {
	platform string
	appID    string
	country  string

	// cacheable is false when the source cannot name its target.
	cacheable bool
}

func describe(src PageSource) description {
	if d, ok := src.(Describer); ok {
		return description{
			platform:  d.Platform(),
			appID:     d.AppID(),
			country:   d.Country(),
			cacheable: d.Platform() != "" && d.AppID() != "",
		}
	}
	return description{platform: "unknown"}
}
