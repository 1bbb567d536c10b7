// Package appstore crawls and parses Apple App Store customer review feeds.
package appstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/store-review-crawler/pkg/target"
)

const (
	// Platform is the output namespace and metrics label for the App Store.
	Platform = "app_store"

	// MaxPages is the last page the RSS feed serves (inclusive).
	MaxPages = 10

	// DefaultStartPage is used when the target does not set pages.
	DefaultStartPage = 1

	// DefaultBaseURL is the RSS feed host.
	DefaultBaseURL = "https://itunes.apple.com"
)

// Source is the App Store page source for one application.
type Source struct {
	appID   string
	country string
	page    uint32
	baseURL string
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL points the source at another host (mock servers, mirrors).
func WithBaseURL(baseURL string) Option {
	return func(s *Source) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// NewSource creates a source starting at app.Pages, or DefaultStartPage
// when unset.
func NewSource(app target.App, opts ...Option) *Source {
	page := app.Pages
	if page == 0 {
		page = DefaultStartPage
	}
	s := &Source{
		appID:   app.AppID,
		country: app.Country,
		page:    page,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildRequest returns
// GET {base}/{country}/rss/customerreviews/id={app_id}/page={page}/sortby=mostrecent/xml
func (s *Source) BuildRequest(ctx context.Context, page uint32) (*http.Request, error) {
	u := fmt.Sprintf("%s/%s/rss/customerreviews/id=%s/page=%d/sortby=mostrecent/xml",
		s.baseURL, url.PathEscape(s.country), url.PathEscape(s.appID), page)
	return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
}

// HasMorePages reports whether the current page is within MaxPages.
func (s *Source) HasMorePages() bool { return s.page <= MaxPages }

// IncrementPage advances to the next page.
func (s *Source) IncrementPage() { s.page++ }

// CurrentPage returns the page the next request targets.
func (s *Source) CurrentPage() uint32 { return s.page }

// Platform implements crawler.Describer.
func (s *Source) Platform() string { return Platform }

// AppID implements crawler.Describer.
func (s *Source) AppID() string { return s.appID }

// Country implements crawler.Describer.
func (s *Source) Country() string { return s.country }
