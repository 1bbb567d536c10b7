// Package playstore crawls and parses Google Play review pages.
package playstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/store-review-crawler/pkg/target"
)

const (
	// Platform is the output namespace and metrics label for Google Play.
	Platform = "play_store"

	// MaxPages is the last page requested (inclusive).
	MaxPages = 100

	// DefaultBaseURL is the Play Store host.
	DefaultBaseURL = "https://play.google.com"
)

// Source is the Play Store page source for one application. Pages are
// zero-based.
type Source struct {
	appID   string
	country string
	page    uint32
	baseURL string
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL points the source at another host.
func WithBaseURL(baseURL string) Option {
	return func(s *Source) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// NewSource creates a source starting at app.Pages.
func NewSource(app target.App, opts ...Option) *Source {
	s := &Source{
		appID:   app.AppID,
		country: app.Country,
		page:    app.Pages,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildRequest returns
// GET {base}/store/getreviews?hl={country}&gl={country}&reviewType=0&reviewSortOrder=4&pageNum={page}&id={app_id}
func (s *Source) BuildRequest(ctx context.Context, page uint32) (*http.Request, error) {
	country := url.QueryEscape(s.country)
	u := fmt.Sprintf("%s/store/getreviews?hl=%s&gl=%s&reviewType=0&reviewSortOrder=4&pageNum=%d&id=%s",
		s.baseURL, country, country, page, url.QueryEscape(s.appID))
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
