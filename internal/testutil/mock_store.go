// Package testutil provides a mock review store server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Platform keys understood by the mock.
const (
	AppStore  = "app_store"
	PlayStore = "play_store"
)

var feedPath = regexp.MustCompile(`^/([^/]+)/rss/customerreviews/id=([^/]+)/page=(\d+)/sortby=mostrecent/xml$`)

// MockResponse defines the behavior for one mocked page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Entry is one review rendered into a mocked page.
type Entry struct {
	Title     string
	Review    string
	Date      string
	Star      int
	Like      int
	VoteCount int
}

type pageKey struct {
	platform string
	appID    string
	page     int
}

// MockStore serves App Store RSS feeds and Play Store review pages.
// Unconfigured pages answer with a valid page without reviews.
type MockStore struct {
	server *httptest.Server

	mu        sync.RWMutex
	responses map[pageKey]MockResponse
	requests  map[pageKey]int
	total     int
	lastUA    string
}

// NewMockStore starts a mock store server.
func NewMockStore() *MockStore {
	m := &MockStore{
		responses: make(map[pageKey]MockResponse),
		requests:  make(map[pageKey]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the base URL to hand to the sources' WithBaseURL option.
func (m *MockStore) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockStore) Close() {
	m.server.Close()
}

// Reset clears request tracking.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[pageKey]int)
	m.total = 0
	m.lastUA = ""
}

// SetResponse configures the response for one page.
func (m *MockStore) SetResponse(platform, appID string, page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[pageKey{platform, appID, page}] = resp
}

// SetReviews serves entries on one page in the platform's wire format.
func (m *MockStore) SetReviews(platform, appID string, page int, entries ...Entry) {
	body := AppStoreFeed(entries...)
	if platform == PlayStore {
		body = PlayStorePayload(entries...)
	}
	m.SetResponse(platform, appID, page, MockResponse{StatusCode: http.StatusOK, Body: body})
}

// FailPage makes one page answer with status.
func (m *MockStore) FailPage(platform, appID string, page, status int) {
	m.SetResponse(platform, appID, page, MockResponse{
		StatusCode: status,
		Body:       http.StatusText(status),
	})
}

// RequestCount returns the total number of requests served.
func (m *MockStore) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// PageRequests returns how often one page was requested.
func (m *MockStore) PageRequests(platform, appID string, page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[pageKey{platform, appID, page}]
}

// AppRequests returns how many requests one application received.
func (m *MockStore) AppRequests(platform, appID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for k, v := range m.requests {
		if k.platform == platform && k.appID == appID {
			n += v
		}
	}
	return n
}

// LastUserAgent returns the User-Agent of the latest request.
func (m *MockStore) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUA
}

func (m *MockStore) serve(w http.ResponseWriter, r *http.Request) {
	key, ok := route(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	m.mu.Lock()
	m.total++
	m.requests[key]++
	m.lastUA = r.UserAgent()
	resp, configured := m.responses[key]
	m.mu.Unlock()

	if !configured {
		resp = MockResponse{StatusCode: http.StatusOK, Body: AppStoreFeed()}
		if key.platform == PlayStore {
			resp.Body = PlayStorePayload()
		}
	}

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentType(key.platform))
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

func route(r *http.Request) (pageKey, bool) {
	if m := feedPath.FindStringSubmatch(r.URL.Path); m != nil {
		page, err := strconv.Atoi(m[3])
		if err != nil {
			return pageKey{}, false
		}
		return pageKey{AppStore, m[2], page}, true
	}

	if r.URL.Path == "/store/getreviews" {
		q := r.URL.Query()
		page, err := strconv.Atoi(q.Get("pageNum"))
		if err != nil || q.Get("id") == "" {
			return pageKey{}, false
		}
		return pageKey{PlayStore, q.Get("id"), page}, true
	}

	return pageKey{}, false
}

func contentType(platform string) string {
	if platform == PlayStore {
		return "application/json; charset=utf-8"
	}
	return "application/atom+xml; charset=utf-8"
}

// AppStoreFeed renders entries as a customer reviews Atom feed.
func AppStoreFeed(entries ...Entry) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	sb.WriteString(`<feed xmlns:im="http://itunes.apple.com/rss" xmlns="http://www.w3.org/2005/Atom" xml:lang="en">` + "\n")
	sb.WriteString("  <title>iTunes Store: Customer Reviews</title>\n")
	sb.WriteString("  <updated>2025-06-22T11:36:11-07:00</updated>\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "  <entry>\n    <id>%d</id>\n", i+1)
		if e.Title != "" {
			fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(e.Title))
		}
		if e.Review != "" {
			fmt.Fprintf(&sb, "    <content type=\"text\">%s</content>\n", html.EscapeString(e.Review))
		}
		fmt.Fprintf(&sb, "    <im:voteSum>%d</im:voteSum>\n", e.Like)
		fmt.Fprintf(&sb, "    <im:voteCount>%d</im:voteCount>\n", e.VoteCount)
		fmt.Fprintf(&sb, "    <im:rating>%d</im:rating>\n", e.Star)
		if e.Date != "" {
			fmt.Fprintf(&sb, "    <updated>%s</updated>\n", html.EscapeString(e.Date))
		}
		sb.WriteString("  </entry>\n")
	}
	sb.WriteString("</feed>\n")
	return sb.String()
}

// PlayStorePayload renders entries as a getreviews response.
func PlayStorePayload(entries ...Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(`<div class="single-review"><div class="review-header">`)
		fmt.Fprintf(&sb, `<span class="review-date">%s</span>`, html.EscapeString(e.Date))
		fmt.Fprintf(&sb, `<div class="current-rating" style="width: %d%%;"></div>`, e.Star*20)
		fmt.Fprintf(&sb, `<div class="review-helpfulness" data-helpful-count="%d"></div>`, e.Like)
		sb.WriteString(`</div><div class="review-body">`)
		if e.Title != "" {
			fmt.Fprintf(&sb, `<span class="review-title">%s</span> `, html.EscapeString(e.Title))
		}
		sb.WriteString(html.EscapeString(e.Review))
		sb.WriteString(`<div class="review-link">Full Review</div></div></div>`)
	}

	payload, _ := json.Marshal([][]any{{"ecr", 1, sb.String(), 2}})
	return ")]}'\n" + string(payload)
}
