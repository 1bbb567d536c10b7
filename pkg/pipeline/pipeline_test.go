package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/store-review-crawler/pkg/cache"
	"github.com/Sternrassler/store-review-crawler/pkg/crawler"
	"github.com/Sternrassler/store-review-crawler/pkg/ratelimit"
	"github.com/Sternrassler/store-review-crawler/pkg/review"
	"github.com/Sternrassler/store-review-crawler/pkg/storage"
	"github.com/Sternrassler/store-review-crawler/pkg/target"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var cmpIgnoreDuration = cmpopts.IgnoreFields(Summary{}, "Duration")

// pagedSource serves pages 1..last for one app.
type pagedSource struct {
	appID string
	page  uint32
	last  uint32
}

func (s *pagedSource) BuildRequest(ctx context.Context, page uint32) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://store.test/%s/%d", s.appID, page), nil)
}
func (s *pagedSource) HasMorePages() bool  { return s.page <= s.last }
func (s *pagedSource) IncrementPage()      { s.page++ }
func (s *pagedSource) CurrentPage() uint32 { return s.page }
func (s *pagedSource) Platform() string    { return "test_store" }
func (s *pagedSource) AppID() string       { return s.appID }
func (s *pagedSource) Country() string     { return "us" }

func tenPages(app target.App) crawler.PageSource {
	return &pagedSource{appID: app.AppID, page: 1, last: 10}
}

// storeDoer answers "<app>/<page>", fails the paths in fail and answers
// the paths in corrupt with an unparseable body.
type storeDoer struct {
	mu      sync.Mutex
	fail    map[string]bool
	corrupt map[string]bool
	calls   int
}

func (d *storeDoer) Fetch(req *http.Request) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	path := strings.TrimPrefix(req.URL.Path, "/")
	if d.fail[path] {
		return nil, errors.New("connection reset")
	}
	if d.corrupt[path] {
		return []byte(path + "/bad"), nil
	}
	return []byte(path), nil
}

func (d *storeDoer) setCorrupt(paths map[string]bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.corrupt = paths
}

func (d *storeDoer) requests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// pageCache is an in-memory crawler.PageCache.
type pageCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newPageCache() *pageCache {
	return &pageCache{entries: make(map[string][]byte)}
}

func (c *pageCache) Get(ctx context.Context, key cache.CacheKey) (*cache.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key.String()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &cache.CacheEntry{Data: data}, nil
}

func (c *pageCache) Put(ctx context.Context, key cache.CacheKey, data []byte, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = data
	return nil
}

func (c *pageCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// titleExtractor yields one record per page titled with the page body.
// A body ending in "/bad" is a parse error.
type titleExtractor struct{}

func (titleExtractor) Extract(raw []byte) ([]review.Record, error) {
	if strings.HasSuffix(string(raw), "/bad") {
		return nil, crawler.NewParseError("extract", errors.New("unexpected token"))
	}
	return []review.Record{{Title: string(raw), Review: "r"}}, nil
}

type memorySink struct {
	mu    sync.Mutex
	calls map[storage.Key]int
	saved map[storage.Key][]review.Record
	err   error
}

func newMemorySink() *memorySink {
	return &memorySink{
		calls: make(map[storage.Key]int),
		saved: make(map[storage.Key][]review.Record),
	}
}

func (s *memorySink) Persist(records []review.Record, key storage.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[key]++
	if s.err != nil {
		return s.err
	}
	s.saved[key] = append([]review.Record(nil), records...)
	return nil
}

func TestProcessor_PersistsOnce(t *testing.T) {
	sink := newMemorySink()
	p := NewProcessor[review.Record](titleExtractor{}, sink)
	key := storage.Key{Platform: "app_store", AppID: "1"}

	n, err := p.Process([][]byte{[]byte("1/1"), []byte("1/2"), []byte("1/3")}, key)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if n != 3 {
		t.Errorf("records = %d, want 3", n)
	}
	if sink.calls[key] != 1 {
		t.Errorf("Persist calls = %d, want 1", sink.calls[key])
	}

	var titles []string
	for _, r := range sink.saved[key] {
		titles = append(titles, r.Title)
	}
	if diff := cmp.Diff([]string{"1/1", "1/2", "1/3"}, titles); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessor_ParseErrorAborts(t *testing.T) {
	sink := newMemorySink()
	p := NewProcessor[review.Record](titleExtractor{}, sink)
	key := storage.Key{Platform: "app_store", AppID: "1"}

	_, err := p.Process([][]byte{[]byte("1/1"), []byte("1/bad"), []byte("1/3")}, key)
	if !errors.Is(err, crawler.ErrParse) {
		t.Fatalf("Process() error = %v, want parse error", err)
	}
	if sink.calls[key] != 0 {
		t.Errorf("Persist calls = %d, want 0", sink.calls[key])
	}
}

func TestProcessor_NoPages(t *testing.T) {
	sink := newMemorySink()
	key := storage.Key{Platform: "play_store", AppID: "a"}

	n, err := NewProcessor[review.Record](titleExtractor{}, sink).Process(nil, key)
	if err != nil || n != 0 {
		t.Fatalf("Process() = %d, %v", n, err)
	}
	if sink.calls[key] != 1 {
		t.Errorf("Persist calls = %d, want 1", sink.calls[key])
	}
}

func TestProcessor_SinkError(t *testing.T) {
	sink := newMemorySink()
	sink.err = fmt.Errorf("%w: disk full", storage.ErrPersist)

	_, err := NewProcessor[review.Record](titleExtractor{}, sink).
		Process([][]byte{[]byte("1/1")}, storage.Key{Platform: "app_store", AppID: "1"})
	if !errors.Is(err, storage.ErrPersist) {
		t.Errorf("Process() error = %v, want ErrPersist", err)
	}
}

func TestUnit_FailureIsolation(t *testing.T) {
	targets := target.New([]target.App{
		{AppID: "broken", Country: "us"},
		{AppID: "healthy", Country: "us"},
	}, nil)

	doer := &storeDoer{fail: map[string]bool{"broken/3": true}}
	sink := newMemorySink()
	unit := NewUnit(target.KeyAppStore, targets, crawler.NewFetcher(doer), tenPages,
		NewProcessor[review.Record](titleExtractor{}, sink))

	summary := unit.Run(context.Background())

	want := Summary{Platform: target.KeyAppStore, Succeeded: 1, Failed: 1, Records: 10}
	if diff := cmp.Diff(want, summary, cmpIgnoreDuration); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}

	broken := storage.Key{Platform: target.KeyAppStore, AppID: "broken"}
	if sink.calls[broken] != 0 {
		t.Errorf("broken app persisted %d times, want 0", sink.calls[broken])
	}

	healthy := storage.Key{Platform: target.KeyAppStore, AppID: "healthy"}
	if got := len(sink.saved[healthy]); got != 10 {
		t.Errorf("healthy app records = %d, want 10", got)
	}

	// 3 requests for the broken app, 10 for the healthy one.
	if doer.calls != 13 {
		t.Errorf("requests = %d, want 13", doer.calls)
	}
}

func TestUnit_ParseFailure(t *testing.T) {
	targets := target.New(nil, []target.App{{AppID: "x", Country: "us"}})

	badPage := func(app target.App) crawler.PageSource {
		return &badLastSource{pagedSource{appID: app.AppID, page: 1, last: 2}}
	}

	sink := newMemorySink()
	unit := NewUnit(target.KeyPlayStore, targets, crawler.NewFetcher(&storeDoer{}), badPage,
		NewProcessor[review.Record](titleExtractor{}, sink))

	summary := unit.Run(context.Background())
	if summary.Failed != 1 || summary.Succeeded != 0 {
		t.Errorf("Summary = %+v, want one failure", summary)
	}
	if len(sink.calls) != 0 {
		t.Errorf("Persist called %d times, want 0", len(sink.calls))
	}
}

// badLastSource serves "bad" as its final page path.
type badLastSource struct{ pagedSource }

func (s *badLastSource) BuildRequest(ctx context.Context, page uint32) (*http.Request, error) {
	if page == s.last {
		return http.NewRequestWithContext(ctx, http.MethodGet, "http://store.test/"+s.appID+"/bad", nil)
	}
	return s.pagedSource.BuildRequest(ctx, page)
}

func TestUnit_NoApps(t *testing.T) {
	unit := NewUnit(target.KeyPlayStore, target.New(nil, nil), crawler.NewFetcher(&storeDoer{}), tenPages,
		NewProcessor[review.Record](titleExtractor{}, newMemorySink()))

	summary := unit.Run(context.Background())
	if summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("Summary = %+v, want empty", summary)
	}
}

func TestRun_PlatformsIndependent(t *testing.T) {
	targets := target.New(
		[]target.App{{AppID: "ios-a", Country: "us"}, {AppID: "ios-b", Country: "us"}},
		[]target.App{{AppID: "android-a", Country: "us"}},
	)

	doer := &storeDoer{fail: map[string]bool{"ios-a/1": true}}
	sink := newMemorySink()
	processor := NewProcessor[review.Record](titleExtractor{}, sink)

	summaries := Run(context.Background(),
		NewUnit(target.KeyAppStore, targets, crawler.NewFetcher(doer), tenPages, processor),
		NewUnit(target.KeyPlayStore, targets, crawler.NewFetcher(doer), tenPages, processor),
	)

	want := []Summary{
		{Platform: target.KeyAppStore, Succeeded: 1, Failed: 1, Records: 10},
		{Platform: target.KeyPlayStore, Succeeded: 1, Records: 10},
	}
	if diff := cmp.Diff(want, summaries, cmpIgnoreDuration); diff != "" {
		t.Errorf("Summaries mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	targets := target.New([]target.App{{AppID: "a", Country: "us"}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doer := &storeDoer{}
	sink := newMemorySink()
	summaries := Run(ctx, NewUnit(target.KeyAppStore, targets, crawler.NewFetcher(doer), tenPages,
		NewProcessor[review.Record](titleExtractor{}, sink)))

	if summaries[0].Failed != 1 {
		t.Errorf("Summary = %+v, want one failure", summaries[0])
	}
	if doer.calls != 0 {
		t.Errorf("requests = %d, want 0", doer.calls)
	}
}

func TestRun_NoUnits(t *testing.T) {
	if got := Run(context.Background()); len(got) != 0 {
		t.Errorf("Run() = %+v, want empty", got)
	}
}

func TestUnit_UnprocessablePagesNotCached(t *testing.T) {
	targets := target.New([]target.App{{AppID: "a", Country: "us"}}, nil)
	doer := &storeDoer{corrupt: map[string]bool{"a/4": true}}
	pc := newPageCache()
	sink := newMemorySink()

	unit := NewUnit(target.KeyAppStore, targets, crawler.NewFetcher(doer, crawler.WithCache(pc)), tenPages,
		NewProcessor[review.Record](titleExtractor{}, sink))

	first := unit.Run(context.Background())
	if first.Failed != 1 {
		t.Fatalf("first Summary = %+v, want one failure", first)
	}
	if pc.len() != 0 {
		t.Errorf("failed application cached %d pages, want 0", pc.len())
	}

	// Upstream recovers: the next run must reach the network again.
	doer.setCorrupt(nil)
	second := unit.Run(context.Background())
	if second.Succeeded != 1 || second.Records != 10 {
		t.Errorf("second Summary = %+v, want one success with 10 records", second)
	}
	if got := doer.requests(); got != 20 {
		t.Errorf("requests = %d, want 20", got)
	}
	if pc.len() != 10 {
		t.Errorf("cached pages = %d, want 10 after success", pc.len())
	}

	// Fully cached: a third run makes no requests.
	third := unit.Run(context.Background())
	if third.Succeeded != 1 || doer.requests() != 20 {
		t.Errorf("third Summary = %+v with %d requests, want cache-only success", third, doer.requests())
	}
}

func TestRun_SeparateFetchersDoNotThrottleEachOther(t *testing.T) {
	targets := target.New(
		[]target.App{{AppID: "ios", Country: "us"}},
		[]target.App{{AppID: "android", Country: "us"}},
	)
	doer := &storeDoer{}
	processor := NewProcessor[review.Record](titleExtractor{}, newMemorySink())
	newFetcher := func() *crawler.Fetcher {
		return crawler.NewFetcher(doer, crawler.WithLimiter(ratelimit.NewLimiter(50*time.Millisecond)))
	}

	start := time.Now()
	summaries := Run(context.Background(),
		NewUnit(target.KeyAppStore, targets, newFetcher(), tenPages, processor),
		NewUnit(target.KeyPlayStore, targets, newFetcher(), tenPages, processor),
	)
	elapsed := time.Since(start)

	for _, s := range summaries {
		if s.Succeeded != 1 {
			t.Errorf("%s Summary = %+v, want one success", s.Platform, s)
		}
	}
	// One unit alone needs 9 delays (~450ms); a shared limiter would need ~950ms.
	if elapsed > 800*time.Millisecond {
		t.Errorf("two units took %v, want them to run in parallel (< 800ms)", elapsed)
	}
}
