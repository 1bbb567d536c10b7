package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/store-review-crawler/pkg/cache"
	"github.com/Sternrassler/store-review-crawler/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	reviewPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_crawler_pages_fetched_total",
		Help: "Total review pages fetched by platform and source (network, cache)",
	}, []string{"platform", "source"})

	reviewCrawlDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_crawler_crawl_duration_seconds",
		Help:    "Duration of one application's pagination run",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"platform"})

	reviewCrawlFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_crawler_crawl_failures_total",
		Help: "Total pagination runs aborted by a request failure",
	}, []string{"platform"})
)

// Doer sends one request and returns its body. *client.Client implements it.
type Doer interface {
	Fetch(req *http.Request) ([]byte, error)
}

// PageCache is the optional raw page cache. *cache.Manager implements it.
type PageCache interface {
	Get(ctx context.Context, key cache.CacheKey) (*cache.CacheEntry, error)
	Put(ctx context.Context, key cache.CacheKey, data []byte, url string) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLimiter sets the advisory inter-request delay.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithCache enables the raw page cache.
func WithCache(c PageCache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// Fetcher retrieves every page of a paginated feed. Runs on one Fetcher share
// its limiter, so concurrent crawls that must not slow each other need
// separate Fetchers.
type Fetcher struct {
	doer    Doer
	limiter *ratelimit.Limiter
	cache   PageCache
	logger  zerolog.Logger
}

// NewFetcher creates a fetcher sending requests through doer.
func NewFetcher(doer Doer, opts ...Option) *Fetcher {
	f := &Fetcher{
		doer:   doer,
		logger: log.With().Str("component", "fetcher").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Batch holds the pages of one completed crawl. Pages fetched from the
// network are written to the page cache only when Commit is called, so a
// caller can keep pages it failed to process out of the cache.
type Batch struct {
	Pages [][]byte

	cache   PageCache
	pending []pendingPage
	logger  zerolog.Logger
}

type pendingPage struct {
	key  cache.CacheKey
	data []byte
	url  string
}

// Commit stores the batch's network pages in the page cache. Cache errors
// are logged and skipped. Commit on a nil Batch or without a cache is a no-op.
func (b *Batch) Commit(ctx context.Context) {
	if b == nil || b.cache == nil {
		return
	}
	for _, p := range b.pending {
		if err := b.cache.Put(ctx, p.key, p.data, p.url); err != nil {
			b.logger.Warn().Err(err).Str("key", p.key.String()).Msg("Failed to cache page")
		}
	}
	b.pending = nil
}

// Run walks src until it reports no more pages and returns the bodies in
// request order. The first failure aborts the run: the error is a request
// error and no pages are returned. Fetched pages are cached immediately;
// use Fetch to defer caching until the pages are known to be usable.
func (f *Fetcher) Run(ctx context.Context, src PageSource) ([][]byte, error) {
	batch, err := f.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	batch.Commit(ctx)
	return batch.Pages, nil
}

// Fetch is Run without the cache writes. Call Commit on the returned batch
// to store its network pages.
func (f *Fetcher) Fetch(ctx context.Context, src PageSource) (*Batch, error) {
	desc := describe(src)
	logger := f.logger.With().
		Str("platform", desc.platform).
		Str("app_id", desc.appID).
		Str("country", desc.country).
		Logger()

	start := time.Now()
	defer func() {
		reviewCrawlDuration.WithLabelValues(desc.platform).Observe(time.Since(start).Seconds())
	}()

	pageCache := f.cache
	if !desc.cacheable {
		pageCache = nil
	}
	batch := &Batch{cache: pageCache, logger: logger}

	for src.HasMorePages() {
		page := src.CurrentPage()
		logger.Debug().Uint32("page", page).Msg("Crawling page")

		data, pending, err := f.fetchPage(ctx, src, desc, pageCache, page)
		if err != nil {
			reviewCrawlFailuresTotal.WithLabelValues(desc.platform).Inc()
			logger.Warn().
				Err(err).
				Uint32("page", page).
				Int("discarded_pages", len(batch.Pages)).
				Msg("Page fetch failed - aborting crawl")
			return nil, err
		}

		batch.Pages = append(batch.Pages, data)
		if pending != nil {
			batch.pending = append(batch.pending, *pending)
		}
		src.IncrementPage()
	}

	logger.Info().
		Int("pages", len(batch.Pages)).
		Dur("duration", time.Since(start)).
		Msg("Crawl complete")

	return batch, nil
}

// fetchPage returns the page body and, for network pages with a cache
// configured, the cache write to stage.
func (f *Fetcher) fetchPage(ctx context.Context, src PageSource, desc description, pageCache PageCache, page uint32) ([]byte, *pendingPage, error) {
	op := fmt.Sprintf("fetch %s app %s page %d", desc.platform, desc.appID, page)

	if err := ctx.Err(); err != nil {
		return nil, nil, NewRequestError(op, err)
	}

	key := cache.CacheKey{
		Platform: desc.platform,
		Country:  desc.country,
		AppID:    desc.appID,
		Page:     page,
	}

	if pageCache != nil {
		entry, err := pageCache.Get(ctx, key)
		switch {
		case err == nil:
			reviewPagesFetchedTotal.WithLabelValues(desc.platform, "cache").Inc()
			f.logger.Debug().Str("key", key.String()).Msg("Page served from cache")
			return entry.Data, nil, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			f.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, nil, NewRequestError(op, err)
	}

	req, err := src.BuildRequest(ctx, page)
	if err != nil {
		return nil, nil, NewRequestError(op, fmt.Errorf("build request: %w", err))
	}

	data, err := f.doer.Fetch(req)
	if err != nil {
		return nil, nil, NewRequestError(op, err)
	}
	reviewPagesFetchedTotal.WithLabelValues(desc.platform, "network").Inc()

	if pageCache == nil {
		return data, nil, nil
	}
	return data, &pendingPage{key: key, data: data, url: req.URL.String()}, nil
}
