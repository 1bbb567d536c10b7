// Package crawler walks a paginated review feed for one application.
//
// A Fetcher drives a PageSource page by page until the source reports
// exhaustion and returns the raw bodies in request order:
//
//	src := appstore.NewSource(app)
//	fetcher := crawler.NewFetcher(httpClient,
//		crawler.WithLimiter(ratelimit.NewLimiter(ratelimit.DefaultInterval)),
//	)
//	pages, err := fetcher.Run(ctx, src)
//
// Properties of a run:
//   - pages are requested strictly sequentially, one request per page
//   - the page bound is fixed per platform and never derived from content
//   - a request is never retried
//   - the first failure aborts the run and discards every fetched page
//
// With a page cache configured, Fetch stages network pages in a Batch and
// writes them only on Batch.Commit, so pages a caller could not process never
// reach the cache. Sources that do not implement Describer bypass the cache.
//
// Failures are reported as *Error values whose Kind separates config load,
// request and parse failures.
package crawler
