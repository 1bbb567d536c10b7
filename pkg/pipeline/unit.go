package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/store-review-crawler/pkg/crawler"
	"github.com/Sternrassler/store-review-crawler/pkg/logging"
	"github.com/Sternrassler/store-review-crawler/pkg/storage"
	"github.com/Sternrassler/store-review-crawler/pkg/target"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	appsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_crawler_apps_total",
		Help: "Total applications processed by platform and result (success, failure)",
	}, []string{"platform", "result"})

	unitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_crawler_unit_duration_seconds",
		Help:    "Duration of one platform unit",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"platform"})
)

// Crawler walks a page source to exhaustion. *crawler.Fetcher implements it.
// The returned batch is committed to the page cache only after its pages
// were processed and persisted.
type Crawler interface {
	Fetch(ctx context.Context, src crawler.PageSource) (*crawler.Batch, error)
}

// PageProcessor turns one application's pages into persisted records.
// *Processor[R] implements it.
type PageProcessor interface {
	Process(pages [][]byte, key storage.Key) (int, error)
}

// SourceFactory creates a fresh page source for one target application.
type SourceFactory func(app target.App) crawler.PageSource

// Summary reports the outcome of one unit.
type Summary struct {
	Platform  string
	Succeeded int
	Failed    int
	Records   int
	Duration  time.Duration
}

// Unit processes every configured application of one platform.
type Unit struct {
	platform  string
	targets   *target.Targets
	crawler   Crawler
	newSource SourceFactory
	processor PageProcessor
	logger    zerolog.Logger
}

// NewUnit creates the unit for platform. The platform name is also the
// key of its application list in targets. Units running concurrently should
// not share a Crawler, since a *crawler.Fetcher carries its own limiter.
func NewUnit(platform string, targets *target.Targets, c Crawler, newSource SourceFactory, processor PageProcessor) *Unit {
	return &Unit{
		platform:  platform,
		targets:   targets,
		crawler:   c,
		newSource: newSource,
		processor: processor,
		logger:    logging.NewLogger("pipeline").With().Str("platform", platform).Logger(),
	}
}

// Platform returns the platform this unit serves.
func (u *Unit) Platform() string { return u.platform }

// Run processes the unit's applications sequentially.
func (u *Unit) Run(ctx context.Context) Summary {
	start := time.Now()
	apps := u.targets.Apps(u.platform)
	summary := Summary{Platform: u.platform}

	u.logger.Info().Int("apps", len(apps)).Msg("Unit started")

	for _, app := range apps {
		n, err := u.processApp(ctx, app)
		if err != nil {
			summary.Failed++
			appsTotal.WithLabelValues(u.platform, "failure").Inc()
			u.logger.Error().
				Err(err).
				Str("app_id", app.AppID).
				Str("country", app.Country).
				Str("error_kind", string(crawler.KindOf(err))).
				Msg("Application failed")
			continue
		}
		summary.Succeeded++
		summary.Records += n
		appsTotal.WithLabelValues(u.platform, "success").Inc()
	}

	summary.Duration = time.Since(start)
	unitDuration.WithLabelValues(u.platform).Observe(summary.Duration.Seconds())

	u.logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("records", summary.Records).
		Dur("duration", summary.Duration).
		Msg("Unit finished")

	return summary
}

func (u *Unit) processApp(ctx context.Context, app target.App) (int, error) {
	batch, err := u.crawler.Fetch(ctx, u.newSource(app))
	if err != nil {
		return 0, err
	}
	pages := batch.Pages

	n, err := u.processor.Process(pages, storage.Key{Platform: u.platform, AppID: app.AppID})
	if err != nil {
		return 0, err
	}
	batch.Commit(ctx)

	u.logger.Info().
		Str("app_id", app.AppID).
		Int("pages", len(pages)).
		Int("records", n).
		Msg("Application completed")

	return n, nil
}

// Run starts each unit in its own goroutine and blocks until all have
// finished. Summaries are returned in argument order.
func Run(ctx context.Context, units ...*Unit) []Summary {
	summaries := make([]Summary, len(units))

	var wg sync.WaitGroup
	for i, u := range units {
		wg.Add(1)
		go func(i int, u *Unit) {
			defer wg.Done()
			summaries[i] = u.Run(ctx)
		}(i, u)
	}
	wg.Wait()

	return summaries
}
