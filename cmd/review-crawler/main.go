package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/store-review-crawler/pkg/appstore"
	"github.com/Sternrassler/store-review-crawler/pkg/cache"
	"github.com/Sternrassler/store-review-crawler/pkg/client"
	"github.com/Sternrassler/store-review-crawler/pkg/crawler"
	"github.com/Sternrassler/store-review-crawler/pkg/logging"
	"github.com/Sternrassler/store-review-crawler/pkg/metrics"
	"github.com/Sternrassler/store-review-crawler/pkg/pipeline"
	"github.com/Sternrassler/store-review-crawler/pkg/playstore"
	"github.com/Sternrassler/store-review-crawler/pkg/ratelimit"
	"github.com/Sternrassler/store-review-crawler/pkg/review"
	"github.com/Sternrassler/store-review-crawler/pkg/storage"
	"github.com/Sternrassler/store-review-crawler/pkg/target"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type settings struct {
	TargetsPath  string
	OutputPath   string
	LogLevel     logging.LogLevel
	LogPretty    bool
	UserAgent    string
	RequestDelay time.Duration
	RedisURL     string
	CacheTTL     time.Duration
	MetricsAddr  string
	AppStoreURL  string
	PlayStoreURL string
}

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(logging.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "review-crawler",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summaries, err := run(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Crawler failed")
	}

	for _, s := range summaries {
		log.Info().
			Str("platform", s.Platform).
			Int("succeeded", s.Succeeded).
			Int("failed", s.Failed).
			Int("records", s.Records).
			Dur("duration", s.Duration).
			Msg("Platform summary")
	}
}

func loadSettings() (settings, error) {
	cfg := settings{
		TargetsPath:  getEnv("TARGET_APPS_PATH", "target_apps.json"),
		OutputPath:   getEnv("OUTPUT_PATH", "output"),
		LogLevel:     logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
		UserAgent:    getEnv("USER_AGENT", client.DefaultUserAgent),
		RedisURL:     os.Getenv("REDIS_URL"),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
		AppStoreURL:  getEnv("APP_STORE_URL", appstore.DefaultBaseURL),
		PlayStoreURL: getEnv("PLAY_STORE_URL", playstore.DefaultBaseURL),
	}

	var err error
	if cfg.LogPretty, err = getBool("LOG_PRETTY", false); err != nil {
		return settings{}, err
	}
	if cfg.RequestDelay, err = getDuration("REQUEST_DELAY", ratelimit.DefaultInterval); err != nil {
		return settings{}, err
	}
	if cfg.CacheTTL, err = getDuration("PAGE_CACHE_TTL", cache.DefaultTTL); err != nil {
		return settings{}, err
	}

	return cfg, nil
}

// run loads the targets and crawls both platforms concurrently. Only a
// target configuration failure is returned as an error; failed
// applications are reported in the summaries.
func run(ctx context.Context, cfg settings) ([]pipeline.Summary, error) {
	targets, err := target.Load(cfg.TargetsPath)
	if err != nil {
		return nil, err
	}

	httpClient, err := client.New(client.DefaultConfig(cfg.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	var pageCache crawler.PageCache
	if cfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Page cache disabled")
		} else {
			defer rdb.Close()
			pageCache = cache.NewManager(rdb, cfg.CacheTTL)
			log.Info().Dur("ttl", cfg.CacheTTL).Msg("Page cache enabled")
		}
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Starting metrics server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	writer := storage.NewCSVWriter(cfg.OutputPath)

	appStoreSource := func(app target.App) crawler.PageSource {
		return appstore.NewSource(app, appstore.WithBaseURL(cfg.AppStoreURL))
	}
	playStoreSource := func(app target.App) crawler.PageSource {
		return playstore.NewSource(app, playstore.WithBaseURL(cfg.PlayStoreURL))
	}

	units := []*pipeline.Unit{
		pipeline.NewUnit(appstore.Platform, targets, newFetcher(httpClient, cfg, pageCache), appStoreSource,
			pipeline.NewProcessor[review.Record](appstore.NewExtractor(), writer)),
		pipeline.NewUnit(playstore.Platform, targets, newFetcher(httpClient, cfg, pageCache), playStoreSource,
			pipeline.NewProcessor[review.Record](playstore.NewExtractor(), writer)),
	}

	return pipeline.Run(ctx, units...), nil
}

// newFetcher builds the fetcher for one unit. Each unit gets its own delay
// limiter; the HTTP client and the page cache are shared.
func newFetcher(httpClient *client.Client, cfg settings, pageCache crawler.PageCache) *crawler.Fetcher {
	opts := []crawler.Option{
		crawler.WithLimiter(ratelimit.NewLimiter(cfg.RequestDelay)),
	}
	if pageCache != nil {
		opts = append(opts, crawler.WithCache(pageCache))
	}
	return crawler.NewFetcher(httpClient, opts...)
}

// connectRedis accepts a redis:// URL or a plain host:port address.
func connectRedis(ctx context.Context, raw string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(raw, "://") {
		parsed, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: raw}
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must be >= 0 (got %v)", key, d)
	}
	return d, nil
}
