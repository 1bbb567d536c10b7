// Package cache provides a Redis-backed cache for raw review pages.
//
// Crawling the same application twice within the TTL serves the pages from
// Redis instead of the store, which keeps repeated runs cheap and avoids
// tripping store-side throttling. The cache never changes which pages a
// crawl visits: pagination stays content-independent.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, time.Hour)
//
//	key := cache.CacheKey{
//		Platform: "app_store",
//		Country:  "us",
//		AppID:    "1194408342",
//		Page:     3,
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the store, then:
//		_ = manager.Put(ctx, key, body, req.URL.String())
//	}
//
// # Metrics
//
//   - review_cache_hits_total{layer="redis"} - Cache hits
//   - review_cache_misses_total - Cache misses
//   - review_cache_size_bytes{layer="redis"} - Bytes written
//   - review_cache_errors_total{operation} - Cache operation errors
package cache
