// Package pipeline wires crawling, extraction and persistence together.
//
// A Unit owns one platform. It snapshots that platform's target list once,
// then crawls, extracts and persists each application in order. Run starts
// every unit in its own goroutine and returns when all of them finish.
//
// Failure scope:
//   - a request failure on any page discards the whole application
//   - a parse failure on any page discards the whole application
//   - a persistence failure is reported for that application only
//
// Sibling applications and the other platform always continue. Fetched pages
// reach the page cache only after the application was persisted.
//
// Example:
//
//	units := []*pipeline.Unit{
//	    pipeline.NewUnit(appstore.Platform, targets, appStoreFetcher, appStoreSource, appStoreProcessor),
//	    pipeline.NewUnit(playstore.Platform, targets, playStoreFetcher, playStoreSource, playStoreProcessor),
//	}
//	for _, s := range pipeline.Run(ctx, units...) {
//	    fmt.Println(s.Platform, s.Succeeded, s.Failed)
//	}
package pipeline
