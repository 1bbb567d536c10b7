package pipeline

import (
	"fmt"

	"github.com/Sternrassler/store-review-crawler/pkg/review"
	"github.com/Sternrassler/store-review-crawler/pkg/storage"
)

// Sink receives one application's records. storage.Persister satisfies
// Sink[review.Record].
type Sink[R any] interface {
	Persist(records []R, key storage.Key) error
}

// Processor extracts records from fetched pages and hands the combined
// result to its sink.
type Processor[R any] struct {
	extractor review.Extractor[R]
	sink      Sink[R]
}

// NewProcessor creates a processor.
func NewProcessor[R any](extractor review.Extractor[R], sink Sink[R]) *Processor[R] {
	return &Processor[R]{extractor: extractor, sink: sink}
}

// Process extracts every page in order and persists the concatenation with
// a single sink call. The first extraction error aborts before anything is
// persisted. It returns the number of records persisted.
func (p *Processor[R]) Process(pages [][]byte, key storage.Key) (int, error) {
	var all []R
	for i, page := range pages {
		records, err := p.extractor.Extract(page)
		if err != nil {
			return 0, fmt.Errorf("page %d of %d: %w", i+1, len(pages), err)
		}
		all = append(all, records...)
	}

	if err := p.sink.Persist(all, key); err != nil {
		return 0, err
	}
	return len(all), nil
}
