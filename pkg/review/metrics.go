package review

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsExtracted counts complete records produced by extractors.
	RecordsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_records_extracted_total",
		Help: "Total review records extracted by platform",
	}, []string{"platform"})

	// RecordsDropped counts source blocks dropped for missing title or review.
	RecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_records_dropped_total",
		Help: "Total incomplete review blocks dropped by platform",
	}, []string{"platform"})
)
