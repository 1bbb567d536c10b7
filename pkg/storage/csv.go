// Package storage persists extracted review records.
//
// Each application's records land in one file per crawl, at
// <root>/<platform>/<app_id>.csv, with a header row followed by one row
// per record in extraction order. An existing file is overwritten.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sternrassler/store-review-crawler/pkg/review"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// ErrPersist wraps every failure to write a record file.
var ErrPersist = errors.New("persist error")

var (
	rowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_storage_rows_written_total",
		Help: "Total review rows written by platform",
	}, []string{"platform"})

	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_storage_failures_total",
		Help: "Total failed persist calls by platform",
	}, []string{"platform"})
)

// Key identifies the destination of one application's records.
type Key struct {
	Platform string
	AppID    string
}

// Path returns <root>/<platform>/<app_id>.csv.
func (k Key) Path(root string) string {
	return filepath.Join(root, k.Platform, k.AppID+".csv")
}

func (k Key) validate() error {
	if k.Platform == "" || k.AppID == "" {
		return fmt.Errorf("incomplete key %+v", k)
	}
	if filepath.Base(k.AppID) != k.AppID || k.AppID == "." || k.AppID == ".." {
		return fmt.Errorf("app id %q is not a file name", k.AppID)
	}
	return nil
}

// Persister stores one application's records for one crawl.
type Persister interface {
	Persist(records []review.Record, key Key) error
}

// CSVWriter writes records as CSV files under Root.
type CSVWriter struct {
	Root string
}

// NewCSVWriter creates a writer rooted at root.
func NewCSVWriter(root string) *CSVWriter {
	return &CSVWriter{Root: root}
}

// Persist implements Persister. An empty record set still produces a
// header-only file.
func (w *CSVWriter) Persist(records []review.Record, key Key) error {
	if err := w.persist(records, key); err != nil {
		persistFailures.WithLabelValues(key.Platform).Inc()
		return fmt.Errorf("%w: %s/%s: %w", ErrPersist, key.Platform, key.AppID, err)
	}
	rowsWritten.WithLabelValues(key.Platform).Add(float64(len(records)))
	return nil
}

func (w *CSVWriter) persist(records []review.Record, key Key) (err error) {
	if err := key.validate(); err != nil {
		return err
	}

	path := key.Path(w.Root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close file: %w", cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(review.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	log.Debug().
		Str("component", "storage").
		Str("path", path).
		Int("records", len(records)).
		Msg("Records written")

	return nil
}
