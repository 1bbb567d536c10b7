package playstore

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/store-review-crawler/pkg/crawler"
	"github.com/Sternrassler/store-review-crawler/pkg/review"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// xssiPrefix guards the getreviews JSON payload.
const xssiPrefix = ")]}'"

var (
	widthPattern = regexp.MustCompile(`width:\s*(\d+(?:\.\d+)?)%`)
	digitPattern = regexp.MustCompile(`\d+`)
)

// Extractor parses one getreviews response. The payload is a JSON array
// whose first row carries the rendered review list as an HTML fragment:
//
//	)]}'
//	[["ecr",1,"<div class=\"single-review\">...</div>",2]]
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor creates a Play Store extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		logger: log.With().Str("component", "playstore-extractor").Logger(),
	}
}

// Extract implements review.Extractor.
func (e *Extractor) Extract(raw []byte) ([]review.Record, error) {
	records := make([]review.Record, 0)

	body := bytes.TrimSpace(raw)
	body = bytes.TrimSpace(bytes.TrimPrefix(body, []byte(xssiPrefix)))
	if len(body) == 0 {
		return records, nil
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		e.logger.Error().Err(err).Int("bytes", len(raw)).Msg("Payload decode error")
		return nil, crawler.NewParseError("decode play store payload", err)
	}

	fragment, ok := htmlFragment(rows)
	if !ok {
		e.logger.Debug().Msg("Payload has no review fragment")
		return records, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, crawler.NewParseError("parse play store fragment", err)
	}

	doc.Find("div.single-review").Each(func(_ int, s *goquery.Selection) {
		r := parseReview(s)
		if !r.Complete() {
			review.RecordsDropped.WithLabelValues(Platform).Inc()
			e.logger.Debug().
				Bool("has_title", r.Title != "").
				Bool("has_review", r.Review != "").
				Msg("Skipped incomplete review")
			return
		}
		records = append(records, r)
	})

	review.RecordsExtracted.WithLabelValues(Platform).Add(float64(len(records)))
	e.logger.Debug().Int("reviews", len(records)).Msg("Fragment parse completed")

	return records, nil
}

// htmlFragment returns the string in the third slot of the first row.
func htmlFragment(rows [][]json.RawMessage) (string, bool) {
	if len(rows) == 0 || len(rows[0]) < 3 {
		return "", false
	}
	var fragment string
	if err := json.Unmarshal(rows[0][2], &fragment); err != nil {
		return "", false
	}
	return fragment, strings.TrimSpace(fragment) != ""
}

func parseReview(s *goquery.Selection) review.Record {
	title := strings.TrimSpace(s.Find("span.review-title").First().Text())

	body := s.Find("div.review-body").First().Clone()
	body.Find("span.review-title, div.review-link").Remove()

	return review.Record{
		Date:   strings.TrimSpace(s.Find("span.review-date").First().Text()),
		Star:   starRating(s.Find("div.current-rating").First()),
		Like:   helpfulCount(s.Find("div.review-helpfulness").First()),
		Title:  title,
		Review: strings.Join(strings.Fields(body.Text()), " "),
	}
}

// starRating converts the rendered bar width (20% per star) to 0..5.
func starRating(s *goquery.Selection) int {
	style, ok := s.Attr("style")
	if !ok {
		return 0
	}
	m := widthPattern.FindStringSubmatch(style)
	if m == nil {
		return 0
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	stars := int(pct/20 + 0.5)
	if stars < 0 || stars > 5 {
		return 0
	}
	return stars
}

func helpfulCount(s *goquery.Selection) int {
	if v, ok := s.Attr("data-helpful-count"); ok {
		return review.ParseCount(strings.TrimSpace(v))
	}
	return review.ParseCount(digitPattern.FindString(s.Text()))
}
