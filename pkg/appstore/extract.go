package appstore

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/Sternrassler/store-review-crawler/pkg/crawler"
	"github.com/Sternrassler/store-review-crawler/pkg/review"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Namespaces used by the customer reviews feed.
const (
	atomNS   = "http://www.w3.org/2005/Atom"
	itunesNS = "http://itunes.apple.com/rss"
)

// Extractor parses one customer reviews Atom page in a single forward pass
// over the token stream. The zero value is not usable; call NewExtractor.
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor creates an App Store extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		logger: log.With().Str("component", "appstore-extractor").Logger(),
	}
}

// entryState is the accumulator for the <entry> the cursor is inside.
type entryState struct {
	inEntry   bool
	record    review.Record
	voteCount int
}

func (s *entryState) reset() {
	*s = entryState{inEntry: true}
}

// finish derives the dislike count and reports whether the record is kept.
func (s *entryState) finish() (review.Record, bool) {
	r := s.record
	r.Dislike = s.voteCount - r.Like
	if r.Dislike < 0 {
		r.Dislike = 0
	}
	return r, r.Complete()
}

// Extract implements review.Extractor.
//
// Records are returned in the order their </entry> tags appear. Entries
// without a title or a type="text" content are dropped. A malformed
// document yields a parse error; input without any markup yields an empty
// result.
func (e *Extractor) Extract(raw []byte) ([]review.Record, error) {
	e.logger.Debug().Int("bytes", len(raw)).Msg("Starting feed parse")

	records := make([]review.Record, 0)
	if !bytes.ContainsRune(raw, '<') {
		return records, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	var state entryState

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.logger.Error().Err(err).Msg("Feed parse error")
			return nil, crawler.NewParseError("decode app store feed", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if isAtom(t.Name, "entry") {
				state.reset()
				continue
			}
			if !state.inEntry {
				continue
			}
			if err := e.readField(dec, t, &state); err != nil {
				e.logger.Error().Err(err).Str("element", t.Name.Local).Msg("Feed parse error")
				return nil, crawler.NewParseError("read <"+t.Name.Local+">", err)
			}

		case xml.EndElement:
			if !isAtom(t.Name, "entry") || !state.inEntry {
				continue
			}
			record, ok := state.finish()
			if ok {
				records = append(records, record)
			} else {
				review.RecordsDropped.WithLabelValues(Platform).Inc()
				e.logger.Debug().
					Bool("has_title", record.Title != "").
					Bool("has_review", record.Review != "").
					Msg("Skipped incomplete entry")
			}
			state = entryState{}
		}
	}

	review.RecordsExtracted.WithLabelValues(Platform).Add(float64(len(records)))
	e.logger.Debug().Int("reviews", len(records)).Msg("Feed parse completed")

	return records, nil
}

// readField copies the text of a recognized entry child into the state.
// Unrecognized elements are left for the main loop to walk through.
func (e *Extractor) readField(dec *xml.Decoder, start xml.StartElement, state *entryState) error {
	switch {
	case isAtom(start.Name, "title"):
		text, err := readText(dec)
		state.record.Title = text
		return err

	case isAtom(start.Name, "content"):
		if !hasTextType(start) {
			return nil
		}
		text, err := readText(dec)
		state.record.Review = text
		return err

	case isAtom(start.Name, "updated"):
		text, err := readText(dec)
		state.record.Date = text
		return err

	case isITunes(start.Name, "rating"):
		text, err := readText(dec)
		state.record.Star = review.ParseCount(text)
		return err

	case isITunes(start.Name, "voteSum"):
		text, err := readText(dec)
		state.record.Like = review.ParseCount(text)
		return err

	case isITunes(start.Name, "voteCount"):
		text, err := readText(dec)
		state.voteCount = review.ParseCount(text)
		return err
	}
	return nil
}

// readText consumes tokens up to the end of the element just opened and
// returns its trimmed character data, nested elements included.
func readText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func hasTextType(start xml.StartElement) bool {
	for _, attr := range start.Attr {
		if attr.Name.Space == "" && attr.Name.Local == "type" && attr.Value == "text" {
			return true
		}
	}
	return false
}

// isAtom matches an Atom element, declared through the default namespace
// or left unqualified.
func isAtom(name xml.Name, local string) bool {
	return name.Local == local && (name.Space == "" || name.Space == atomNS)
}

// isITunes matches an element in the iTunes namespace. Undeclared prefixes
// are kept verbatim by the decoder, so the literal "im" prefix matches too.
func isITunes(name xml.Name, local string) bool {
	return name.Local == local && (name.Space == itunesNS || name.Space == "im")
}
