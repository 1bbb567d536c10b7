// Package review defines the platform-normalized review record and the
// extraction contract every store parser implements.
package review

import "strconv"

// Record is one review as written to the output file.
type Record struct {
	Date    string `json:"date"`
	Star    int    `json:"star"`
	Like    int    `json:"like"`
	Dislike int    `json:"dislike"`
	Title   string `json:"title"`
	Review  string `json:"review"`
}

// Header is the CSV column order for Record.
var Header = []string{"date", "star", "like", "dislike", "title", "review"}

// Complete reports whether the record carries both required text fields.
// Incomplete records are dropped by extractors, never reported as errors.
func (r Record) Complete() bool {
	return r.Title != "" && r.Review != ""
}

// Row returns the record's fields in Header order.
func (r Record) Row() []string {
	return []string{
		r.Date,
		strconv.Itoa(r.Star),
		strconv.Itoa(r.Like),
		strconv.Itoa(r.Dislike),
		r.Title,
		r.Review,
	}
}

// Extractor turns one raw page payload into zero or more records.
//
// Implementations must be deterministic, must not panic on arbitrary input,
// and report hard syntax errors as crawler parse errors.
type Extractor[R any] interface {
	Extract(raw []byte) ([]R, error)
}

// ParseCount parses a numeric feed field. Anything unparseable counts as 0.
func ParseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
