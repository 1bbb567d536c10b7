package crawler

import (
	"errors"
	"fmt"
)

// Kind classifies a crawler failure. The three kinds are never conflated:
// config load failures are fatal to the run, request failures abort one
// application, parse failures abort one application's extraction.
type Kind string

const (
	// KindConfigLoad is a missing or unparseable target configuration.
	KindConfigLoad Kind = "config_load"

	// KindRequest is any transport failure while fetching a page.
	KindRequest Kind = "request"

	// KindParse is a hard syntax error from a page extractor.
	KindParse Kind = "parse"
)

// Sentinels for errors.Is matching against *Error values.
var (
	ErrConfigLoad = errors.New("config load error")
	ErrRequest    = errors.New("request error")
	ErrParse      = errors.New("parse error")
)

// Error is a classified crawler error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := e.sentinel().Error()
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", prefix, e.Op)
	default:
		return prefix
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindConfigLoad:
		return ErrConfigLoad
	case KindParse:
		return ErrParse
	default:
		return ErrRequest
	}
}

// NewConfigLoadError wraps err as a config load failure.
func NewConfigLoadError(op string, err error) *Error {
	return &Error{Kind: KindConfigLoad, Op: op, Err: err}
}

// NewRequestError wraps err as a request failure.
func NewRequestError(op string, err error) *Error {
	return &Error{Kind: KindRequest, Op: op, Err: err}
}

// NewParseError wraps err as a parse failure.
func NewParseError(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
