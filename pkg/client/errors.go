package client

import (
	"errors"
	"fmt"
)

// ErrBodyTooLarge is returned when a page exceeds Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError is a classified request failure.
type StatusError struct {
	StatusCode int
	URL        string
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("store %s error: %s: %v", e.ErrorClass, e.URL, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("store %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	default:
		return fmt.Sprintf("store %s error (status %d): %s",
			e.ErrorClass, e.StatusCode, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// ClassOf returns the error class of the first *StatusError in err's chain.
func ClassOf(err error) ErrorClass {
	var se *StatusError
	if errors.As(err, &se) {
		return se.ErrorClass
	}
	return ""
}
