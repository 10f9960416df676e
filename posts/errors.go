package posts

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when the endpoint sends no posts
var ErrEmptyResult = errors.New("no posts returned")

// NetworkError reports a request that did not complete with a 2xx status
type NetworkError struct {
	URL        string
	StatusCode int // zero when no response arrived
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response body that is not a list of posts
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode posts from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
