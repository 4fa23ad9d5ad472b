package area

import (
	"context"
	"fmt"
)

// Fetcher loads the raw text content behind a ChangedFile.ContentRef
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// NotFoundError is returned by fetchers when the reference cannot be resolved
type NotFoundError struct {
	Ref string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("content not found: %s", e.Ref)
}

// TransportError is returned by fetchers for network or storage failures
type TransportError struct {
	Ref string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Ref, e.Err)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// FetchError fails a whole classification because the content of one file could not be loaded
type FetchError struct {
	Path string
	Err  error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("classifying %s: %v", e.Path, e.Err)
}

func (e FetchError) Unwrap() error {
	return e.Err
}
