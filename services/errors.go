package services

import "fmt"

// ConnectionError means the retrieval backend could not be reached at all.
// A failed attempt is never cached; the next caller dials from scratch.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to retrieval backend: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// ResourceLoadError means the backend's configuration-load operation rejected
// the request or errored. No partial state is produced.
type ResourceLoadError struct {
	Cause error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("resource load failed: %v", e.Cause)
}

func (e *ResourceLoadError) Unwrap() error { return e.Cause }

// SearchError means the backend's image-query operation rejected the request
// or errored. Previously displayed results are kept.
type SearchError struct {
	Cause error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("image search failed: %v", e.Cause)
}

func (e *SearchError) Unwrap() error { return e.Cause }
