package services

import (
	"context"
	"sync"
)

// DialFunc establishes a connection to the retrieval backend, typically by
// constructing a BackendClient and pinging its health route.
type DialFunc func(ctx context.Context) (RetrievalBackend, error)

// connAttempt is one in-flight establishment. Every caller that arrives while
// it runs waits on done and shares its outcome.
type connAttempt struct {
	done    chan struct{}
	backend RetrievalBackend
	err     error
}

// ConnectionManager lazily establishes and memoizes the single backend
// connection shared by all operations. At most one establishment attempt is in
// flight at a time; a failed attempt is not cached, so the next call dials
// from scratch. The handle is never closed until process exit.
type ConnectionManager struct {
	mu      sync.Mutex
	dial    DialFunc
	backend RetrievalBackend
	attempt *connAttempt
}

func NewConnectionManager(dial DialFunc) *ConnectionManager {
	return &ConnectionManager{dial: dial}
}

// Get returns the memoized backend handle, establishing it on first use.
// Concurrent first calls all observe the outcome of one dial.
func (m *ConnectionManager) Get(ctx context.Context) (RetrievalBackend, error) {
	m.mu.Lock()
	if m.backend != nil {
		backend := m.backend
		m.mu.Unlock()
		return backend, nil
	}

	if m.attempt != nil {
		attempt := m.attempt
		m.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.backend, attempt.err
		case <-ctx.Done():
			return nil, &ConnectionError{Cause: ctx.Err()}
		}
	}

	attempt := &connAttempt{done: make(chan struct{})}
	m.attempt = attempt
	m.mu.Unlock()

	backend, err := m.dial(ctx)

	m.mu.Lock()
	if err == nil {
		m.backend = backend
	}
	m.attempt = nil
	m.mu.Unlock()

	attempt.backend = backend
	attempt.err = err
	close(attempt.done)
	return backend, err
}
