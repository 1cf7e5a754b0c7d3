package core

// limiter.go implements concurrency control for ingest processing.
//
// The limiter uses a semaphore pattern to restrict parallel ingests to a
// configurable maximum, preventing resource exhaustion under load. When
// all slots are occupied, new requests wait up to maxWait before failing
// with ErrTooManyIngests.
//
// The limiter also supports graceful shutdown via WaitForDrain, which
// blocks until all active ingests complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyIngests is returned when all ingest slots are occupied and
// the wait timeout expires. Clients should retry after a short delay.
var ErrTooManyIngests = errors.New("too many concurrent ingests, please try again later")

// DefaultMaxConcurrentIngests is the default limit for parallel ingests.
const DefaultMaxConcurrentIngests = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// IngestLimiter controls concurrent ingest processing using a semaphore.
type IngestLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewIngestLimiter creates a limiter that allows at most maxConcurrent
// simultaneous ingests. Requests that cannot acquire a slot within
// maxWait receive ErrTooManyIngests.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &IngestLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire an ingest slot.
// Returns nil on success, ErrTooManyIngests if the timeout expires.
// The caller MUST call Release() when the ingest completes (use defer).
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from slot-wait timeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyIngests

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire.
func (l *IngestLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently active ingests.
func (l *IngestLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of available slots.
func (l *IngestLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active ingests complete or ctx is
// cancelled. Used for graceful shutdown.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// IngestLimiterStatus is a snapshot of the limiter's current state.
type IngestLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *IngestLimiter) Status() IngestLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return IngestLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
