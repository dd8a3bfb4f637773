package pipeline

// limiter.go restricts the pipeline to a fixed number of concurrent runs.
//
// Runs share the output directory and truncate the output tables, so the
// service uses a limiter of one. A request that finds the slot occupied waits
// up to maxWait before failing with ErrRunInProgress; a maxWait of zero fails
// at once.

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrRunInProgress is returned when every run slot is occupied and the wait
// expires.
var ErrRunInProgress = errors.New("pipeline: run already in progress")

// Limiter controls concurrent runs with a weighted semaphore.
type Limiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewLimiter allows at most maxConcurrent simultaneous runs.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxWait < 0 {
		maxWait = 0
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire takes a run slot. The caller must Release it when done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.maxWait == 0 {
		if !l.sem.TryAcquire(1) {
			return ErrRunInProgress
		}
		l.inc(1)
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		// Distinguish the caller giving up from our own wait expiring
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRunInProgress
	}
	l.inc(1)
	return nil
}

// Release returns a slot taken by Acquire.
func (l *Limiter) Release() {
	l.inc(-1)
	l.sem.Release(1)
}

func (l *Limiter) inc(n int) {
	l.mu.Lock()
	l.active += n
	l.mu.Unlock()
}

// ActiveCount returns the number of runs in progress.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no run is active or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *Limiter) Status() LimiterStatus {
	active := l.ActiveCount()
	return LimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
