package core

// limiter.go bounds how many conversions run at once.
//
// A conversion holds the whole export, its parsed records and an open
// workbook in memory, so parallel uploads are capped. Callers that cannot
// get a slot within the configured wait receive ErrTooManyConversions.
// WaitForDrain lets shutdown wait for running conversions to finish.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyConversions is returned when no slot frees up in time.
var ErrTooManyConversions = errors.New("too many concurrent conversions, please try again later")

const (
	// DefaultMaxConcurrentConversions applies when the configured limit is not positive.
	DefaultMaxConcurrentConversions = 4

	// DefaultMaxWaitTime applies when the configured wait is not positive.
	DefaultMaxWaitTime = 15 * time.Second
)

// ConversionLimiter is a counting semaphore with drain support.
type ConversionLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed whenever active drops to zero
}

// NewConversionLimiter allows at most maxConcurrent conversions and waits
// up to maxWait for a slot.
func NewConversionLimiter(maxConcurrent int, maxWait time.Duration) *ConversionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentConversions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	idle := make(chan struct{})
	close(idle)
	return &ConversionLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire takes a slot, waiting up to the configured time. The caller must
// Release exactly once after a nil return.
func (l *ConversionLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		if l.active == 0 {
			l.idle = make(chan struct{})
		}
		l.active++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyConversions
	}
}

// Release returns a slot taken by Acquire.
func (l *ConversionLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.idle)
	}
	l.mu.Unlock()

	<-l.slots
}

// ActiveCount returns the number of running conversions.
func (l *ConversionLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *ConversionLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no conversion is running or ctx ends.
func (l *ConversionLimiter) WaitForDrain(ctx context.Context) error {
	for {
		l.mu.Lock()
		idle := l.idle
		active := l.active
		l.mu.Unlock()

		if active == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// LimiterStatus is a snapshot of limiter state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ConversionLimiter) Status() LimiterStatus {
	active := l.ActiveCount()
	return LimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}
