// Package breaker provides a failure-counting circuit breaker for the
// external inference dependency.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"TrendPulse/pkg/logger"
)

// ErrOpen is returned without invoking the protected call while the
// breaker is open.
var ErrOpen = errors.New("breaker: circuit open")

// State is a snapshot of the breaker for introspection.
type State struct {
	Open         bool `json:"open"`
	FailureCount int  `json:"failureCount"`
	Threshold    int  `json:"threshold"`
}

// Breaker counts consecutive failures and fails fast once the threshold is
// reached, auto-closing after a fixed timeout.
type Breaker struct {
	mu           sync.Mutex
	open         bool
	failureCount int
	threshold    int
	timeout      time.Duration
	resetTimer   *time.Timer

	log *logger.Logger
}

func New(threshold int, timeout time.Duration, log *logger.Logger) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Breaker{threshold: threshold, timeout: timeout, log: log}
}

// Do executes fn unless the breaker is open. A success resets the failure
// counter; a failure increments it and trips the breaker at the threshold.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.open {
		b.mu.Unlock()
		return ErrOpen
	}
	b.mu.Unlock()

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failureCount++
		if !b.open && b.failureCount >= b.threshold {
			b.trip()
		}
		return err
	}
	b.failureCount = 0
	return nil
}

// trip opens the breaker and schedules the auto-reset. Caller holds b.mu.
func (b *Breaker) trip() {
	b.open = true
	b.log.Warn("circuit breaker opened",
		logger.Int("failures", b.failureCount),
		logger.Duration("reset_in", b.timeout))
	b.resetTimer = time.AfterFunc(b.timeout, b.Reset)
}

// Reset closes the breaker and zeroes the failure counter.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resetTimer != nil {
		b.resetTimer.Stop()
		b.resetTimer = nil
	}
	if b.open {
		b.log.Info("circuit breaker closed")
	}
	b.open = false
	b.failureCount = 0
}

// Stop cancels any pending auto-reset. The breaker stays in its current
// state; call during shutdown.
func (b *Breaker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resetTimer != nil {
		b.resetTimer.Stop()
		b.resetTimer = nil
	}
}

// State returns a snapshot for introspection endpoints.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{Open: b.open, FailureCount: b.failureCount, Threshold: b.threshold}
}
