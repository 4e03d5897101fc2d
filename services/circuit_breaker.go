package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the wrapped operation while a
// breaker is OPEN. Fatal for the call, not for the process.
var ErrCircuitOpen = errors.New("service unavailable: circuit breaker open")

// BreakerState is the circuit breaker state machine position
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig holds circuit breaker policy
type BreakerConfig struct {
	FailureThreshold int           // Consecutive failures before opening (default: 3)
	RecoveryTimeout  time.Duration // Cooldown before a probe call is allowed (default: 30s)
}

// DefaultBreakerConfig returns the default failure-isolation policy
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

// CircuitBreaker isolates one named external service. After FailureThreshold
// consecutive failures it opens and fails calls fast; after RecoveryTimeout the
// next call goes through as a probe (half-open) and its outcome decides the
// next state. No retries happen here - retry policy belongs to the caller.
type CircuitBreaker struct {
	mu sync.Mutex

	service          string
	failureThreshold int
	recoveryTimeout  time.Duration

	state        BreakerState
	failureCount int
	lastFailure  time.Time
	probing      bool
}

// NewCircuitBreaker creates a breaker for a named external service
func NewCircuitBreaker(service string, config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}

	return &CircuitBreaker{
		service:          service,
		failureThreshold: config.FailureThreshold,
		recoveryTimeout:  config.RecoveryTimeout,
		state:            BreakerClosed,
	}
}

// Execute runs op under the breaker. While OPEN it fails immediately with
// ErrCircuitOpen; otherwise op's error is recorded and returned unchanged.
func (b *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if !b.allow() {
		return fmt.Errorf("%s: %w", b.service, ErrCircuitOpen)
	}

	err := op(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// State returns the current state, applying the recovery-timeout transition
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.recoveryTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

// FailureCount returns the consecutive failure count
func (b *CircuitBreaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.lastFailure) >= b.recoveryTimeout {
			b.state = BreakerHalfOpen
			b.probing = true
			return true
		}
		return false
	case BreakerHalfOpen:
		// One probe at a time; concurrent callers keep failing fast until
		// the probe's outcome lands
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.state = BreakerClosed
	b.probing = false
}

func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = time.Now()
	b.probing = false

	if b.state == BreakerHalfOpen || b.failureCount >= b.failureThreshold {
		b.state = BreakerOpen
	}
}

// BreakerSet hands out one breaker per named external service
type BreakerSet struct {
	mu       sync.Mutex
	config   BreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewBreakerSet creates a breaker registry sharing one policy
func NewBreakerSet(config BreakerConfig) *BreakerSet {
	return &BreakerSet{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for a service name, creating it on first use
func (s *BreakerSet) Get(service string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.breakers[service]; ok {
		return b
	}
	b := NewCircuitBreaker(service, s.config)
	s.breakers[service] = b
	return b
}
