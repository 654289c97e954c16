// Package recovery implements the error recovery fabric (spec.md
// §4.5): circuit breakers, retry policies, error classification, and
// the connection-failure/game-error/state-conflict decision tables.
// The process-wide, resource-keyed registry pattern is grounded on the
// teacher's rules.EngineRegistry singleton (internal/game/rules/registry.go).
package recovery

import (
	"sync"
	"time"

	"poker-platform/internal/metrics"
)

// BreakerState is one of the three circuit breaker states (spec.md §4.5).
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerParams configures one circuit breaker instance.
type BreakerParams struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenLimit    int
	MonitoringPeriod time.Duration
}

// BreakerAlertKind names the three alert kinds a breaker emits.
type BreakerAlertKind int

const (
	AlertTrip BreakerAlertKind = iota
	AlertRecovery
	AlertThresholdExceeded
)

// BreakerAlert is delivered to a breaker's AlertFunc on trip, recovery,
// and threshold-exceeded events.
type BreakerAlert struct {
	Resource string
	Kind     BreakerAlertKind
	At       time.Time
}

// CircuitBreaker implements the CLOSED/OPEN/HALF_OPEN state machine
// from spec.md §4.5.
type CircuitBreaker struct {
	resource string
	params   BreakerParams
	onAlert  func(BreakerAlert)

	mu               sync.Mutex
	state            BreakerState
	successCount     int
	failureCount     int
	halfOpenInFlight int
	lastFailureTime  time.Time
	periodStart      time.Time
	tripsThisPeriod  int
}

// NewCircuitBreaker builds a breaker for resource with the given
// params. onAlert may be nil.
func NewCircuitBreaker(resource string, params BreakerParams, onAlert func(BreakerAlert)) *CircuitBreaker {
	if params.HalfOpenLimit <= 0 {
		params.HalfOpenLimit = 1
	}
	return &CircuitBreaker{
		resource:    resource,
		params:      params,
		onAlert:     onAlert,
		state:       Closed,
		periodStart: time.Now(),
	}
}

// ErrCircuitOpen is the sanitized ServiceUnavailable error a breaker
// returns while OPEN, per spec.md §4.5.
var ErrCircuitOpen = &RecoveryError{Class: ClassResourceExhausted, Message: "service unavailable: circuit breaker open"}

// Allow reports whether a call may proceed, transitioning OPEN to
// HALF_OPEN once reset_timeout has elapsed since the last failure.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolloverPeriod()

	switch b.state {
	case Closed:
		return true
	case Open:
		if time.Since(b.lastFailureTime) >= b.params.ResetTimeout {
			b.state = HalfOpen
			b.halfOpenInFlight = 0
			return b.tryEnterHalfOpen()
		}
		return false
	case HalfOpen:
		return b.tryEnterHalfOpen()
	default:
		return false
	}
}

func (b *CircuitBreaker) tryEnterHalfOpen() bool {
	if b.halfOpenInFlight >= b.params.HalfOpenLimit {
		return false
	}
	b.halfOpenInFlight++
	return true
}

func (b *CircuitBreaker) rolloverPeriod() {
	if b.params.MonitoringPeriod <= 0 {
		return
	}
	if time.Since(b.periodStart) >= b.params.MonitoringPeriod {
		b.periodStart = time.Now()
		b.successCount = 0
		b.failureCount = 0
	}
}

// RecordSuccess reports a successful call. In HALF_OPEN, a single
// success resets the breaker to CLOSED.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	if b.state == HalfOpen {
		b.state = Closed
		b.failureCount = 0
		b.halfOpenInFlight = 0
		b.emit(AlertRecovery)
	}
}

// RecordFailure reports a failed call. In CLOSED, reaching
// failure_threshold within monitoring_period trips to OPEN. In
// HALF_OPEN, any failure trips back to OPEN.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		if b.failureCount >= b.params.FailureThreshold {
			b.trip()
		}
	}
}

func (b *CircuitBreaker) trip() {
	b.state = Open
	b.halfOpenInFlight = 0
	b.tripsThisPeriod++
	b.emit(AlertTrip)
	if b.params.FailureThreshold > 0 && b.failureCount >= b.params.FailureThreshold {
		b.emit(AlertThresholdExceeded)
	}
}

// Trip manually forces the breaker OPEN.
func (b *CircuitBreaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trip()
}

// Reset manually forces the breaker CLOSED, clearing counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.successCount = 0
	b.failureCount = 0
	b.halfOpenInFlight = 0
}

// Status is the breaker's externally visible state snapshot.
type Status struct {
	State           BreakerState
	SuccessCount    int
	FailureCount    int
	LastFailureTime time.Time
}

// Status returns {state, success_count, failure_count, last_failure_time}.
func (b *CircuitBreaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		State:           b.state,
		SuccessCount:    b.successCount,
		FailureCount:    b.failureCount,
		LastFailureTime: b.lastFailureTime,
	}
}

func (b *CircuitBreaker) emit(kind BreakerAlertKind) {
	metrics.RecordBreakerState(b.resource, int(b.state), kind == AlertTrip)
	if b.onAlert == nil {
		return
	}
	b.onAlert(BreakerAlert{Resource: b.resource, Kind: kind, At: time.Now()})
}

// Registry is the process-wide, resource-keyed breaker registry
// (spec.md §5: "Circuit breakers ... are process-wide, keyed by
// resource name"). Tests construct their own Registry instead of using
// a package-level singleton, per spec.md §9's injectability note.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	onAlert  func(BreakerAlert)
}

// NewRegistry builds an empty breaker registry. onAlert, if non-nil,
// is wired into every breaker it creates.
func NewRegistry(onAlert func(BreakerAlert)) *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker), onAlert: onAlert}
}

// Get returns the breaker for resource, creating it with params on
// first use.
func (r *Registry) Get(resource string, params BreakerParams) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[resource]; ok {
		return b
	}
	b := NewCircuitBreaker(resource, params, r.onAlert)
	r.breakers[resource] = b
	return b
}
