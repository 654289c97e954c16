package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCircuitBreakerTripsThenRecovers is scenario S5: failure_threshold=3,
// reset_timeout=small; three failures trip, a call within the timeout
// is rejected without invoking the operation (invariant 8), and after
// the timeout elapses the breaker goes HALF_OPEN then CLOSED on success.
func TestCircuitBreakerTripsThenRecovers(t *testing.T) {
	var alerts []BreakerAlertKind
	b := NewCircuitBreaker("test-resource", BreakerParams{
		FailureThreshold: 3,
		ResetTimeout:     30 * time.Millisecond,
		HalfOpenLimit:    1,
		MonitoringPeriod: time.Minute,
	}, func(a BreakerAlert) { alerts = append(alerts, a.Kind) })

	invoked := 0
	for i := 0; i < 3; i++ {
		require.True(t, b.Allow())
		invoked++
		b.RecordFailure()
	}
	assert.Equal(t, Open, b.Status().State)
	assert.Contains(t, alerts, AlertTrip)

	assert.False(t, b.Allow(), "call within reset_timeout must be rejected without invoking the operation")
	assert.Equal(t, 3, invoked, "rejected call must not reach the underlying operation")

	time.Sleep(40 * time.Millisecond)
	require.True(t, b.Allow(), "call after reset_timeout enters HALF_OPEN")
	assert.Equal(t, HalfOpen, b.Status().State)

	b.RecordSuccess()
	assert.Equal(t, Closed, b.Status().State)
	assert.Contains(t, alerts, AlertRecovery)
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("r2", BreakerParams{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Millisecond,
		HalfOpenLimit:    1,
		MonitoringPeriod: time.Minute,
	}, nil)

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, Open, b.Status().State)

	time.Sleep(15 * time.Millisecond)
	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, Open, b.Status().State)
}

func TestRegistryReturnsSameBreakerForResource(t *testing.T) {
	reg := NewRegistry(nil)
	a := reg.Get("deck-oracle", BreakerParams{FailureThreshold: 3, ResetTimeout: time.Second})
	b := reg.Get("deck-oracle", BreakerParams{FailureThreshold: 99})
	assert.Same(t, a, b, "registry must return the same breaker instance for a resource")
}

// TestRetryExecutorRespectsMaxAttempts is invariant 9's first half.
func TestRetryExecutorRespectsMaxAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Strategy: Fixed, InitialDelay: time.Millisecond}
	attempts := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

// TestRetryExecutorNoAttemptOnPreCancelledContext is invariant 9's
// second half: no attempt if the abort signal is set before scheduling.
func TestRetryExecutorNoAttemptOnPreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{MaxAttempts: 3, Strategy: Fixed, InitialDelay: 50 * time.Millisecond}
	attempts := 0
	err := policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 0, attempts, "fn must not be invoked when ctx is already cancelled before scheduling")
}

func TestRetryBackoffFormulas(t *testing.T) {
	exp := RetryPolicy{Strategy: Exponential, InitialDelay: time.Second, MaxDelay: 30 * time.Second}
	assert.Equal(t, time.Second, exp.delayForAttempt(1))
	assert.Equal(t, 2*time.Second, exp.delayForAttempt(2))
	assert.Equal(t, 4*time.Second, exp.delayForAttempt(3))

	lin := RetryPolicy{Strategy: Linear, InitialDelay: time.Second}
	assert.Equal(t, 3*time.Second, lin.delayForAttempt(3))

	fixed := RetryPolicy{Strategy: Fixed, InitialDelay: 5 * time.Second}
	assert.Equal(t, 5*time.Second, fixed.delayForAttempt(7))
}

func TestClassifyByStatusCode(t *testing.T) {
	assert.Equal(t, ClassAuth, Classify(errors.New("x"), 401))
	assert.Equal(t, ClassRateLimit, Classify(errors.New("x"), 429))
	assert.Equal(t, ClassValidation, Classify(errors.New("x"), 400))
	assert.Equal(t, ClassServer, Classify(errors.New("x"), 503))
}

func TestClassifyByMessageSubstring(t *testing.T) {
	assert.Equal(t, ClassTimeout, Classify(errors.New("context deadline exceeded"), 0))
	assert.Equal(t, ClassNetwork, Classify(errors.New("dial tcp: connection refused"), 0))
	assert.Equal(t, ClassUnknown, Classify(errors.New("something weird"), 0))
}

func TestDecideGameErrorPlayerDisconnected(t *testing.T) {
	d := DecideGameError(ErrorPlayerDisconnected, true)
	assert.Equal(t, ActionAutoFold, d.Action)
	assert.True(t, d.NotifyOthers)

	d = DecideGameError(ErrorPlayerDisconnected, false)
	assert.Equal(t, ActionRemoveFromTable, d.Action)
}

func TestDecideStateConflictCriticalFieldForcesManual(t *testing.T) {
	d := DecideStateConflict("pot", false, true)
	assert.Equal(t, ManualIntervention, d.Kind)
	assert.True(t, d.AdminRequired)
}

func TestDecideStateConflictMergeableDeepMerges(t *testing.T) {
	d := DecideStateConflict("chatHistory", false, true)
	assert.Equal(t, DeepMerge, d.Kind)
}

func TestDecideConnectionFailureTerminatesAfterFiveAttempts(t *testing.T) {
	now := time.Now()
	d := DecideConnectionFailure(5, now.Add(-time.Minute), now, ConnTypePlayer)
	assert.True(t, d.Terminate)
}

func TestDecideConnectionFailureDegradesSpectator(t *testing.T) {
	now := time.Now()
	d := DecideConnectionFailure(1, now, now, ConnTypeSpectator)
	assert.True(t, d.Degrade)
}
