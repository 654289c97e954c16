package recovery

import (
	"strings"
	"time"
)

// ErrorClass is one of the error classes spec.md §4.5 assigns a
// recovery strategy to.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassNetwork
	ClassTimeout
	ClassAuth
	ClassValidation
	ClassRateLimit
	ClassServer
	ClassExternalService
	ClassWebsocket
	ClassPlayerDisconnected
	ClassResourceExhausted
)

// RecoveryError is a classified error carrying its class and an
// optional HTTP-like status code, for use across the fabric.
type RecoveryError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
}

func (e *RecoveryError) Error() string {
	return e.Message
}

// Classify assigns an ErrorClass to err by HTTP-like status code first
// (spec.md §4.5: 401->AUTH, 429->RATE_LIMIT, 400->VALIDATION,
// 5xx->SERVER), then by message substring, matching the teacher's
// informal error-string matching idiom. Unrecognized errors are
// ClassUnknown.
func Classify(err error, statusCode int) ErrorClass {
	if re, ok := err.(*RecoveryError); ok && re.Class != ClassUnknown {
		return re.Class
	}

	switch statusCode {
	case 401:
		return ClassAuth
	case 429:
		return ClassRateLimit
	case 400:
		return ClassValidation
	}
	if statusCode >= 500 && statusCode < 600 {
		return ClassServer
	}

	if err == nil {
		return ClassUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return ClassTimeout
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "broken pipe"):
		return ClassNetwork
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication"):
		return ClassAuth
	case strings.Contains(msg, "validation") || strings.Contains(msg, "invalid"):
		return ClassValidation
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return ClassRateLimit
	case strings.Contains(msg, "websocket"):
		return ClassWebsocket
	case strings.Contains(msg, "disconnected"):
		return ClassPlayerDisconnected
	case strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "out of memory"):
		return ClassResourceExhausted
	case strings.Contains(msg, "external") || strings.Contains(msg, "upstream"):
		return ClassExternalService
	default:
		return ClassUnknown
	}
}

// Fallback names the documented fallback action for a class, or "" if
// the class defines none.
func Fallback(class ErrorClass) string {
	switch class {
	case ClassNetwork:
		return "offline-mode"
	case ClassAuth:
		return "re-authenticate"
	case ClassValidation:
		return "reject"
	case ClassWebsocket:
		return "reconnect"
	case ClassResourceExhausted:
		return "shed-load"
	default:
		return ""
	}
}

// StrategyFor returns the documented RetryPolicy and breaker params
// for a class, and whether the class retries at all (spec.md §4.5's
// table).
func StrategyFor(class ErrorClass) (policy RetryPolicy, breaker BreakerParams, retryable bool) {
	switch class {
	case ClassNetwork:
		return RetryPolicy{MaxAttempts: 6, Strategy: Exponential, InitialDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: true},
			BreakerParams{}, true
	case ClassTimeout:
		return RetryPolicy{MaxAttempts: 4, Strategy: Exponential, InitialDelay: 2 * time.Second, MaxDelay: 10 * time.Second},
			BreakerParams{}, true
	case ClassAuth:
		return RetryPolicy{MaxAttempts: 1}, BreakerParams{}, false
	case ClassValidation:
		return RetryPolicy{MaxAttempts: 1}, BreakerParams{}, false
	case ClassRateLimit:
		return RetryPolicy{MaxAttempts: 5, Strategy: Exponential, InitialDelay: time.Second, MaxDelay: 5 * time.Minute},
			BreakerParams{}, true
	case ClassServer:
		return RetryPolicy{MaxAttempts: 5, Strategy: Exponential, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Jitter: true},
			BreakerParams{FailureThreshold: 5, ResetTimeout: 60 * time.Second, HalfOpenLimit: 1, MonitoringPeriod: 60 * time.Second}, true
	case ClassExternalService:
		return RetryPolicy{MaxAttempts: 5, Strategy: Exponential, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Jitter: true},
			BreakerParams{FailureThreshold: 3, ResetTimeout: 120 * time.Second, HalfOpenLimit: 1, MonitoringPeriod: 120 * time.Second}, true
	case ClassWebsocket:
		return RetryPolicy{MaxAttempts: 10, Strategy: Exponential, InitialDelay: time.Second, MaxDelay: 30 * time.Second},
			BreakerParams{}, true
	case ClassPlayerDisconnected:
		return RetryPolicy{MaxAttempts: 1, Strategy: Fixed, InitialDelay: 5 * time.Second}, BreakerParams{}, true
	case ClassResourceExhausted:
		return RetryPolicy{MaxAttempts: 1}, BreakerParams{FailureThreshold: 1, ResetTimeout: 300 * time.Second, HalfOpenLimit: 1, MonitoringPeriod: 300 * time.Second}, false
	default:
		return RetryPolicy{MaxAttempts: 1}, BreakerParams{}, false
	}
}
