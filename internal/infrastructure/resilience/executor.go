package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Executor wraps outbound dependency calls with bounded retries and a
// per-operation circuit breaker. Calls sharing an operation name share
// breaker state.
type Executor struct {
	policy Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		policy:   cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Execute runs fn under the executor's retry and breaker policy. The
// classifier decides which failures deserve another attempt and which
// count against the breaker.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classifier ErrorClassifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil callback for operation %q", operation)
	}
	name := strings.TrimSpace(operation)
	if name == "" {
		name = "unnamed"
	}
	if classifier == nil {
		classifier = defaultClassifier
	}

	if !e.policy.Breaker.Enabled {
		return e.retry(ctx, name, fn, classifier)
	}
	_, err := e.breakerFor(name, classifier).Execute(func() (any, error) {
		return nil, e.retry(ctx, name, fn, classifier)
	})
	return err
}

func (e *Executor) retry(ctx context.Context, name string, fn func(context.Context) error, classify ErrorClassifier) error {
	delay := e.policy.Retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr := fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt >= e.policy.Retry.MaxAttempts || !classify(lastErr).Retryable {
			return lastErr
		}

		wait := min(delay, e.policy.Retry.MaxBackoff)
		slog.Warn("dependency_retry",
			"operation", name,
			"attempt", attempt,
			"attempt_limit", e.policy.Retry.MaxAttempts,
			"wait", wait,
			"error", lastErr,
		)
		if sleep(ctx, wait) != nil {
			return lastErr
		}
		delay = min(time.Duration(float64(delay)*e.policy.Retry.Multiplier), e.policy.Retry.MaxBackoff)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) breakerFor(name string, classify ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[name]; ok {
		return breaker
	}
	breaker := gobreaker.NewCircuitBreaker[any](e.breakerSettings(name, classify))
	e.breakers[name] = breaker
	return breaker
}

func (e *Executor) breakerSettings(name string, classify ErrorClassifier) gobreaker.Settings {
	policy := e.policy.Breaker
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: policy.HalfOpenMaxCalls,
		Timeout:     policy.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= policy.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("breaker_state_changed", "operation", name, "from", from.String(), "to", to.String())
		},
	}
}
