package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"

	"github.com/strataworks/geoassist/internal/core/domain"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection refused" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return true }

func TestClassifySharedCases(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantHandled bool
		wantClass   ErrorClassification
	}{
		{
			name:        "nil error",
			err:         nil,
			wantHandled: true,
			wantClass:   ErrorClassification{},
		},
		{
			name:        "context canceled",
			err:         context.Canceled,
			wantHandled: true,
			wantClass:   ErrorClassification{Retryable: false, RecordFailure: false},
		},
		{
			name:        "deadline exceeded",
			err:         context.DeadlineExceeded,
			wantHandled: true,
			wantClass:   ErrorClassification{Retryable: false, RecordFailure: false},
		},
		{
			name:        "circuit open",
			err:         gobreaker.ErrOpenState,
			wantHandled: true,
			wantClass:   ErrorClassification{Retryable: true, RecordFailure: true},
		},
		{
			name:        "network error",
			err:         fakeNetError{},
			wantHandled: true,
			wantClass:   ErrorClassification{Retryable: true, RecordFailure: true},
		},
		{
			name:        "provider specific",
			err:         errors.New("quota exceeded"),
			wantHandled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, handled := Classify(tt.err)
			if handled != tt.wantHandled {
				t.Fatalf("handled = %v, want %v", handled, tt.wantHandled)
			}
			if handled && class != tt.wantClass {
				t.Fatalf("class = %+v, want %+v", class, tt.wantClass)
			}
		})
	}
}

func TestRetryableStatus(t *testing.T) {
	retryable := []int{
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
	for _, code := range retryable {
		if !RetryableStatus(code) {
			t.Fatalf("expected status %d to be retryable", code)
		}
	}

	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity} {
		if RetryableStatus(code) {
			t.Fatalf("expected status %d to be permanent", code)
		}
	}
}

func TestWrapTemporaryMarksRetryableErrors(t *testing.T) {
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	err := WrapTemporary("llm generate", errors.New("connection reset"), classifier)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}

	// Already-marked errors must not be double wrapped.
	twice := WrapTemporary("llm generate", err, classifier)
	if twice != err {
		t.Fatalf("expected identical error back, got %v", twice)
	}
}

func TestWrapTemporaryLeavesPermanentErrors(t *testing.T) {
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	permanent := errors.New("invalid api key")
	err := WrapTemporary("llm generate", permanent, classifier)
	if err != permanent {
		t.Fatalf("expected untouched error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not carry temporary kind")
	}

	if got := WrapTemporary("llm generate", nil, classifier); got != nil {
		t.Fatalf("expected nil for nil error, got %v", got)
	}
}
