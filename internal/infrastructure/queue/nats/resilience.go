package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/strataworks/geoassist/internal/infrastructure/resilience"
)

// transientConnErrs are connection states the client recovers from on its
// own, so a publish is worth repeating.
var transientConnErrs = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
}

func classifyNATSError(err error) resilience.ErrorClassification {
	if class, ok := resilience.Classify(err); ok {
		return class
	}
	for _, sentinel := range transientConnErrs {
		if errors.Is(err, sentinel) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
