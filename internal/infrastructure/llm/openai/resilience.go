package openai

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/strataworks/geoassist/internal/infrastructure/resilience"
)

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if class, ok := resilience.Classify(err); ok {
		return class
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode)
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

// classifyStatus: retryable statuses count against the breaker; permanent
// rejections (4xx) do not, so caller mistakes cannot trip it.
func classifyStatus(statusCode int) resilience.ErrorClassification {
	if resilience.RetryableStatus(statusCode) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: false,
	}
}
