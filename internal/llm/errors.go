package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies oracle failures so the batch-level error message can
// point at the likely cause instead of a generic failure.
type ErrorKind string

const (
	KindQuota    ErrorKind = "quota"    // rate limit or quota exhausted
	KindAuth     ErrorKind = "auth"     // invalid or missing API key
	KindOverload ErrorKind = "overload" // provider temporarily overloaded
	KindNetwork  ErrorKind = "network"  // transport-level failure
	KindOther    ErrorKind = "other"
)

// OracleError is a classified failure from the extraction oracle. The
// orchestrator aborts the whole batch on one of these: there is no text to
// recover from an absent response.
type OracleError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status plus response body onto an ErrorKind.
func classifyStatus(status int, body string) ErrorKind {
	lower := strings.ToLower(body)
	switch {
	case status == 429 || strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit"):
		return KindQuota
	case status == 401 || status == 403 || strings.Contains(lower, "api key") || strings.Contains(lower, "unauthorized"):
		return KindAuth
	case status == 503 || status == 529 || strings.Contains(lower, "overloaded"):
		return KindOverload
	default:
		return KindOther
	}
}

// UserMessage translates an oracle error into user-facing guidance.
func UserMessage(err error) string {
	var oe *OracleError
	if !errors.As(err, &oe) {
		return "extraction failed: " + err.Error()
	}
	switch oe.Kind {
	case KindQuota:
		return "the extraction service quota is exhausted; retry later or switch provider"
	case KindAuth:
		return "the extraction service rejected the API key; check your configuration"
	case KindOverload:
		return "the extraction service is overloaded; retry in a few minutes"
	case KindNetwork:
		return "could not reach the extraction service; check the endpoint and your connection"
	default:
		return "the extraction service failed: " + oe.Err.Error()
	}
}
