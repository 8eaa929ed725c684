package main

import (
	"errors"
	"fmt"
)

// Error codes surfaced to the HTTP layer. The status-code mapping
// (503/401/429/429/500) lives there, not here.
const (
	CodeAPIKeyMissing         = "API_KEY_MISSING"
	CodeAPIKeyInvalid         = "API_KEY_INVALID"
	CodeRateLimit             = "RATE_LIMIT"
	CodeAllProvidersExhausted = "ALL_PROVIDERS_EXHAUSTED"
	CodeGeneric               = "LLM_ERROR"
)

// OrchestratorError is the only error type that crosses the orchestrator
// boundary. Suggestion is a user-facing hint filled in for quota errors.
type OrchestratorError struct {
	Code       string
	Message    string
	Suggestion string
	Err        error
}

func (e *OrchestratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OrchestratorError) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the orchestrator code from err, or CodeGeneric for
// anything else.
func ErrorCode(err error) string {
	var oe *OrchestratorError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return CodeGeneric
}
