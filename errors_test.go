package main

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	oe := &OrchestratorError{Code: CodeRateLimit, Message: "quota exceeded"}

	if got := ErrorCode(oe); got != CodeRateLimit {
		t.Fatalf("ErrorCode = %q, want %q", got, CodeRateLimit)
	}
	wrapped := fmt.Errorf("analyze statya.txt: %w", oe)
	if got := ErrorCode(wrapped); got != CodeRateLimit {
		t.Fatalf("ErrorCode(wrapped) = %q, want %q", got, CodeRateLimit)
	}
	if got := ErrorCode(errors.New("plain")); got != CodeGeneric {
		t.Fatalf("ErrorCode(plain) = %q, want %q", got, CodeGeneric)
	}
	if got := ErrorCode(nil); got != CodeGeneric {
		t.Fatalf("ErrorCode(nil) = %q, want %q", got, CodeGeneric)
	}
}
