package core

import (
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Type:    ErrInvalidRequest,
		Message: "unknown agent set",
	}

	expected := "invalid_request_error: unknown agent set"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestError_WithCode(t *testing.T) {
	err := &Error{
		Type:    ErrTool,
		Message: "tool endpoint rejected call",
		Code:    "tool_failed",
	}

	expected := "tool_error: tool endpoint rejected call (code: tool_failed)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewAuthenticationError(t *testing.T) {
	err := NewAuthenticationError("no ephemeral credential")
	if err.Type != ErrAuthentication {
		t.Errorf("Type = %v, want %v", err.Type, ErrAuthentication)
	}
	if err.Message != "no ephemeral credential" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInvalidRequestErrorWithParam(t *testing.T) {
	err := NewInvalidRequestErrorWithParam("missing tool name", "tool_name")
	if err.Param != "tool_name" {
		t.Errorf("Param = %q, want %q", err.Param, "tool_name")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		typ  ErrorType
		want bool
	}{
		{ErrTransport, true},
		{ErrTool, true},
		{ErrAPI, true},
		{ErrInvalidRequest, false},
		{ErrAuthentication, false},
		{ErrNotFound, false},
	}
	for _, tc := range cases {
		err := &Error{Type: tc.typ, Message: "x"}
		if got := err.IsRetryable(); got != tc.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tc.typ, got, tc.want)
		}
	}
}
