package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"
)

func TestAppError_Error(t *testing.T) {
	err := Timeout("get_projects")
	want := "TIMEOUT: operation get_projects timed out"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestAppError_ErrorWithCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := ConnectionFailed("testrail", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Error() == "" {
		t.Error("expected non-empty error string")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", Timeout("op"), true},
		{"rate limited", RateLimited(time.Second), true},
		{"server error", Server(503, "unavailable"), true},
		{"validation", Validation("bad field"), false},
		{"unauthorized", Unauthorized("zephyr"), false},
		{"not found", NotFound("project", "42"), false},
		{"plain error", stderrors.New("boom"), false},
		{"wrapped retryable", fmt.Errorf("call failed: %w", Timeout("op")), true},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		wantCode  ErrorCode
		retryable bool
	}{
		{429, ErrCodeRateLimited, true},
		{401, ErrCodeUnauthorized, false},
		{403, ErrCodeForbidden, false},
		{404, ErrCodeNotFound, false},
		{500, ErrCodeServer, true},
		{503, ErrCodeServer, true},
		{400, ErrCodeValidation, false},
		{422, ErrCodeValidation, false},
	}

	for _, tt := range tests {
		err := FromStatusCode(tt.status, "body")
		if err.Code != tt.wantCode {
			t.Errorf("status %d: expected code %s, got %s", tt.status, tt.wantCode, err.Code)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("status %d: expected retryable=%v", tt.status, tt.retryable)
		}
	}
}

func TestRetryAfterHint(t *testing.T) {
	hint, ok := RetryAfterHint(RateLimited(30 * time.Second))
	if !ok || hint != 30*time.Second {
		t.Errorf("expected 30s hint, got %v (ok=%v)", hint, ok)
	}

	if _, ok := RetryAfterHint(RateLimited(0)); ok {
		t.Error("expected no hint when provider gave none")
	}

	if _, ok := RetryAfterHint(stderrors.New("plain")); ok {
		t.Error("expected no hint for plain errors")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Unauthorized("jira"))
	if !IsCode(err, ErrCodeUnauthorized) {
		t.Error("expected code match through wrapping")
	}
	if IsCode(err, ErrCodeTimeout) {
		t.Error("unexpected code match")
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeServer, "upstream broke").WithDetail("attempt", 3)
	if err.Details["attempt"] != 3 {
		t.Errorf("expected detail to be set, got %v", err.Details)
	}
	if !err.Retryable {
		t.Error("expected SERVER_ERROR to be retryable by default")
	}
}
